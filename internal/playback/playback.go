// Package playback tracks the process-wide now-playing session. The
// identity it publishes is fed into the filtered view as the pinned
// identity, so whatever is playing never drops out of a filtered list.
// Only the playback context writes it; everything else reads.
package playback

import "github.com/runger/sessiondeck/internal/stream"

// Context is the now-playing signal.
type Context struct {
	current *stream.Var[string]
}

// NewContext creates a context with nothing playing.
func NewContext() *Context {
	return &Context{current: stream.NewVar("")}
}

// Play marks id as the now-playing session.
func (c *Context) Play(id string) {
	c.current.Set(id)
}

// Stop clears the now-playing session.
func (c *Context) Stop() {
	c.current.Set("")
}

// CurrentID returns the now-playing session ID, or "".
func (c *Context) CurrentID() string {
	return c.current.Get()
}

// Current exposes the identity as an observable source; subscribers get
// the present value synchronously.
func (c *Context) Current() stream.Source[string] {
	return c.current
}
