// Package liveq implements live filtered queries over the session
// library: a synchronous first result, then a change feed, with one
// optional pinned identity that is always included regardless of the
// filter predicate.
package liveq

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/runger/sessiondeck/internal/storage"
	"github.com/runger/sessiondeck/internal/stream"
)

// Observer evaluates a predicate against the library and keeps the
// caller's callback fed with the matching sessions. A pinned identity
// (typically the now-playing session) is OR'd into the predicate so the
// pinned session never drops out of a filtered view; when the pinned
// identity changes, the query is re-evaluated and re-subscribed.
//
// An Observer is single-use: Observe may be called exactly once.
type Observer struct {
	repo   storage.Repository
	pred   func(storage.Session) bool
	pinned stream.Source[string]
	logger *slog.Logger

	mu            sync.Mutex
	observed      bool
	cb            func([]storage.Session)
	last          []storage.Session
	delivered     bool
	pinnedID      string
	pinnedPrimed  bool
	cancelChanges stream.CancelFunc
	cancelPinned  stream.CancelFunc
	cancelled     bool
}

// New creates an observer over repo. pred may be nil (match everything);
// pinned may be nil (no pinned identity).
func New(repo storage.Repository, pred func(storage.Session) bool, pinned stream.Source[string], logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{repo: repo, pred: pred, pinned: pinned, logger: logger}
}

// Observe evaluates the query and invokes cb with the current result
// before returning, then again after every library change that alters
// the result. A change notification that would re-deliver the current
// result is dropped. Calling Observe twice panics.
func (o *Observer) Observe(cb func([]storage.Session)) {
	o.mu.Lock()
	if o.observed {
		o.mu.Unlock()
		panic("liveq: Observe called twice on the same Observer")
	}
	o.observed = true
	o.cb = cb
	o.mu.Unlock()

	if o.pinned != nil {
		// Dedupe collapses repeated writes of the same identity; the
		// remaining first (synchronous) delivery seeds pinnedID before
		// the evaluation below, and later ones re-run the query.
		pinnedChanges := stream.Dedupe[string](o.pinned, func(a, b string) bool { return a == b })
		cancel := pinnedChanges.Subscribe(func(id string) {
			o.mu.Lock()
			if !o.pinnedPrimed {
				o.pinnedPrimed = true
				o.pinnedID = id
				o.mu.Unlock()
				return
			}
			o.pinnedID = id
			o.mu.Unlock()
			o.requery()
		})

		o.mu.Lock()
		if o.cancelled {
			o.mu.Unlock()
			cancel()
			return
		}
		o.cancelPinned = cancel
		o.mu.Unlock()
	}

	o.requery()
}

// Cancel detaches the observer from the library and the pinned signal.
func (o *Observer) Cancel() {
	o.mu.Lock()
	o.cancelled = true
	cancelChanges := o.cancelChanges
	cancelPinned := o.cancelPinned
	o.cancelChanges = nil
	o.cancelPinned = nil
	o.mu.Unlock()

	if cancelChanges != nil {
		cancelChanges()
	}
	if cancelPinned != nil {
		cancelPinned()
	}
}

// requery (re)evaluates the effective predicate, delivers the result,
// and (re)subscribes to the repository change stream.
func (o *Observer) requery() {
	o.mu.Lock()
	if o.cancelled {
		o.mu.Unlock()
		return
	}
	if o.cancelChanges != nil {
		o.cancelChanges()
		o.cancelChanges = nil
	}
	pred := o.effectivePredicate()
	o.mu.Unlock()

	initial, changes := o.repo.Query(pred)
	o.deliver(initial)

	cancel := changes.Subscribe(o.deliver)

	o.mu.Lock()
	if o.cancelled {
		o.mu.Unlock()
		cancel()
		return
	}
	o.cancelChanges = cancel
	o.mu.Unlock()
}

// deliver invokes the callback with r. A result equal to the previously
// delivered one is dropped, which also swallows the change notification
// that merely re-delivers the synchronous baseline. The very first
// result always goes through, even when empty.
func (o *Observer) deliver(r storage.Result) {
	sessions := r.Sessions
	if r.Err != nil {
		o.logger.Warn("live query failed, degrading to empty result", "error", r.Err)
		sessions = nil
	}

	o.mu.Lock()
	if o.cancelled {
		o.mu.Unlock()
		return
	}
	if o.delivered && slices.Equal(o.last, sessions) {
		o.mu.Unlock()
		return
	}
	o.last = sessions
	o.delivered = true
	cb := o.cb
	o.mu.Unlock()

	cb(sessions)
}

// effectivePredicate ORs the pinned identity into the configured
// predicate. Caller holds o.mu.
func (o *Observer) effectivePredicate() func(storage.Session) bool {
	pred := o.pred
	pinnedID := o.pinnedID
	if pred == nil {
		return nil
	}
	if pinnedID == "" {
		return pred
	}
	return func(s storage.Session) bool {
		return s.ID == pinnedID || pred(s)
	}
}
