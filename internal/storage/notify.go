package storage

import "sync"

// notifier fans a "library changed" signal out to subscribers. It carries
// no payload: readers re-run their query on each tick.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

func (n *notifier) subscribe(fn func()) func() {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SubscribeChanges registers fn to run after every successful mutation.
// The returned function cancels the subscription.
func (l *Library) SubscribeChanges(fn func()) func() {
	return l.notifier.subscribe(fn)
}
