package reconcile

import "sync"

// updateQueue serializes reconciliation requests: strictly ordered, at
// most one running at a time, re-entrant enqueues appended rather than
// nested. Suspend holds queued work until Resume; it is used to keep
// ordinary updates from racing the initial display sequence.
type updateQueue struct {
	mu        sync.Mutex
	pending   []func()
	running   bool
	suspended bool
}

// enqueue appends fn and drains the queue unless it is suspended or
// another drain is already in progress.
func (q *updateQueue) enqueue(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	if q.running || q.suspended {
		q.mu.Unlock()
		return
	}
	q.drainLocked()
}

// Suspend holds all queued and future work.
func (q *updateQueue) Suspend() {
	q.mu.Lock()
	q.suspended = true
	q.mu.Unlock()
}

// Resume releases the hold and drains anything that accumulated.
func (q *updateQueue) Resume() {
	q.mu.Lock()
	q.suspended = false
	if q.running {
		q.mu.Unlock()
		return
	}
	q.drainLocked()
}

// drainLocked runs pending work in order. Called with q.mu held;
// releases it before returning.
func (q *updateQueue) drainLocked() {
	q.running = true
	for {
		if q.suspended || len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()

		q.mu.Lock()
	}
}
