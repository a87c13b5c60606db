package stream

import "sync"

// Var is a writable observable value. Subscribers receive the current
// value synchronously during Subscribe, then every subsequent Set.
type Var[T any] struct {
	mu    sync.Mutex
	value T
	next  int
	subs  map[int]func(T)
}

// NewVar creates a Var holding initial.
func NewVar[T any](initial T) *Var[T] {
	return &Var[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (v *Var[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores a new value and notifies all subscribers.
func (v *Var[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	fns := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Subscribe registers fn and invokes it once with the current value
// before returning.
func (v *Var[T]) Subscribe(fn func(T)) CancelFunc {
	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = fn
	current := v.value
	v.mu.Unlock()

	fn(current)

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}
