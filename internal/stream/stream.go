// Package stream provides a minimal push-based observable abstraction:
// subscribe with a callback, receive values until cancelled. It exists so
// the live-query and row-provider layers can compose change feeds without
// pulling in a full reactive framework.
package stream

import "sync"

// CancelFunc detaches a subscription. Safe to call more than once.
type CancelFunc func()

// Source is a push stream of values. Subscribe registers a callback and
// returns a cancel function. Whether a value is delivered synchronously
// during Subscribe is up to the concrete source; operators preserve
// whatever discipline their upstream has.
type Source[T any] interface {
	Subscribe(fn func(T)) CancelFunc
}

// Func adapts a plain function into a Source.
type Func[T any] func(fn func(T)) CancelFunc

// Subscribe implements Source.
func (f Func[T]) Subscribe(fn func(T)) CancelFunc { return f(fn) }

// Map transforms every value from src with fn.
func Map[T, U any](src Source[T], fn func(T) U) Source[U] {
	return Func[U](func(out func(U)) CancelFunc {
		return src.Subscribe(func(v T) { out(fn(v)) })
	})
}

// Filter forwards only values for which keep returns true.
func Filter[T any](src Source[T], keep func(T) bool) Source[T] {
	return Func[T](func(out func(T)) CancelFunc {
		return src.Subscribe(func(v T) {
			if keep(v) {
				out(v)
			}
		})
	})
}

// Dedupe drops a value when eq reports it equal to the previously
// delivered one. The first value always passes.
func Dedupe[T any](src Source[T], eq func(a, b T) bool) Source[T] {
	return Func[T](func(out func(T)) CancelFunc {
		var mu sync.Mutex
		var last T
		seen := false
		return src.Subscribe(func(v T) {
			mu.Lock()
			if seen && eq(last, v) {
				mu.Unlock()
				return
			}
			last = v
			seen = true
			mu.Unlock()
			out(v)
		})
	})
}

// Skip drops the first n values from src.
func Skip[T any](src Source[T], n int) Source[T] {
	return Func[T](func(out func(T)) CancelFunc {
		var mu sync.Mutex
		dropped := 0
		return src.Subscribe(func(v T) {
			mu.Lock()
			if dropped < n {
				dropped++
				mu.Unlock()
				return
			}
			mu.Unlock()
			out(v)
		})
	})
}

// Pair is the combined value emitted by Combine.
type Pair[A, B any] struct {
	A A
	B B
}

// Combine merges two sources combine-latest style: after both have
// delivered at least one value, every subsequent value from either side
// emits a Pair holding the latest from each.
func Combine[A, B any](a Source[A], b Source[B]) Source[Pair[A, B]] {
	return Func[Pair[A, B]](func(out func(Pair[A, B])) CancelFunc {
		var mu sync.Mutex
		var lastA A
		var lastB B
		haveA, haveB := false, false

		emit := func() {
			if haveA && haveB {
				p := Pair[A, B]{A: lastA, B: lastB}
				mu.Unlock()
				out(p)
				return
			}
			mu.Unlock()
		}

		cancelA := a.Subscribe(func(v A) {
			mu.Lock()
			lastA, haveA = v, true
			emit()
		})
		cancelB := b.Subscribe(func(v B) {
			mu.Lock()
			lastB, haveB = v, true
			emit()
		})
		return func() {
			cancelA()
			cancelB()
		}
	})
}
