package storage

import (
	"context"

	"github.com/runger/sessiondeck/internal/stream"
)

// Result is one evaluation of a repository query. A failed evaluation
// carries Err and no sessions; callers decide how to degrade.
type Result struct {
	Sessions []Session
	Err      error
}

// Repository is the query surface live observers consume. Query evaluates
// pred against the current library state and returns that initial Result
// synchronously, plus a change stream that re-evaluates and emits a fresh
// Result after every library mutation. A nil pred matches everything.
//
// The change stream delivers nothing during Subscribe; the initial value
// is only ever the returned one.
type Repository interface {
	Query(pred func(Session) bool) (Result, stream.Source[Result])
}

// Query implements Repository.
func (l *Library) Query(pred func(Session) bool) (Result, stream.Source[Result]) {
	initial := l.evaluate(pred)

	changes := stream.Func[Result](func(out func(Result)) stream.CancelFunc {
		cancel := l.SubscribeChanges(func() {
			out(l.evaluate(pred))
		})
		return stream.CancelFunc(cancel)
	})

	return initial, changes
}

func (l *Library) evaluate(pred func(Session) bool) Result {
	sessions, err := l.ListSessions(context.Background())
	if err != nil {
		return Result{Err: err}
	}
	if pred == nil {
		return Result{Sessions: sessions}
	}

	matched := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if pred(s) {
			matched = append(matched, s)
		}
	}
	return Result{Sessions: matched}
}
