// Package reconcile computes the minimal structural operations that
// bring a displayed row list in sync with a new snapshot, and decides
// what stays selected across the update. All requests flow through one
// ordered queue so diff computation and batch application never
// interleave.
package reconcile

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/runger/sessiondeck/internal/rows"
	"github.com/runger/sessiondeck/internal/storage"
)

// Batch is one ordered set of structural operations plus the resolved
// selection. Removed positions index the previous snapshot; Added and
// Reload positions index the new one. All position slices are ascending.
type Batch struct {
	Removed   []int
	Added     []int
	Reload    []int
	Selection []string // session IDs selected after the update
	Animated  bool
	Initial   bool // first display: snapshot accepted verbatim, no diff
}

// IsEmpty reports whether the batch carries no structural operations.
func (b Batch) IsEmpty() bool {
	return !b.Initial && len(b.Removed) == 0 && len(b.Added) == 0 && len(b.Reload) == 0
}

// Sink is the presentation layer. ApplyBatch must apply the whole batch
// atomically; a returned error leaves the engine's state un-advanced, so
// the next update re-diffs against a consistent baseline.
type Sink interface {
	ApplyBatch(next rows.Snapshot, batch Batch) error
}

// SnapshotSource is the row provider surface the engine needs for the
// initial display: the current pair, a reachability check, and the
// ability to discard the active filter when a deferred selection lies
// outside it.
type SnapshotSource interface {
	Latest() rows.Pair
	CanDisplay(id string) bool
	ClearFilter()
}

// Engine owns the displayed snapshot and its selection.
type Engine struct {
	sink   Sink
	src    SnapshotSource
	logger *slog.Logger
	q      updateQueue

	mu        sync.Mutex
	displayed bool
	current   rows.Snapshot
	selection []string
	deferred  string
	listeners []func(current *storage.Session)
}

// NewEngine creates an engine writing to sink and reading from src.
func NewEngine(sink Sink, src SnapshotSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{sink: sink, src: src, logger: logger}
}

// RequestSelection selects id. Before the initial display the request is
// deferred and honored by PerformInitialDisplay (restoring a previous
// run's selection); afterwards it reconciles immediately against the
// current snapshot.
func (e *Engine) RequestSelection(id string) {
	e.mu.Lock()
	if !e.displayed {
		e.deferred = id
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.q.enqueue(func() {
		e.mu.Lock()
		next := e.current
		e.mu.Unlock()
		e.reconcile(next, false, id)
	})
}

// PerformInitialDisplay renders the first snapshot. It is a one-time
// operation, not a diff: the snapshot is accepted verbatim. The queue is
// held suspended for the whole sequence so no ordinary update can race
// the first render. If a deferred selection cannot be satisfied by the
// filtered snapshot but exists in the library, the active filter is
// discarded and the unfiltered snapshot displayed instead.
func (e *Engine) PerformInitialDisplay(animated bool) {
	e.mu.Lock()
	if e.displayed {
		e.mu.Unlock()
		panic("reconcile: initial display performed twice")
	}
	deferred := e.deferred
	e.mu.Unlock()

	e.q.Suspend()
	defer e.q.Resume()

	snap := e.src.Latest().Filtered
	override := ""
	if deferred != "" {
		switch {
		case snap.ContainsID(deferred):
			override = deferred
		case e.src.CanDisplay(deferred):
			e.src.ClearFilter()
			snap = e.src.Latest().All
			override = deferred
		}
	}

	keyIndex(snap)

	sel := ResolveSelection(nil, nil, snap, override)
	batch := Batch{Selection: sel, Animated: animated, Initial: true}
	if err := e.sink.ApplyBatch(snap, batch); err != nil {
		e.logger.Error("initial display rejected by presentation layer", "error", err)
		return
	}

	e.mu.Lock()
	e.displayed = true
	e.current = snap
	e.selection = sel
	e.deferred = ""
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	e.notifySelection(listeners, snap, sel)
}

// Apply reconciles next against the displayed snapshot and hands the
// resulting batch to the sink. Calling Apply before the initial display
// is a contract violation.
func (e *Engine) Apply(next rows.Snapshot, animated bool, override string) {
	e.mu.Lock()
	if !e.displayed {
		e.mu.Unlock()
		panic("reconcile: Apply before initial display")
	}
	e.mu.Unlock()

	e.q.enqueue(func() {
		e.reconcile(next, animated, override)
	})
}

// reconcile runs on the queue: diff, selection resolution, batch
// application, then state advance.
func (e *Engine) reconcile(next rows.Snapshot, animated bool, override string) {
	e.mu.Lock()
	prev := e.current
	prevSel := e.selection
	e.mu.Unlock()

	keyIndex(next)

	// Identical snapshot with no explicit selection request: nothing to do.
	if override == "" && next.Equal(prev) {
		return
	}

	removed, added, reload := diff(prev, next)
	sel := ResolveSelection(prevSel, prev, next, override)
	batch := Batch{
		Removed:   removed,
		Added:     added,
		Reload:    reload,
		Selection: sel,
		Animated:  animated,
	}

	if err := e.sink.ApplyBatch(next, batch); err != nil {
		e.logger.Error("update batch rejected, state not advanced", "error", err)
		return
	}

	e.mu.Lock()
	e.current = next
	changed := !slices.Equal(e.selection, sel)
	e.selection = sel
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	if changed {
		e.notifySelection(listeners, next, sel)
	}
}

// diff computes identity-matched structural operations. Positions whose
// identity is absent from the other snapshot become removed/added; a
// common identity whose full row value changed becomes a reload at its
// new position. A moved row with unchanged content yields no operation.
func diff(prev, next rows.Snapshot) (removed, added, reload []int) {
	prevIdx := keyIndex(prev)
	nextIdx := keyIndex(next)

	for i, r := range prev {
		if _, ok := nextIdx[r.Key()]; !ok {
			removed = append(removed, i)
		}
	}
	for i, r := range next {
		pi, ok := prevIdx[r.Key()]
		if !ok {
			added = append(added, i)
			continue
		}
		if prev[pi] != r {
			reload = append(reload, i)
		}
	}
	return removed, added, reload
}

// keyIndex maps identity keys to positions, enforcing the uniqueness
// invariant: a duplicate identity within one snapshot is a programmer
// error, not a runtime condition.
func keyIndex(snap rows.Snapshot) map[string]int {
	idx := make(map[string]int, len(snap))
	for i, r := range snap {
		key := r.Key()
		if _, dup := idx[key]; dup {
			panic(fmt.Sprintf("reconcile: duplicate identity %q within one snapshot", key))
		}
		idx[key] = i
	}
	return idx
}

// IsVisible reports whether id is in the currently displayed snapshot.
// Calling it before the initial display is a contract violation.
func (e *Engine) IsVisible(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.displayed {
		panic("reconcile: IsVisible before initial display")
	}
	return e.current.ContainsID(id)
}

// Displayed reports whether the initial display has been performed.
func (e *Engine) Displayed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayed
}

// Selection returns the currently selected session IDs in display order.
func (e *Engine) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.selection)
}

// SelectedSessions resolves the current selection to full session
// values, for batch action dispatch.
func (e *Engine) SelectedSessions() []storage.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []storage.Session
	for _, id := range e.selection {
		if pos := e.current.IndexOfID(id); pos >= 0 {
			out = append(out, e.current[pos].Session)
		}
	}
	return out
}

// OnSelectionChanged registers fn to run after every completed update
// that changed the selection, with the first selected session's value,
// or nil when nothing is selected.
func (e *Engine) OnSelectionChanged(fn func(current *storage.Session)) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *Engine) notifySelection(listeners []func(*storage.Session), snap rows.Snapshot, sel []string) {
	var current *storage.Session
	if len(sel) > 0 {
		if pos := snap.IndexOfID(sel[0]); pos >= 0 {
			s := snap[pos].Session
			current = &s
		}
	}
	for _, fn := range listeners {
		fn(current)
	}
}
