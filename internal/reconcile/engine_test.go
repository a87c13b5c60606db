package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/sessiondeck/internal/rows"
	"github.com/runger/sessiondeck/internal/storage"
)

// recordingSink captures applied batches; failWith simulates a
// presentation layer rejecting an update.
type recordingSink struct {
	applied  []appliedUpdate
	failWith error
}

type appliedUpdate struct {
	next  rows.Snapshot
	batch Batch
}

func (s *recordingSink) ApplyBatch(next rows.Snapshot, batch Batch) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.applied = append(s.applied, appliedUpdate{next: next, batch: batch})
	return nil
}

func (s *recordingSink) last(t *testing.T) appliedUpdate {
	t.Helper()
	require.NotEmpty(t, s.applied)
	return s.applied[len(s.applied)-1]
}

// fakeSource is a static SnapshotSource.
type fakeSource struct {
	pair    rows.Pair
	cleared bool
}

func (f *fakeSource) Latest() rows.Pair { return f.pair }

func (f *fakeSource) CanDisplay(id string) bool { return f.pair.All.ContainsID(id) }

func (f *fakeSource) ClearFilter() {
	f.cleared = true
	f.pair.Filtered = f.pair.All
}

func newDisplayedEngine(t *testing.T, initial rows.Snapshot) (*Engine, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	src := &fakeSource{pair: rows.Pair{All: initial, Filtered: initial}}
	e := NewEngine(sink, src, nil)
	e.PerformInitialDisplay(false)
	require.True(t, e.Displayed())
	return e, sink
}

// specSnapshot is the worked example layout:
// [Header(H1), Item(S1), Item(S2), Header(H2), Item(S3)]
func specSnapshot() rows.Snapshot {
	return snap(header("H1"), item("s1"), item("s2"), header("H2"), item("s3"))
}

func TestInitialDisplayAcceptsVerbatim(t *testing.T) {
	_, sink := newDisplayedEngine(t, specSnapshot())

	require.Len(t, sink.applied, 1)
	batch := sink.applied[0].batch
	assert.True(t, batch.Initial)
	assert.Empty(t, batch.Removed)
	assert.Empty(t, batch.Added)
	assert.Empty(t, batch.Reload)
	assert.Equal(t, []string{"s1"}, batch.Selection, "default selection is the first item row")
}

func TestInitialDisplayTwicePanics(t *testing.T) {
	e, _ := newDisplayedEngine(t, specSnapshot())
	assert.Panics(t, func() { e.PerformInitialDisplay(false) })
}

func TestApplyBeforeInitialDisplayPanics(t *testing.T) {
	e := NewEngine(&recordingSink{}, &fakeSource{}, nil)
	assert.Panics(t, func() { e.Apply(specSnapshot(), false, "") })
	assert.Panics(t, func() { e.IsVisible("s1") })
}

func TestApplyIdenticalSnapshotIsNoOp(t *testing.T) {
	e, sink := newDisplayedEngine(t, specSnapshot())
	before := len(sink.applied)

	e.Apply(specSnapshot(), false, "")
	assert.Len(t, sink.applied, before, "identical snapshot must produce no batch")
}

func TestApplyRemoveAndAdd(t *testing.T) {
	// The worked example: S2 removed, S4 added, everything else
	// untouched, selection on S1 unaffected.
	e, sink := newDisplayedEngine(t, specSnapshot())
	e.RequestSelection("s1")

	next := snap(header("H1"), item("s1"), header("H2"), item("s3"), item("s4"))
	e.Apply(next, true, "")

	last := sink.last(t)
	assert.Equal(t, []int{2}, last.batch.Removed, "position of S2 in previous")
	assert.Equal(t, []int{4}, last.batch.Added, "position of S4 in new")
	assert.Empty(t, last.batch.Reload)
	assert.Equal(t, []string{"s1"}, last.batch.Selection)
	assert.True(t, last.batch.Animated)
	assert.True(t, e.IsVisible("s4"))
	assert.False(t, e.IsVisible("s2"))
}

func TestApplySelectionFallback(t *testing.T) {
	// Second worked example: sole selected S2 removed, S1 immediately
	// preceding and still present.
	e, sink := newDisplayedEngine(t, specSnapshot())
	e.RequestSelection("s2")

	next := snap(header("H1"), item("s1"), header("H2"), item("s3"))
	e.Apply(next, false, "")

	assert.Equal(t, []string{"s1"}, sink.last(t).batch.Selection)
}

func TestApplyContentChangeIsReload(t *testing.T) {
	e, sink := newDisplayedEngine(t, specSnapshot())

	next := specSnapshot()
	next[2].Session.Watched = true // S2 toggles watched
	e.Apply(next, false, "")

	last := sink.last(t)
	assert.Empty(t, last.batch.Removed)
	assert.Empty(t, last.batch.Added)
	assert.Equal(t, []int{2}, last.batch.Reload)
}

func TestApplyPureReorderEmitsNoOperations(t *testing.T) {
	e, sink := newDisplayedEngine(t, snap(item("s1"), item("s2")))

	e.Apply(snap(item("s2"), item("s1")), false, "")

	last := sink.last(t)
	assert.True(t, last.batch.IsEmpty(), "a move with unchanged content is neither reload nor remove/add")
	// State still advances to the new order.
	assert.Equal(t, "s2", last.next[0].Session.ID)
}

func TestApplyReloadNeverAlsoRemovedOrAdded(t *testing.T) {
	e, sink := newDisplayedEngine(t, specSnapshot())

	next := snap(header("H1"), item("s1"), item("s2"), header("H2"), item("s4"))
	next[2].Session.Live = true // s2 changed, s3 replaced by s4
	e.Apply(next, false, "")

	last := sink.last(t)
	assert.Equal(t, []int{4}, last.batch.Removed)
	assert.Equal(t, []int{4}, last.batch.Added)
	assert.Equal(t, []int{2}, last.batch.Reload)
}

func TestApplyOverrideSelection(t *testing.T) {
	e, sink := newDisplayedEngine(t, specSnapshot())

	e.Apply(specSnapshot(), false, "s3")
	assert.Equal(t, []string{"s3"}, sink.last(t).batch.Selection)
	assert.Equal(t, []string{"s3"}, e.Selection())
}

func TestDuplicateIdentityPanics(t *testing.T) {
	e, _ := newDisplayedEngine(t, specSnapshot())
	assert.Panics(t, func() {
		e.Apply(snap(item("s1"), item("s1")), false, "")
	})
}

func TestFailedApplyDoesNotAdvanceState(t *testing.T) {
	e, sink := newDisplayedEngine(t, specSnapshot())

	sink.failWith = errors.New("presentation rejected batch")
	next := snap(header("H1"), item("s1"), header("H2"), item("s3"))
	e.Apply(next, false, "")
	assert.True(t, e.IsVisible("s2"), "rejected batch must leave previous state in place")

	// The retry re-diffs against the consistent baseline.
	sink.failWith = nil
	e.Apply(next, false, "")
	assert.Equal(t, []int{2}, sink.last(t).batch.Removed)
	assert.False(t, e.IsVisible("s2"))
}

func TestDeferredSelectionSatisfiedByFilteredSnapshot(t *testing.T) {
	sink := &recordingSink{}
	src := &fakeSource{pair: rows.Pair{All: specSnapshot(), Filtered: specSnapshot()}}
	e := NewEngine(sink, src, nil)

	e.RequestSelection("s3")
	e.PerformInitialDisplay(false)

	assert.False(t, src.cleared)
	assert.Equal(t, []string{"s3"}, sink.last(t).batch.Selection)
}

func TestDeferredSelectionDiscardsFilter(t *testing.T) {
	// s2 is filtered out but present in the library: the engine must
	// drop the filter and display the unfiltered snapshot.
	all := specSnapshot()
	filtered := snap(header("H1"), item("s1"))
	sink := &recordingSink{}
	src := &fakeSource{pair: rows.Pair{All: all, Filtered: filtered}}
	e := NewEngine(sink, src, nil)

	e.RequestSelection("s2")
	e.PerformInitialDisplay(false)

	assert.True(t, src.cleared)
	last := sink.last(t)
	assert.True(t, last.next.Equal(all))
	assert.Equal(t, []string{"s2"}, last.batch.Selection)
}

func TestDeferredSelectionUnknownIdentityFallsBack(t *testing.T) {
	sink := &recordingSink{}
	src := &fakeSource{pair: rows.Pair{All: specSnapshot(), Filtered: specSnapshot()}}
	e := NewEngine(sink, src, nil)

	e.RequestSelection("missing")
	e.PerformInitialDisplay(false)

	assert.False(t, src.cleared)
	assert.Equal(t, []string{"s1"}, sink.last(t).batch.Selection)
}

func TestSelectionChangedNotification(t *testing.T) {
	sink := &recordingSink{}
	src := &fakeSource{pair: rows.Pair{All: specSnapshot(), Filtered: specSnapshot()}}
	e := NewEngine(sink, src, nil)

	var notified []*storage.Session
	e.OnSelectionChanged(func(s *storage.Session) { notified = append(notified, s) })

	e.PerformInitialDisplay(false)
	require.Len(t, notified, 1)
	require.NotNil(t, notified[0])
	assert.Equal(t, "s1", notified[0].ID)

	e.RequestSelection("s3")
	require.Len(t, notified, 2)
	assert.Equal(t, "s3", notified[1].ID)

	// Reselecting the same row changes nothing and stays silent.
	e.RequestSelection("s3")
	assert.Len(t, notified, 2)

	// Everything selectable disappears.
	e.Apply(snap(header("H1")), false, "")
	require.Len(t, notified, 3)
	assert.Nil(t, notified[2])
}

func TestSelectedSessions(t *testing.T) {
	e, _ := newDisplayedEngine(t, specSnapshot())
	e.RequestSelection("s2")

	selected := e.SelectedSessions()
	require.Len(t, selected, 1)
	assert.Equal(t, "s2", selected[0].ID)
}
