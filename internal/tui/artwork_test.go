package tui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startBlocking runs a task in the slot that signals started and then
// blocks until cancelled, reporting cancellation on done.
func startBlocking(st *slotTasks, slot int, id string) (started, done chan struct{}) {
	started = make(chan struct{})
	done = make(chan struct{})
	st.Run(slot, id, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(done)
	})
	return started, done
}

func waitClosed(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSlotReuseCancelsPreviousIdentity(t *testing.T) {
	st := newSlotTasks()

	_, done := startBlocking(st, 0, "s1")

	// The same slot now shows a different session: the old fetch must
	// be cancelled so its completion cannot clobber the new row.
	st.Run(0, "s2", func(ctx context.Context) { <-ctx.Done() })
	waitClosed(t, done, "cancellation of the replaced task")

	st.CancelAll()
}

func TestSameIdentityDoesNotRestart(t *testing.T) {
	st := newSlotTasks()

	started1, done := startBlocking(st, 0, "s1")
	waitClosed(t, started1, "first task start")

	ran := make(chan struct{})
	st.Run(0, "s1", func(ctx context.Context) { close(ran) })

	select {
	case <-ran:
		t.Fatal("task restarted for an unchanged identity")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-done:
		t.Fatal("existing task was cancelled by a same-identity Run")
	default:
	}

	st.CancelAll()
	waitClosed(t, done, "CancelAll")
}

func TestCancelSlot(t *testing.T) {
	st := newSlotTasks()

	_, done := startBlocking(st, 3, "s1")
	st.CancelSlot(3)
	waitClosed(t, done, "CancelSlot")

	// Cancelling an empty slot is a no-op.
	require.NotPanics(t, func() { st.CancelSlot(99) })
}

func TestCancelAllCancelsEverything(t *testing.T) {
	st := newSlotTasks()

	_, done0 := startBlocking(st, 0, "s1")
	_, done1 := startBlocking(st, 1, "s2")

	st.CancelAll()
	waitClosed(t, done0, "slot 0")
	waitClosed(t, done1, "slot 1")

	assert.Empty(t, st.tasks)
}
