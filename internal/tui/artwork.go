package tui

import (
	"context"
	"sync"
)

// slotTasks tracks the per-row auxiliary work (artwork and description
// fetches) keyed by visual slot. When a slot is reused for a different
// identity, the previous task's context is cancelled so a stale
// completion can never overwrite unrelated content.
type slotTasks struct {
	mu    sync.Mutex
	tasks map[int]slotTask
}

type slotTask struct {
	id     string
	cancel context.CancelFunc
}

func newSlotTasks() *slotTasks {
	return &slotTasks{tasks: make(map[int]slotTask)}
}

// Run starts work for identity id in the given slot. If the slot
// already runs work for the same identity, the existing task is kept
// and work is not started. If it runs work for a different identity,
// that task is cancelled first.
func (st *slotTasks) Run(slot int, id string, work func(ctx context.Context)) {
	st.mu.Lock()
	if existing, ok := st.tasks[slot]; ok {
		if existing.id == id {
			st.mu.Unlock()
			return
		}
		existing.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	st.tasks[slot] = slotTask{id: id, cancel: cancel}
	st.mu.Unlock()

	go work(ctx)
}

// CancelSlot cancels whatever runs in the given slot.
func (st *slotTasks) CancelSlot(slot int) {
	st.mu.Lock()
	task, ok := st.tasks[slot]
	if ok {
		delete(st.tasks, slot)
	}
	st.mu.Unlock()

	if ok {
		task.cancel()
	}
}

// CancelAll cancels every running task.
func (st *slotTasks) CancelAll() {
	st.mu.Lock()
	tasks := st.tasks
	st.tasks = make(map[int]slotTask)
	st.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
}
