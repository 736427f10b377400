package submit

import (
	"context"
	"sync"
)

// Task is a handle on one in-flight submission.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	result State
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{done: make(chan struct{}), cancel: cancel}
}

// Done is closed when the submission has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel abandons the request. The task finishes Failed unless it already
// completed.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (State, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Result returns the final state. It is only meaningful after Done is closed.
func (t *Task) Result() State {
	select {
	case <-t.done:
		return t.result
	default:
		return State{Phase: PhasePending}
	}
}

func (t *Task) complete(s State) {
	t.once.Do(func() {
		t.result = s
		close(t.done)
		t.cancel()
	})
}
