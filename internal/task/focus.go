package task

import (
	"context"

	"github.com/cleodev/cleo/internal/cerrors"
)

// Focus tracks the single task a session has declared as its current
// point of attention, separate from Status=active (which marks claimed
// work). Grounded on the teacher's UpdateActivity/ClearActivity pair in
// internal/db/store.go, generalized from a ticket-scoped "currently
// being worked" flag into a session-scoped pointer held in memory by the
// caller (internal/session.Engine persists it on the session row).
type Focus struct {
	TaskID string
}

// FocusSet validates taskID exists, returning the resolved Task so the
// caller can stash its ID on the active session.
func (e *Engine) FocusSet(ctx context.Context, taskID string) (*Task, error) {
	return e.Show(ctx, taskID)
}

// FocusShow resolves the task currently held in a Focus, or returns a
// CodeNotFound error if it is unset.
func (e *Engine) FocusShow(ctx context.Context, f Focus) (*Task, error) {
	if f.TaskID == "" {
		return nil, cerrors.New(cerrors.CodeNotFound, "no focus task set")
	}
	return e.Show(ctx, f.TaskID)
}

// FocusClear is a no-op at the engine level; it exists so dispatch has a
// symmetric verb to pair with FocusSet. The session layer clears its own
// stored pointer.
func (e *Engine) FocusClear(ctx context.Context, f *Focus) {
	f.TaskID = ""
}

// CurrentTask resolves the task a session is actively working: its Focus
// pointer if set, otherwise the first Status=active task whose direct
// parent is scopeRootID, in the order the store lists them.
func (e *Engine) CurrentTask(ctx context.Context, scopeRootID string, f Focus) (*Task, error) {
	if f.TaskID != "" {
		return e.Show(ctx, f.TaskID)
	}
	tasks, err := e.store.ListTasks(ctx, ListFilter{Status: []Status{StatusActive}, ParentID: scopeRootID})
	if err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	if len(tasks) == 0 {
		return nil, cerrors.New(cerrors.CodeNotFound, "no active task in scope")
	}
	return tasks[0], nil
}
