package validate

import (
	"fmt"

	"github.com/cleodev/cleo/internal/session"
	"github.com/cleodev/cleo/internal/task"
)

// TaskInScope reports whether t falls within scope, generalizing the
// teacher's kanban/conflict.go overlap check from "do two tickets touch
// the same files" to "is this task within this session's claimed
// hierarchy".
func TaskInScope(t *task.Task, scope session.Scope, ancestry func(taskID string) []string) bool {
	switch scope.Type {
	case session.ScopeProject:
		return true
	case session.ScopeTask:
		return t.ID == scope.RootTaskID
	case session.ScopeEpic, session.ScopePhase:
		if t.ID == scope.RootTaskID {
			return true
		}
		if !scope.IncludeDescendants {
			return false
		}
		for _, ancestorID := range ancestry(t.ID) {
			if ancestorID == scope.RootTaskID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// CoherenceViolation reports a scope violation as a Violation so it can
// flow through the same reporting path as structural invariants.
func CoherenceViolation(t *task.Task, scope session.Scope) Violation {
	return Violation{
		Rule:    "session.task-not-in-scope",
		Message: fmt.Sprintf("task %s is outside the session's %s scope rooted at %s", t.ID, scope.Type, scope.RootTaskID),
	}
}
