// Package validate holds CLEO's pure invariant checks: dispatch param
// schemas, the cross-entity coherence rules from spec.md §8, and the
// compliance scoring that feeds the audit trail. No teacher equivalent
// exists for a formal rule engine — these are built directly from the
// invariants in the store/engine idiom the teacher already uses (small
// pure functions called from the same places internal/db/store.go calls
// addHistory/scanTicket).
package validate

import (
	"fmt"

	"github.com/cleodev/cleo/internal/task"
)

// Violation is one broken invariant, carrying enough context for a
// caller to report it without re-deriving the check.
type Violation struct {
	Rule    string
	Message string
}

// String satisfies fmt.Stringer so violations read naturally in CLI
// output and audit messages.
func (v Violation) String() string { return fmt.Sprintf("[%s] %s", v.Rule, v.Message) }

// TaskInvariants checks the structural rules a Task must always satisfy,
// independent of any particular mutation that produced it.
func TaskInvariants(t *task.Task, parentDepth int) []Violation {
	var out []Violation

	if t.Title == "" {
		out = append(out, Violation{"task.title-required", "task has no title"})
	}
	if t.Type == task.TypeEpic && t.ParentID != "" {
		out = append(out, Violation{"task.epic-no-parent", "an epic cannot have a parent task"})
	}
	if parentDepth > task.MaxDepth {
		out = append(out, Violation{"task.max-depth", fmt.Sprintf("task nests %d levels deep, exceeding the max of %d", parentDepth, task.MaxDepth)})
	}
	for _, dep := range t.Depends {
		if dep == t.ID {
			out = append(out, Violation{"task.self-dependency", "task depends on itself"})
		}
	}
	if t.Status == task.StatusDone && !t.Verification.Passed(task.Gate) && t.Type != task.TypeEpic {
		out = append(out, Violation{"task.done-without-gates", "task is marked done but has not passed all verification gates"})
	}
	if t.Status == task.StatusCancelled && t.CancelledAt == nil {
		out = append(out, Violation{"task.cancelled-without-timestamp", "task is cancelled but has no cancelledAt timestamp"})
	}
	return out
}

// GraphInvariants checks whole-graph properties: no cycles, no dangling
// parent/dependency references.
func GraphInvariants(tasks []*task.Task) []Violation {
	var out []Violation
	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	g := task.NewGraph(tasks)
	if cyc := g.DetectCycles(); cyc != nil {
		out = append(out, Violation{"graph.cycle", fmt.Sprintf("dependency cycle: %v", cyc)})
	}

	for _, t := range tasks {
		if t.ParentID != "" {
			if _, ok := byID[t.ParentID]; !ok {
				out = append(out, Violation{"graph.dangling-parent", fmt.Sprintf("task %s references missing parent %s", t.ID, t.ParentID)})
			}
		}
		for _, dep := range t.Depends {
			if _, ok := byID[dep]; !ok {
				out = append(out, Violation{"graph.dangling-dependency", fmt.Sprintf("task %s depends on missing task %s", t.ID, dep)})
			}
		}
	}
	return out
}
