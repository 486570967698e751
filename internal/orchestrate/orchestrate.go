// Package orchestrate answers the cross-cutting questions dispatch needs
// that don't belong to a single domain: which task is ready next, what
// health the overall graph is in, and what context a spawned agent run
// should be handed. Grounded on kanban/types.go's ComputeSystemHealth/
// ComputeBlockedReason free functions, which compute derived state from
// the board rather than storing it.
package orchestrate

import (
	"context"
	"sort"

	"github.com/cleodev/cleo/internal/cerrors"
	"github.com/cleodev/cleo/internal/task"
)

// Orchestrator answers readiness, wave, and health queries over the live
// task graph.
type Orchestrator struct {
	engine *task.Engine
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(engine *task.Engine) *Orchestrator {
	return &Orchestrator{engine: engine}
}

// Status summarizes a single task: its own state plus derived readiness
// and the critical path gating it.
type Status struct {
	Task          *task.Task
	Ready         bool
	BlockedReason string
	CriticalPath  []string
}

// Status resolves id's current state and derived readiness.
func (o *Orchestrator) Status(ctx context.Context, id string) (*Status, error) {
	t, err := o.engine.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := o.engine.List(ctx, task.ListFilter{})
	if err != nil {
		return nil, err
	}
	g := task.NewGraph(all)
	byID := make(map[string]*task.Task, len(all))
	for _, tk := range all {
		byID[tk.ID] = tk
	}

	ready, reason := o.isReady(t, byID)
	return &Status{
		Task:          t,
		Ready:         ready,
		BlockedReason: reason,
		CriticalPath:  g.CriticalPath(id),
	}, nil
}

// Ready lists every pending task that is ready to start: all dependencies
// done, and no ancestor blocked. See DESIGN.md's "Open Question decision"
// for why an ancestor's blocked status propagates to its descendants'
// readiness even though nothing in the dependency graph forces it to.
func (o *Orchestrator) Ready(ctx context.Context) ([]*task.Task, error) {
	all, err := o.engine.List(ctx, task.ListFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*task.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	var out []*task.Task
	for _, t := range all {
		if t.Status != task.StatusPending {
			continue
		}
		if ready, _ := o.isReady(t, byID); ready {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (o *Orchestrator) isReady(t *task.Task, byID map[string]*task.Task) (bool, string) {
	for _, depID := range t.Depends {
		dep, ok := byID[depID]
		if !ok || dep.Status != task.StatusDone {
			return false, "depends on incomplete task " + depID
		}
	}
	cur := t
	for cur.ParentID != "" {
		parent, ok := byID[cur.ParentID]
		if !ok {
			break
		}
		if parent.Status == task.StatusBlocked {
			return false, "ancestor " + parent.ID + " is blocked"
		}
		cur = parent
	}
	return true, ""
}

// Next returns the single highest-priority ready task, or nil if none.
func (o *Orchestrator) Next(ctx context.Context) (*task.Task, error) {
	ready, err := o.Ready(ctx)
	if err != nil {
		return nil, err
	}
	if len(ready) == 0 {
		return nil, nil
	}
	sort.Slice(ready, func(i, j int) bool {
		pi, pj := priorityRank(ready[i].Priority), priorityRank(ready[j].Priority)
		if pi != pj {
			return pi > pj
		}
		return ready[i].ID < ready[j].ID
	})
	return ready[0], nil
}

func priorityRank(p task.Priority) int {
	switch p {
	case task.PriorityCritical:
		return 3
	case task.PriorityHigh:
		return 2
	case task.PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Waves returns the full execution-wave grouping of every non-terminal
// task, for a caller (e.g. a CLI "plan" verb) that wants to see the whole
// schedule rather than just the next task.
func (o *Orchestrator) Waves(ctx context.Context) ([][]string, error) {
	all, err := o.engine.List(ctx, task.ListFilter{})
	if err != nil {
		return nil, err
	}
	var live []*task.Task
	for _, t := range all {
		if t.Status != task.StatusDone && t.Status != task.StatusCancelled {
			live = append(live, t)
		}
	}
	waves, err := task.NewGraph(live).ExecutionWaves()
	if err != nil {
		return nil, cerrors.New(cerrors.CodeCycle, err.Error())
	}
	return waves, nil
}

// Validate runs the whole-graph dependency-cycle check, used by
// dispatch's "task.validate" operation.
func (o *Orchestrator) Validate(ctx context.Context) ([]string, error) {
	all, err := o.engine.List(ctx, task.ListFilter{})
	if err != nil {
		return nil, err
	}
	g := task.NewGraph(all)
	if cyc := g.DetectCycles(); cyc != nil {
		return []string{"dependency cycle detected: " + joinStrings(cyc)}, nil
	}
	return nil, nil
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " -> "
		}
		out += s
	}
	return out
}
