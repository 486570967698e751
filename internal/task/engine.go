package task

import (
	"context"
	"strings"
	"time"

	"github.com/cleodev/cleo/internal/audit"
	"github.com/cleodev/cleo/internal/cerrors"
)

// MaxDepth is the maximum parent-chain depth a task may sit at (spec §3).
const MaxDepth = 4

// Engine is the task-graph façade every dispatch handler calls into. It
// owns no locking itself — callers are expected to run through the
// store's Accessor.WithLock, mirroring the teacher's internal/db/store.go
// where every mutating method assumes the caller already holds the
// board's mutex.
type Engine struct {
	store Storage
	now   func() time.Time
	audit *audit.Logger
}

// NewEngine constructs an Engine over the given Storage.
func NewEngine(s Storage) *Engine {
	return &Engine{store: s, now: time.Now}
}

// SetAuditLogger wires the audit log StartTask's implicit active-task
// demotion records to (spec.md §4.2/§8 scenario S2). Optional: an Engine
// without one still enforces the active-task invariant, it just skips
// the audit row.
func (e *Engine) SetAuditLogger(l *audit.Logger) {
	e.audit = l
}

// Add creates a new task under optional parent/depends constraints.
func (e *Engine) Add(ctx context.Context, t *Task) (*Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "title is required")
	}
	if t.Type == "" {
		t.Type = TypeTask
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusPending
	}

	now := e.now()
	id, err := e.store.NextSequence(ctx, "T")
	if err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now

	if t.ParentID != "" {
		depth, err := e.depthOf(ctx, t.ParentID)
		if err != nil {
			return nil, err
		}
		if depth+1 > MaxDepth {
			return nil, cerrors.WithFix(cerrors.CodeMaxDepth,
				"parent chain would exceed max depth",
				"attach to a shallower parent or flatten the hierarchy")
		}
	}

	if len(t.Depends) > 0 {
		if err := e.checkNoCycle(ctx, t.ID, t.Depends); err != nil {
			return nil, err
		}
	}

	var created *Task
	err = e.store.RunInTransaction(ctx, func(tx Transaction) error {
		if err := tx.CreateTask(ctx, t); err != nil {
			return cerrors.New(cerrors.CodeInternal, err.Error())
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Show returns a single task by ID.
func (e *Engine) Show(ctx context.Context, id string) (*Task, error) {
	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, cerrors.NotFound("task", id)
	}
	return t, nil
}

// Find is an alias of Show kept for CLI-verb parity with the spec's
// operation names ("find" vs "show" both resolve a single task).
func (e *Engine) Find(ctx context.Context, id string) (*Task, error) { return e.Show(ctx, id) }

// List returns tasks matching filter.
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]*Task, error) {
	tasks, err := e.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return tasks, nil
}

// Update applies a partial field mutation via mutate, re-validating the
// depends list if it changed.
func (e *Engine) Update(ctx context.Context, id string, mutate func(t *Task)) (*Task, error) {
	t, err := e.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	before := append([]string{}, t.Depends...)
	mutate(t)
	t.UpdatedAt = e.now()

	if !stringsEqualUnordered(before, t.Depends) {
		if err := e.checkNoCycle(ctx, t.ID, t.Depends); err != nil {
			return nil, err
		}
	}

	if err := e.store.UpdateTask(ctx, t); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return t, nil
}

// Complete marks a task done, cascading a re-evaluation of anything that
// depended on it (the dispatch/orchestrate layer re-derives readiness;
// Complete itself only flips status and timestamp).
func (e *Engine) Complete(ctx context.Context, id string) (*Task, error) {
	return e.Update(ctx, id, func(t *Task) {
		t.Status = StatusDone
		now := e.now()
		t.CompletedAt = &now
	})
}

// Cancel marks a task cancelled.
func (e *Engine) Cancel(ctx context.Context, id string) (*Task, error) {
	return e.Update(ctx, id, func(t *Task) {
		t.Status = StatusCancelled
		now := e.now()
		t.CancelledAt = &now
	})
}

// Uncancel reverts a cancelled task back to pending.
func (e *Engine) Uncancel(ctx context.Context, id string) (*Task, error) {
	t, err := e.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusCancelled {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "task is not cancelled")
	}
	return e.Update(ctx, id, func(t *Task) {
		t.Status = StatusPending
		t.CancelledAt = nil
	})
}

// Delete removes a task outright. Refuses if it has children: a caller
// must re-parent or delete them first.
func (e *Engine) Delete(ctx context.Context, id string) error {
	children, err := e.store.Children(ctx, id)
	if err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	if len(children) > 0 {
		return cerrors.WithFix(cerrors.CodeHasChildren,
			"task has children and cannot be deleted",
			"delete or re-parent the children first")
	}
	if err := e.store.DeleteTask(ctx, id); err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return nil
}

// Archive moves a done or cancelled task into the archive table.
func (e *Engine) Archive(ctx context.Context, id string, source ArchiveSource) error {
	t, err := e.Show(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != StatusDone && t.Status != StatusCancelled {
		return cerrors.New(cerrors.CodeInvalidInput, "only done or cancelled tasks may be archived")
	}
	return e.store.RunInTransaction(ctx, func(tx Transaction) error {
		if err := tx.ArchiveTask(ctx, t, source, e.now()); err != nil {
			return cerrors.New(cerrors.CodeInternal, err.Error())
		}
		return tx.DeleteTask(ctx, id)
	})
}

// StartTask transitions a pending task to active, claiming it for the
// calling session/agent. Refuses if the task is already active (claimed).
// Enforces the active-task invariant (spec.md §4.2, §8.3: at most one
// active task system-wide): any other task currently active is demoted
// back to pending in the same transaction that activates id, and each
// demotion is recorded in the audit log (spec.md §8 scenario S2).
func (e *Engine) StartTask(ctx context.Context, id string) (*Task, error) {
	t, err := e.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusActive {
		return nil, cerrors.New(cerrors.CodeTaskClaimed, "task is already active")
	}
	if t.Status != StatusPending {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "only a pending task can be started")
	}

	others, err := e.store.ListTasks(ctx, ListFilter{Status: []Status{StatusActive}})
	if err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}

	now := e.now()
	t.Status = StatusActive
	t.UpdatedAt = now

	err = e.store.RunInTransaction(ctx, func(tx Transaction) error {
		for _, other := range others {
			if other.ID == t.ID {
				continue
			}
			other.Status = StatusPending
			other.UpdatedAt = now
			if err := tx.UpdateTask(ctx, other); err != nil {
				return cerrors.New(cerrors.CodeInternal, err.Error())
			}
			e.audit.Record(ctx, audit.Entry{
				Operation:  "task.start.demote",
				EntityType: "task",
				EntityID:   other.ID,
				Outcome:    "demoted to pending by start of " + t.ID,
				CreatedAt:  now,
			})
		}
		if err := tx.UpdateTask(ctx, t); err != nil {
			return cerrors.New(cerrors.CodeInternal, err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// StopTask reverts an active task back to pending, releasing the claim
// without marking it done.
func (e *Engine) StopTask(ctx context.Context, id string) (*Task, error) {
	return e.Update(ctx, id, func(t *Task) {
		if t.Status == StatusActive {
			t.Status = StatusPending
		}
	})
}

// depthOf walks the parent chain and returns its length.
func (e *Engine) depthOf(ctx context.Context, id string) (int, error) {
	depth := 0
	cur := id
	seen := map[string]bool{}
	for cur != "" {
		if seen[cur] {
			return 0, cerrors.New(cerrors.CodeCycle, "parent chain contains a cycle")
		}
		seen[cur] = true
		t, err := e.store.GetTask(ctx, cur)
		if err != nil {
			return 0, cerrors.NotFound("task", cur)
		}
		depth++
		cur = t.ParentID
	}
	return depth, nil
}

// checkNoCycle verifies adding id -> depends edges keeps the whole graph
// acyclic, by materializing every task and running Graph.DetectCycles
// against the proposed edge set.
func (e *Engine) checkNoCycle(ctx context.Context, id string, depends []string) error {
	all, err := e.store.ListTasks(ctx, ListFilter{})
	if err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	found := false
	for _, t := range all {
		if t.ID == id {
			t.Depends = depends
			found = true
		}
	}
	if !found {
		all = append(all, &Task{ID: id, Depends: depends})
	}
	if cyc := NewGraph(all).DetectCycles(); cyc != nil {
		return cerrors.WithFix(cerrors.CodeCycle,
			"dependency would create a cycle",
			"remove one of the conflicting depends entries")
	}
	return nil
}

func stringsEqualUnordered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	count := map[string]int{}
	for _, s := range a {
		count[s]++
	}
	for _, s := range b {
		count[s]--
	}
	for _, n := range count {
		if n != 0 {
			return false
		}
	}
	return true
}
