package task

import (
	"context"
	"time"
)

// Storage is the persistence contract the task engine drives. A concrete
// SQLite implementation lives in internal/store; engine.go depends only on
// this interface so it can be exercised against a fake in tests. Shape is
// grounded on the pack's beads internal/storage/storage.go Storage/
// Transaction split: single-row writes may call Storage directly, while
// multi-step writes (e.g. complete-and-cascade) go through a Transaction
// so the engine can compose them as one atomic unit.
type Storage interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, filter ListFilter) ([]*Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error

	ArchiveTask(ctx context.Context, t *Task, source ArchiveSource, at time.Time) error
	ListArchived(ctx context.Context, filter ListFilter) ([]*Archived, error)

	Children(ctx context.Context, parentID string) ([]*Task, error)
	Dependents(ctx context.Context, id string) ([]*Task, error)

	NextSequence(ctx context.Context, prefix string) (string, error)

	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error
}

// Transaction is the write-side subset of Storage available inside
// RunInTransaction. Per the beads contract: returning nil commits,
// returning an error (or panicking) rolls back.
type Transaction interface {
	CreateTask(ctx context.Context, t *Task) error
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error
	ArchiveTask(ctx context.Context, t *Task, source ArchiveSource, at time.Time) error
	GetTask(ctx context.Context, id string) (*Task, error)
	Children(ctx context.Context, parentID string) ([]*Task, error)
}

// ListFilter narrows ListTasks/ListArchived. Zero value lists everything.
type ListFilter struct {
	Status   []Status
	Type     []Type
	ParentID string
	Phase    string
	Label    string
}
