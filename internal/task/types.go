// Package task implements the persistent task graph: CRUD, hierarchy,
// dependency waves, cascade completion, and the verification gate machine.
package task

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusBlocked   Status = "blocked"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Priority orders tasks within a wave.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Type classifies the kind of work unit.
type Type string

const (
	TypeEpic    Type = "epic"
	TypeTask    Type = "task"
	TypeSubtask Type = "subtask"
	TypeBug     Type = "bug"
)

// Size is a rough effort estimate.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// EpicLifecycle tracks the coarse review state of an epic, separate from
// the per-stage RCASD-ICR pipeline tracked in internal/lifecycle.
type EpicLifecycle string

const (
	EpicLifecycleActive EpicLifecycle = "active"
	EpicLifecycleReview EpicLifecycle = "review"
	EpicLifecycleDone   EpicLifecycle = "done"
)

// ArchiveSource records why a task was moved into the archive table.
type ArchiveSource string

const (
	ArchiveRetention    ArchiveSource = "retention"
	ArchivePhaseTrigger ArchiveSource = "phase-trigger"
	ArchiveManual       ArchiveSource = "manual"
)

// Gate is the ordered verification checklist. Order matters: a gate set to
// false resets every gate after it in this slice back to untouched.
var Gate = []string{
	"implemented",
	"testsPassed",
	"qaPassed",
	"cleanupDone",
	"securityPassed",
	"documented",
}

// GateValue is a tri-valued flag: nil means untouched.
type GateValue *bool

// TriTrue, TriFalse construct gate values; TriUnset is the nil zero value.
func TriTrue() GateValue  { v := true; return &v }
func TriFalse() GateValue { v := false; return &v }

// FailureEntry records one failing gate transition.
type FailureEntry struct {
	Gate      string    `json:"gate"`
	Agent     string    `json:"agent"`
	Round     int       `json:"round"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Verification is the embedded per-task gate record described in spec §3.
type Verification struct {
	Implemented    GateValue      `json:"implemented"`
	TestsPassed    GateValue      `json:"testsPassed"`
	QAPassed       GateValue      `json:"qaPassed"`
	CleanupDone    GateValue      `json:"cleanupDone"`
	SecurityPassed GateValue      `json:"securityPassed"`
	Documented     GateValue      `json:"documented"`
	Round          int            `json:"round"`
	LastAgent      string         `json:"lastAgent,omitempty"`
	LastUpdated    time.Time      `json:"lastUpdated,omitempty"`
	FailureLog     []FailureEntry `json:"failureLog,omitempty"`
}

// gateValue returns the gate by name in the fixed order, or nil if unknown.
func (v *Verification) gateValue(name string) *GateValue {
	switch name {
	case "implemented":
		return &v.Implemented
	case "testsPassed":
		return &v.TestsPassed
	case "qaPassed":
		return &v.QAPassed
	case "cleanupDone":
		return &v.CleanupDone
	case "securityPassed":
		return &v.SecurityPassed
	case "documented":
		return &v.Documented
	default:
		return nil
	}
}

// Passed derives verification.passed from the configured required gates.
func (v *Verification) Passed(requiredGates []string) bool {
	for _, g := range requiredGates {
		gv := v.gateValue(g)
		if gv == nil || *gv == nil || !**gv {
			return false
		}
	}
	return true
}

// SetGate applies a gate transition, resetting downstream gates to
// untouched when the new value is false, and appending a failure-log entry
// in that case. It does not enforce the self-approval or round-cap rules —
// those are checked by the engine before calling SetGate so that store-level
// writes always commit a rule-valid state.
func (v *Verification) SetGate(name string, value bool, agent string, note string, now time.Time) error {
	idx := -1
	for i, g := range Gate {
		if g == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("unknown gate %q", name)
	}
	gv := v.gateValue(name)
	if value {
		*gv = TriTrue()
	} else {
		*gv = TriFalse()
		for _, downstream := range Gate[idx+1:] {
			*v.gateValue(downstream) = nil
		}
		v.FailureLog = append(v.FailureLog, FailureEntry{
			Gate: name, Agent: agent, Round: v.Round, Note: note, CreatedAt: now,
		})
	}
	v.LastAgent = agent
	v.LastUpdated = now
	return nil
}

// Task is the central unit of work (spec §3).
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Type     Type     `json:"type"`
	Phase    string   `json:"phase,omitempty"`

	ParentID string   `json:"parentId,omitempty"`
	Depends  []string `json:"depends,omitempty"`

	Labels     []string `json:"labels,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Files      []string `json:"files,omitempty"`
	Acceptance []string `json:"acceptance,omitempty"`
	Size       Size     `json:"size,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	BlockedBy string `json:"blockedBy,omitempty"`

	// CreatedBy is the agent identifier that created this task, stamped
	// by Add. SetGate compares a gate-setting agent against it to refuse
	// self-approval (spec.md §4.2, E_CIRCULAR_VALIDATION).
	CreatedBy string `json:"createdBy,omitempty"`

	Verification Verification `json:"verification"`

	EpicLifecycle EpicLifecycle `json:"epicLifecycle,omitempty"`

	Tags []Tag `json:"tags,omitempty"`
}

// TagType categorizes a Tag.
type TagType string

const (
	TagTypeEpic       TagType = "epic"
	TagTypeTheme      TagType = "theme"
	TagTypeComponent  TagType = "component"
	TagTypeInitiative TagType = "initiative"
	TagTypeGeneric    TagType = "tag"
)

// Tag is a flexible N:M categorization axis, adapted from the teacher's
// tags/ticket_tags junction tables (kanban/types.go Tag).
type Tag struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        TagType `json:"type"`
	Color       string  `json:"color,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Archived wraps a Task with archive provenance.
type Archived struct {
	Task
	ArchiveSource ArchiveSource `json:"archiveSource"`
	ArchivedAt    time.Time     `json:"archivedAt"`
}

// IsEpic reports whether t is an epic (the only type that carries a
// derived, rather than gate-backed, verification state).
func (t *Task) IsEpic() bool { return t.Type == TypeEpic }
