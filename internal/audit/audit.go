// Package audit records every dispatched operation, grounded on
// agents/audit.go's AuditEntry/AddAuditEntry/GetAuditEntriesByTicket,
// repointed from per-ticket agent activity at per-operation dispatch
// activity.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit log record.
type Entry struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	EntityType string       `json:"entityType,omitempty"`
	EntityID  string        `json:"entityId,omitempty"`
	SessionID string        `json:"sessionId,omitempty"`
	AgentID   string        `json:"agentId,omitempty"`
	Outcome   string        `json:"outcome"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Persister is the storage contract Logger drives.
type Persister interface {
	InsertAuditEntry(ctx context.Context, e Entry) error
	ListAuditEntries(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error)
}

// Logger records audit entries, falling back to a no-op if persist is
// nil so unit tests can exercise Middleware without a database.
type Logger struct {
	persist Persister
	now     func() time.Time
}

// NewLogger constructs a Logger over persist.
func NewLogger(persist Persister) *Logger {
	return &Logger{persist: persist, now: time.Now}
}

// Record persists e, stamping its ID and timestamp. Failures are
// swallowed here deliberately: an audit-log write must never abort the
// mutation it's describing, matching agents/audit.go's fire-and-forget
// AddAuditEntry call sites.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil || l.persist == nil {
		return
	}
	e.ID = uuid.NewString()
	e.CreatedAt = l.now()
	l.persist.InsertAuditEntry(ctx, e)
}

// ForEntity returns the audit trail for a specific entity, most recent
// first, capped at limit.
func (l *Logger) ForEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	if l == nil || l.persist == nil {
		return nil, nil
	}
	return l.persist.ListAuditEntries(ctx, entityType, entityID, limit)
}
