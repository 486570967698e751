package store

import (
	"context"
	"fmt"

	"github.com/cleodev/cleo/internal/audit"
)

// AuditStore is the concrete audit.Persister and audit.TokenUsagePersister
// implementation, backed by the audit_logs and token_usage tables.
type AuditStore struct {
	db *DB
}

// NewAuditStore wraps db.
func NewAuditStore(db *DB) *AuditStore { return &AuditStore{db: db} }

func (s *AuditStore) InsertAuditEntry(ctx context.Context, e audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, operation, entity_type, entity_id, session_id, agent_id, outcome, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.Operation, nullable(e.EntityType), nullable(e.EntityID), nullable(e.SessionID), nullable(e.AgentID),
		e.Outcome, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditStore) ListAuditEntries(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, entity_type, entity_id, session_id, agent_id, outcome, created_at
		FROM audit_logs WHERE entity_type = ? AND entity_id = ? ORDER BY created_at DESC LIMIT ?`,
		entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.Operation, &e.EntityType, &e.EntityID, &e.SessionID, &e.AgentID, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *AuditStore) InsertTokenUsage(ctx context.Context, e audit.TokenUsageEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_usage (id, session_id, amount, kind, created_at) VALUES (?,?,?,?,?)`,
		e.ID, e.SessionID, e.Amount, string(e.Kind), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert token usage: %w", err)
	}
	return nil
}

func (s *AuditStore) SumTokenUsage(ctx context.Context, sessionID string) (int, error) {
	var total int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM token_usage WHERE session_id = ?`, sessionID)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum token usage: %w", err)
	}
	return total, nil
}
