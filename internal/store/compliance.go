package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cleodev/cleo/internal/validate"
)

// ComplianceStore implements validate.CompliancePersister over the
// compliance table.
type ComplianceStore struct {
	db *DB
}

// NewComplianceStore wraps db.
func NewComplianceStore(db *DB) *ComplianceStore { return &ComplianceStore{db: db} }

func (s *ComplianceStore) InsertCompliance(ctx context.Context, r validate.Record) error {
	violations, _ := json.Marshal(r.Violations)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance (id, entity_type, entity_id, score, violations_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.EntityType, r.EntityID, r.Score, string(violations), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert compliance record: %w", err)
	}
	return nil
}

func (s *ComplianceStore) LatestCompliance(ctx context.Context, entityType, entityID string) (*validate.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_type, entity_id, score, violations_json, created_at
		FROM compliance WHERE entity_type = ? AND entity_id = ? ORDER BY created_at DESC LIMIT 1
	`, entityType, entityID)

	var r validate.Record
	var violations string
	err := row.Scan(&r.ID, &r.EntityType, &r.EntityID, &r.Score, &violations, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest compliance: %w", err)
	}
	json.Unmarshal([]byte(violations), &r.Violations)
	return &r, nil
}
