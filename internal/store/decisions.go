package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cleodev/cleo/internal/lifecycle"
)

// DecisionStore is the concrete lifecycle.DecisionPersister implementation.
type DecisionStore struct {
	db       *DB
	accessor *Accessor
}

// NewDecisionStore wraps db.
func NewDecisionStore(db *DB) *DecisionStore {
	return &DecisionStore{db: db, accessor: NewAccessor(db)}
}

func (s *DecisionStore) CreateDecision(ctx context.Context, d *lifecycle.Decision) error {
	consequences, _ := json.Marshal(d.Consequences)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, pipeline_id, status, supersedes_id, superseded_by_id, content, context, rationale,
			consequences_json, accepted_by, accepted_at, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, nullable(d.PipelineID), string(d.Status), nullable(d.SupersedesID), nullable(d.SupersededByID),
		d.Content, d.Context, d.Rationale, string(consequences),
		nullable(d.AcceptedBy), nullableTime(d.AcceptedAt), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (s *DecisionStore) GetDecision(ctx context.Context, id string) (*lifecycle.Decision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pipeline_id, status, supersedes_id, superseded_by_id, content, context, rationale,
			consequences_json, accepted_by, accepted_at, created_at, updated_at
		FROM decisions WHERE id = ?`, id)
	return scanDecision(row)
}

func scanDecision(row *sql.Row) (*lifecycle.Decision, error) {
	d := &lifecycle.Decision{}
	var pipelineID, supersedesID, supersededByID, acceptedBy sql.NullString
	var acceptedAt sql.NullTime
	var consequencesJSON string

	if err := row.Scan(&d.ID, &pipelineID, &d.Status, &supersedesID, &supersededByID, &d.Content, &d.Context, &d.Rationale,
		&consequencesJSON, &acceptedBy, &acceptedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan decision: %w", err)
	}
	d.PipelineID = pipelineID.String
	d.SupersedesID = supersedesID.String
	d.SupersededByID = supersededByID.String
	d.AcceptedBy = acceptedBy.String
	if acceptedAt.Valid {
		d.AcceptedAt = &acceptedAt.Time
	}
	json.Unmarshal([]byte(consequencesJSON), &d.Consequences)
	return d, nil
}

func (s *DecisionStore) UpdateDecision(ctx context.Context, d *lifecycle.Decision) error {
	consequences, _ := json.Marshal(d.Consequences)
	_, err := s.db.ExecContext(ctx, `
		UPDATE decisions SET
			status=?, supersedes_id=?, superseded_by_id=?, content=?, context=?, rationale=?,
			consequences_json=?, accepted_by=?, accepted_at=?, updated_at=?
		WHERE id=?`,
		string(d.Status), nullable(d.SupersedesID), nullable(d.SupersededByID), d.Content, d.Context, d.Rationale,
		string(consequences), nullable(d.AcceptedBy), nullableTime(d.AcceptedAt), d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	return nil
}

func (s *DecisionStore) ListDecisionsByPipeline(ctx context.Context, pipelineID string) ([]*lifecycle.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline_id, status, supersedes_id, superseded_by_id, content, context, rationale,
			consequences_json, accepted_by, accepted_at, created_at, updated_at
		FROM decisions WHERE pipeline_id = ?`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []*lifecycle.Decision
	for rows.Next() {
		d := &lifecycle.Decision{}
		var pipelineIDCol, supersedesID, supersededByID, acceptedBy sql.NullString
		var acceptedAt sql.NullTime
		var consequencesJSON string
		if err := rows.Scan(&d.ID, &pipelineIDCol, &d.Status, &supersedesID, &supersededByID, &d.Content, &d.Context, &d.Rationale,
			&consequencesJSON, &acceptedBy, &acceptedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		d.PipelineID = pipelineIDCol.String
		d.SupersedesID = supersedesID.String
		d.SupersededByID = supersededByID.String
		d.AcceptedBy = acceptedBy.String
		if acceptedAt.Valid {
			d.AcceptedAt = &acceptedAt.Time
		}
		json.Unmarshal([]byte(consequencesJSON), &d.Consequences)
		out = append(out, d)
	}
	return out, rows.Err()
}
