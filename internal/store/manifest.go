package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cleodev/cleo/internal/validate"
)

// ManifestStore implements validate.ManifestPersister over the manifest
// table, replacing the teacher's (and the original RCASD tool's)
// append-only MANIFEST.jsonl with queryable rows.
type ManifestStore struct {
	db *DB
}

// NewManifestStore wraps db.
func NewManifestStore(db *DB) *ManifestStore {
	return &ManifestStore{db: db}
}

func (s *ManifestStore) InsertManifestEntry(ctx context.Context, e validate.ManifestEntry) error {
	topics, _ := json.Marshal(e.Topics)
	findings, _ := json.Marshal(e.KeyFindings)
	followup, _ := json.Marshal(e.NeedsFollowup)
	linked, _ := json.Marshal(e.LinkedTasks)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manifest (
			id, file_path, title, date, status, agent_type, topics_json,
			key_findings_json, actionable, needs_followup_json, linked_tasks_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.FilePath, e.Title, e.Date, e.Status, e.AgentType, string(topics),
		string(findings), boolToInt(e.Actionable), string(followup), string(linked), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert manifest entry: %w", err)
	}
	return nil
}

func (s *ManifestStore) GetManifestEntry(ctx context.Context, id string) (*validate.ManifestEntry, error) {
	row := s.db.QueryRowContext(ctx, manifestSelect+` WHERE id = ?`, id)
	return scanManifestEntry(row)
}

func (s *ManifestStore) ListManifestByAgentType(ctx context.Context, agentType string) ([]*validate.ManifestEntry, error) {
	rows, err := s.db.QueryContext(ctx, manifestSelect+` WHERE agent_type = ? ORDER BY date DESC`, agentType)
	if err != nil {
		return nil, fmt.Errorf("list manifest by agent type: %w", err)
	}
	defer rows.Close()

	var entries []*validate.ManifestEntry
	for rows.Next() {
		e, err := scanManifestEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const manifestSelect = `
	SELECT id, file_path, title, date, status, agent_type, topics_json,
		key_findings_json, actionable, needs_followup_json, linked_tasks_json, created_at
	FROM manifest`

func scanManifestEntry(row rowLike) (*validate.ManifestEntry, error) {
	var e validate.ManifestEntry
	var topics, findings, followup, linked string
	var actionable int

	err := row.Scan(&e.ID, &e.FilePath, &e.Title, &e.Date, &e.Status, &e.AgentType,
		&topics, &findings, &actionable, &followup, &linked, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan manifest entry: %w", err)
	}

	json.Unmarshal([]byte(topics), &e.Topics)
	json.Unmarshal([]byte(findings), &e.KeyFindings)
	json.Unmarshal([]byte(followup), &e.NeedsFollowup)
	json.Unmarshal([]byte(linked), &e.LinkedTasks)
	e.Actionable = actionable != 0

	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
