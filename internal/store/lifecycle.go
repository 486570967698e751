package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cleodev/cleo/internal/lifecycle"
)

// LifecycleStore is the concrete lifecycle.PipelineStore implementation.
// Grounded on internal/db/store.go's multi-table scan pattern (conversation
// + conversation_messages): one pipeline row plus its child stage rows,
// reassembled into the in-memory Pipeline struct on read.
type LifecycleStore struct {
	db       *DB
	accessor *Accessor
}

// NewLifecycleStore wraps db.
func NewLifecycleStore(db *DB) *LifecycleStore {
	return &LifecycleStore{db: db, accessor: NewAccessor(db)}
}

func (s *LifecycleStore) CreatePipeline(ctx context.Context, p *lifecycle.Pipeline) error {
	return s.accessor.RunInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lifecycle_pipelines (id, epic_id, status, current_stage_id, created_at, updated_at)
			VALUES (?,?,?,?,?,?)`,
			p.ID, p.EpicID, string(p.Status), p.CurrentStageID, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert pipeline: %w", err)
		}
		for _, st := range p.Stages {
			if err := insertStage(ctx, tx, st); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertStage(ctx context.Context, tx *sql.Tx, st *lifecycle.Stage) error {
	notes, _ := json.Marshal(st.Notes)
	metadata, _ := json.Marshal(st.Metadata)
	provenance, _ := json.Marshal(st.ProvenanceChain)
	gateResults, _ := json.Marshal(st.GateResults)
	evidence, _ := json.Marshal(st.Evidence)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO lifecycle_stages (
			id, pipeline_id, stage_name, seq, status, started_at, completed_at,
			skip_reason, notes_json, metadata_json, output_file, provenance_chain_json
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		st.ID, st.PipelineID, string(st.Name), st.Seq, string(st.Status),
		nullableTime(st.StartedAt), nullableTime(st.CompletedAt),
		nullable(st.SkipReason), string(notes), string(metadata), nullable(st.OutputFile), string(provenance),
	)
	if err != nil {
		return fmt.Errorf("insert stage: %w", err)
	}
	return updateStageExtras(ctx, tx, st.ID, gateResults, evidence)
}

// updateStageExtras persists gate results and evidence, which have no
// first-class columns in the migration 4 schema; they ride along in
// metadata_json as a composite object so the relational stage row stays
// the single source of truth.
func updateStageExtras(ctx context.Context, tx *sql.Tx, stageID string, gateResults, evidence []byte) error {
	extras := struct {
		GateResults json.RawMessage `json:"gateResults"`
		Evidence    json.RawMessage `json:"evidence"`
	}{GateResults: gateResults, Evidence: evidence}
	blob, _ := json.Marshal(extras)
	_, err := tx.ExecContext(ctx, `UPDATE lifecycle_stages SET metadata_json = ? WHERE id = ?`, string(blob), stageID)
	return err
}

func (s *LifecycleStore) GetPipeline(ctx context.Context, id string) (*lifecycle.Pipeline, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, epic_id, status, current_stage_id, created_at, updated_at FROM lifecycle_pipelines WHERE id = ?`, id)
	p := &lifecycle.Pipeline{}
	var currentStageID sql.NullString
	if err := row.Scan(&p.ID, &p.EpicID, &p.Status, &currentStageID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get pipeline: %w", err)
	}
	p.CurrentStageID = currentStageID.String

	stages, err := s.loadStages(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Stages = stages
	return p, nil
}

func (s *LifecycleStore) GetPipelineByEpic(ctx context.Context, epicID string) (*lifecycle.Pipeline, error) {
	var id string
	row := s.db.QueryRowContext(ctx, `SELECT id FROM lifecycle_pipelines WHERE epic_id = ?`, epicID)
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("get pipeline by epic: %w", err)
	}
	return s.GetPipeline(ctx, id)
}

func (s *LifecycleStore) loadStages(ctx context.Context, pipelineID string) ([]*lifecycle.Stage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline_id, stage_name, seq, status, started_at, completed_at,
			skip_reason, notes_json, metadata_json, output_file, provenance_chain_json
		FROM lifecycle_stages WHERE pipeline_id = ? ORDER BY seq`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("load stages: %w", err)
	}
	defer rows.Close()

	var out []*lifecycle.Stage
	for rows.Next() {
		st := &lifecycle.Stage{}
		var startedAt, completedAt sql.NullTime
		var skipReason, outputFile sql.NullString
		var notesJSON, metadataJSON, provenanceJSON string

		if err := rows.Scan(&st.ID, &st.PipelineID, &st.Name, &st.Seq, &st.Status,
			&startedAt, &completedAt, &skipReason, &notesJSON, &metadataJSON, &outputFile, &provenanceJSON,
		); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		if startedAt.Valid {
			st.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			st.CompletedAt = &completedAt.Time
		}
		st.SkipReason = skipReason.String
		st.OutputFile = outputFile.String
		json.Unmarshal([]byte(notesJSON), &st.Notes)
		json.Unmarshal([]byte(provenanceJSON), &st.ProvenanceChain)

		var extras struct {
			GateResults []lifecycle.GateResult `json:"gateResults"`
			Evidence    []lifecycle.Evidence   `json:"evidence"`
		}
		json.Unmarshal([]byte(metadataJSON), &extras)
		st.GateResults = extras.GateResults
		st.Evidence = extras.Evidence

		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *LifecycleStore) UpdatePipeline(ctx context.Context, p *lifecycle.Pipeline) error {
	return s.accessor.RunInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE lifecycle_pipelines SET status=?, current_stage_id=?, updated_at=? WHERE id=?`,
			string(p.Status), nullable(p.CurrentStageID), p.UpdatedAt, p.ID,
		); err != nil {
			return fmt.Errorf("update pipeline: %w", err)
		}
		for _, st := range p.Stages {
			if err := updateStage(ctx, tx, st); err != nil {
				return err
			}
		}
		return nil
	})
}

func updateStage(ctx context.Context, tx *sql.Tx, st *lifecycle.Stage) error {
	notes, _ := json.Marshal(st.Notes)
	provenance, _ := json.Marshal(st.ProvenanceChain)
	gateResults, _ := json.Marshal(st.GateResults)
	evidence, _ := json.Marshal(st.Evidence)

	if _, err := tx.ExecContext(ctx, `
		UPDATE lifecycle_stages SET
			status=?, started_at=?, completed_at=?, skip_reason=?, notes_json=?, output_file=?, provenance_chain_json=?
		WHERE id=?`,
		string(st.Status), nullableTime(st.StartedAt), nullableTime(st.CompletedAt),
		nullable(st.SkipReason), string(notes), nullable(st.OutputFile), string(provenance), st.ID,
	); err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	return updateStageExtras(ctx, tx, st.ID, gateResults, evidence)
}

func (s *LifecycleStore) RecordTransition(ctx context.Context, t *lifecycle.Transition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lifecycle_transitions (id, pipeline_id, from_stage_id, to_stage_id, transition_type, created_at)
		VALUES (?,?,?,?,?,?)`,
		t.ID, t.PipelineID, nullable(string(t.FromStage)), nullable(string(t.ToStage)), string(t.Type), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}
