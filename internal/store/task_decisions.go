package store

import (
	"context"
	"fmt"
)

// TaskDecisionStore persists the task_decisions junction (migration 5):
// which tasks implement which decisions, and whether a governing
// decision's supersession has flagged them for review. Grounded on
// TagStore's junction-table shape, repointed at tasks<->decisions and
// driving the supersession cascade lifecycle.DecisionStore calls through
// the lifecycle.TaskDecisionLinker interface.
type TaskDecisionStore struct {
	db *DB
}

// NewTaskDecisionStore wraps db.
func NewTaskDecisionStore(db *DB) *TaskDecisionStore {
	return &TaskDecisionStore{db: db}
}

// LinkImplementingTask records that taskID implements decisionID. Safe to
// call more than once for the same pair.
func (s *TaskDecisionStore) LinkImplementingTask(ctx context.Context, taskID, decisionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_decisions (task_id, decision_id, relationship, needs_review)
		VALUES (?, ?, 'implements', 0)
		ON CONFLICT (task_id, decision_id) DO NOTHING`,
		taskID, decisionID,
	)
	if err != nil {
		return fmt.Errorf("link implementing task: %w", err)
	}
	return nil
}

// FlagImplementingTasks sets needs_review on every task that implements
// decisionID and returns their IDs. Called when decisionID is superseded
// (spec.md "Supersession cascade"): the link is never removed, only
// flagged, so the prior relationship stays visible in the audit trail.
func (s *TaskDecisionStore) FlagImplementingTasks(ctx context.Context, decisionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id FROM task_decisions
		WHERE decision_id = ? AND relationship = 'implements'`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("list implementing tasks: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan implementing task: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := s.db.ExecContext(ctx, `
		UPDATE task_decisions SET needs_review = 1
		WHERE decision_id = ? AND relationship = 'implements'`, decisionID,
	); err != nil {
		return nil, fmt.Errorf("flag implementing tasks: %w", err)
	}
	return ids, nil
}

// NeedsReview reports whether taskID has any decision link flagged for
// review, e.g. after its governing ADR was superseded.
func (s *TaskDecisionStore) NeedsReview(ctx context.Context, taskID string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_decisions WHERE task_id = ? AND needs_review = 1`, taskID)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check needs review: %w", err)
	}
	return count > 0, nil
}
