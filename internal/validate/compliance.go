package validate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is a point-in-time compliance score for one entity (a task or
// an epic), persisted so a reviewer can see how an entity's adherence
// to its invariants trended over time rather than just its current
// state.
type Record struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Score      float64   `json:"score"`
	Violations []string  `json:"violations,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CompliancePersister is the storage contract ComplianceLog drives.
type CompliancePersister interface {
	InsertCompliance(ctx context.Context, r Record) error
	LatestCompliance(ctx context.Context, entityType, entityID string) (*Record, error)
}

// ComplianceLog scores and records entity compliance.
type ComplianceLog struct {
	persist CompliancePersister
	now     func() time.Time
}

// NewComplianceLog constructs a ComplianceLog.
func NewComplianceLog(persist CompliancePersister) *ComplianceLog {
	return &ComplianceLog{persist: persist, now: time.Now}
}

// Score computes 1.0 minus a penalty of 0.1 per violation, floored at 0,
// the same coarse "count of broken invariants" signal
// kanban.ComputeSystemHealth derives its health status from.
func Score(violations []Violation) float64 {
	score := 1.0 - 0.1*float64(len(violations))
	if score < 0 {
		score = 0
	}
	return score
}

// Record persists a compliance score for an entity.
func (c *ComplianceLog) Record(ctx context.Context, entityType, entityID string, violations []Violation) (*Record, error) {
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	r := Record{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Score:      Score(violations),
		Violations: msgs,
		CreatedAt:  c.now(),
	}
	if err := c.persist.InsertCompliance(ctx, r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Latest returns the most recent recorded score for an entity.
func (c *ComplianceLog) Latest(ctx context.Context, entityType, entityID string) (*Record, error) {
	return c.persist.LatestCompliance(ctx, entityType, entityID)
}
