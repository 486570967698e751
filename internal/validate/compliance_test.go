package validate

import (
	"context"
	"testing"
)

type memComplianceStore struct {
	records map[string]Record
}

func newMemComplianceStore() *memComplianceStore {
	return &memComplianceStore{records: map[string]Record{}}
}

func (m *memComplianceStore) InsertCompliance(ctx context.Context, r Record) error {
	m.records[r.EntityType+"/"+r.EntityID] = r
	return nil
}

func (m *memComplianceStore) LatestCompliance(ctx context.Context, entityType, entityID string) (*Record, error) {
	r, ok := m.records[entityType+"/"+entityID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func TestScoreFullMarksWithNoViolations(t *testing.T) {
	if got := Score(nil); got != 1.0 {
		t.Errorf("expected perfect score with no violations, got %f", got)
	}
}

func TestScoreDeductsPerViolation(t *testing.T) {
	violations := []Violation{{Rule: "a"}, {Rule: "b"}}
	if got := Score(violations); got != 0.8 {
		t.Errorf("expected 0.8 with 2 violations, got %f", got)
	}
}

func TestScoreFloorsAtZero(t *testing.T) {
	violations := make([]Violation, 20)
	if got := Score(violations); got != 0 {
		t.Errorf("expected score floored at 0, got %f", got)
	}
}

func TestComplianceLogRecordAndLatest(t *testing.T) {
	store := newMemComplianceStore()
	log := NewComplianceLog(store)
	ctx := context.Background()

	rec, err := log.Record(ctx, "task", "T1", []Violation{{Rule: "task.title-required"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Score != 0.9 {
		t.Errorf("expected score 0.9, got %f", rec.Score)
	}

	latest, err := log.Latest(ctx, "task", "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil || latest.ID != rec.ID {
		t.Errorf("expected latest record to match recorded one, got %+v", latest)
	}
}
