package audit

import (
	"context"
	"testing"
)

type memPersister struct {
	entries []Entry
}

func (m *memPersister) InsertAuditEntry(ctx context.Context, e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memPersister) ListAuditEntries(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestRecordStampsIDAndTimestamp(t *testing.T) {
	p := &memPersister{}
	l := NewLogger(p)
	l.Record(context.Background(), Entry{Operation: "task.complete", EntityType: "task", EntityID: "T1", Outcome: "ok"})

	if len(p.entries) != 1 {
		t.Fatalf("expected 1 recorded entry, got %d", len(p.entries))
	}
	got := p.entries[0]
	if got.ID == "" {
		t.Error("expected a generated ID")
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected a stamped CreatedAt")
	}
}

func TestForEntityFiltersByEntity(t *testing.T) {
	p := &memPersister{}
	l := NewLogger(p)
	ctx := context.Background()
	l.Record(ctx, Entry{Operation: "task.complete", EntityType: "task", EntityID: "T1", Outcome: "ok"})
	l.Record(ctx, Entry{Operation: "task.complete", EntityType: "task", EntityID: "T2", Outcome: "ok"})

	got, err := l.ForEntity(ctx, "task", "T1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].EntityID != "T1" {
		t.Errorf("expected only T1's entry, got %+v", got)
	}
}

func TestNilLoggerRecordIsNoop(t *testing.T) {
	var l *Logger
	l.Record(context.Background(), Entry{Operation: "task.complete"})
}

func TestLoggerWithNilPersisterIsNoop(t *testing.T) {
	l := NewLogger(nil)
	l.Record(context.Background(), Entry{Operation: "task.complete"})
	got, err := l.ForEntity(context.Background(), "task", "T1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil result from a persister-less logger, got %+v", got)
	}
}

type memTokenUsagePersister struct {
	entries []TokenUsageEntry
}

func (m *memTokenUsagePersister) InsertTokenUsage(ctx context.Context, e TokenUsageEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memTokenUsagePersister) SumTokenUsage(ctx context.Context, sessionID string) (int, error) {
	total := 0
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			total += e.Amount
		}
	}
	return total, nil
}

func TestTokenUsageLogAccumulatesPerSession(t *testing.T) {
	p := &memTokenUsagePersister{}
	l := NewTokenUsageLog(p)
	ctx := context.Background()

	if err := l.Record(ctx, "S1", 100, TokenUsageInput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Record(ctx, "S1", 50, TokenUsageOutput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Record(ctx, "S2", 999, TokenUsageInput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, err := l.Total(ctx, "S1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 150 {
		t.Errorf("expected 150 tokens for S1, got %d", total)
	}
}
