package store

import (
	"context"
	"testing"
	"time"

	"github.com/cleodev/cleo/internal/validate"
)

func TestManifestStoreInsertAndGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := NewManifestStore(db)
	ctx := context.Background()

	e := validate.ManifestEntry{
		ID: "M1", FilePath: "docs/research/001-caching.md", Title: "Caching strategy",
		Date: time.Now().UTC().Truncate(time.Second), Status: "draft", AgentType: "research",
		Topics: []string{"cache", "latency"}, KeyFindings: []string{"a", "b", "c"},
		Actionable: true, LinkedTasks: []string{"T1"}, CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.InsertManifestEntry(ctx, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetManifestEntry(ctx, "M1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Caching strategy" || !got.Actionable {
		t.Errorf("unexpected round-tripped entry: %+v", got)
	}
	if len(got.Topics) != 2 || len(got.KeyFindings) != 3 || len(got.LinkedTasks) != 1 {
		t.Errorf("expected JSON-encoded slices to round-trip, got %+v", got)
	}
}

func TestManifestStoreListByAgentType(t *testing.T) {
	db := openTestDB(t)
	s := NewManifestStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	research := validate.ManifestEntry{ID: "M1", FilePath: "r.md", Title: "R", Date: now, Status: "draft", AgentType: "research", CreatedAt: now}
	adr := validate.ManifestEntry{ID: "M2", FilePath: "a.md", Title: "A", Date: now, Status: "draft", AgentType: "adr", CreatedAt: now}
	if err := s.InsertManifestEntry(ctx, research); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.InsertManifestEntry(ctx, adr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.ListManifestByAgentType(ctx, "research")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "M1" {
		t.Errorf("expected only the research entry, got %+v", got)
	}
}
