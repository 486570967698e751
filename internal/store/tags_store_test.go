package store

import (
	"context"
	"testing"
	"time"

	"github.com/cleodev/cleo/internal/task"
)

func TestTagStoreCreateGetUpdateDeleteRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := NewTagStore(db)
	ctx := context.Background()

	tg := &task.Tag{ID: "G1", Name: "billing", Type: task.TagTypeComponent, Color: "#fff", Description: "billing component"}
	if err := s.CreateTag(ctx, tg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetTag(ctx, "G1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "billing" || got.Type != task.TagTypeComponent {
		t.Errorf("unexpected round-tripped tag: %+v", got)
	}

	byName, err := s.GetTagByName(ctx, "billing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byName.ID != "G1" {
		t.Errorf("expected lookup by name to find G1, got %+v", byName)
	}

	got.Description = "renamed"
	if err := s.UpdateTag(ctx, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reGot, err := s.GetTag(ctx, "G1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reGot.Description != "renamed" {
		t.Errorf("expected updated description to persist, got %q", reGot.Description)
	}

	if err := s.DeleteTag(ctx, "G1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	missing, err := s.GetTag(ctx, "G1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil after deleting the tag, got %+v", missing)
	}
}

func TestTagStoreListTagsFiltersByType(t *testing.T) {
	db := openTestDB(t)
	s := NewTagStore(db)
	ctx := context.Background()

	s.CreateTag(ctx, &task.Tag{ID: "G1", Name: "billing", Type: task.TagTypeComponent})
	s.CreateTag(ctx, &task.Tag{ID: "G2", Name: "onboarding", Type: task.TagTypeTheme})

	all, err := s.ListTags(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 tags total, got %d", len(all))
	}

	components, err := s.ListTags(ctx, task.TagTypeComponent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(components) != 1 || components[0].ID != "G1" {
		t.Errorf("expected only the component tag, got %+v", components)
	}
}

func TestTagStoreAttachAndDetachTask(t *testing.T) {
	db := openTestDB(t)
	tagStore := NewTagStore(db)
	taskStore := NewTaskStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	taskStore.CreateTask(ctx, &task.Task{ID: "T1", Title: "T", Description: "d", Status: task.StatusPending, Priority: task.PriorityMedium, Type: task.TypeTask, CreatedAt: now, UpdatedAt: now})
	tagStore.CreateTag(ctx, &task.Tag{ID: "G1", Name: "billing", Type: task.TagTypeComponent})

	if err := tagStore.AttachTag(ctx, "T1", "G1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tagStore.AttachTag(ctx, "T1", "G1"); err != nil {
		t.Fatalf("expected attaching the same tag twice to be idempotent, got %v", err)
	}

	tags, err := tagStore.TagsForTask(ctx, "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 1 || tags[0].ID != "G1" {
		t.Errorf("expected T1 to carry exactly tag G1, got %+v", tags)
	}

	taskIDs, err := tagStore.TasksByTag(ctx, "G1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(taskIDs) != 1 || taskIDs[0] != "T1" {
		t.Errorf("expected G1 to be attached to exactly T1, got %+v", taskIDs)
	}

	if err := tagStore.DetachTag(ctx, "T1", "G1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	remaining, err := tagStore.TagsForTask(ctx, "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no tags left after detaching, got %+v", remaining)
	}
}
