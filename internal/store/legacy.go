package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cleodev/cleo/internal/task"
)

// legacyBoard mirrors the shape of a pre-SQLite JSON snapshot: a flat
// task list plus the sequence counter, the only two things that don't
// already have a home in the migrated schema. Grounded on kanban/state.go's
// State{Board, Config} JSON document.
type legacyBoard struct {
	Tasks    []*task.Task `json:"tasks"`
	Sequence int          `json:"sequence"`
}

// ImportLegacyJSON performs a one-shot import of a pre-SQLite JSON board
// file into db, run once at startup before the database is otherwise
// touched. The source file is renamed to "<path>.bak" on success so a
// second run is a no-op (the .bak is checked first). Grounded on
// kanban/state.go's Load (os.IsNotExist fallback) and Save (tempfile then
// os.Rename) atomic-write pattern, applied here to the one-time migration
// rather than every save.
func ImportLegacyJSON(ctx context.Context, db *DB, jsonPath string) (imported int, err error) {
	bakPath := jsonPath + ".bak"
	if _, err := os.Stat(bakPath); err == nil {
		return 0, nil // already migrated
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read legacy board: %w", err)
	}

	var board legacyBoard
	if err := json.Unmarshal(data, &board); err != nil {
		return 0, fmt.Errorf("parse legacy board: %w", err)
	}

	ts := NewTaskStore(db)
	now := time.Now()
	for _, t := range board.Tasks {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = now
		}
		if err := ts.CreateTask(ctx, t); err != nil {
			return imported, fmt.Errorf("import task %s: %w", t.ID, err)
		}
		imported++
	}

	if board.Sequence > 0 {
		if _, err := db.ExecContext(ctx, `UPDATE _sequence SET counter = ? WHERE id = 1`, board.Sequence); err != nil {
			return imported, fmt.Errorf("import sequence counter: %w", err)
		}
	}

	if err := atomicRenameToBak(jsonPath, bakPath); err != nil {
		return imported, err
	}
	return imported, nil
}

// atomicRenameToBak preserves the original JSON by renaming it aside
// rather than deleting it, so a botched import can be diffed against the
// source of truth it replaced.
func atomicRenameToBak(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("prepare backup dir: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("preserve legacy board as backup: %w", err)
	}
	return nil
}
