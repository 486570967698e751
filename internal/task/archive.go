package task

import (
	"context"
	"time"
)

// RetentionWindow is how long a done or cancelled task stays in the live
// table before a sweep archives it (spec §3's archive-on-retention rule).
const RetentionWindow = 30 * 24 * time.Hour

// SweepRetention archives every done/cancelled task older than
// RetentionWindow. Grounded on background.go's ticker-driven
// registerAgent(type, interval, runFunc) shape: cmd/cleo wires this into
// the same periodic-sweep loop the teacher used for worktree pool
// cleanup, repointed at task retention instead of git worktrees.
func (e *Engine) SweepRetention(ctx context.Context, asOf time.Time) (int, error) {
	cutoff := asOf.Add(-RetentionWindow)
	candidates, err := e.store.ListTasks(ctx, ListFilter{Status: []Status{StatusDone, StatusCancelled}})
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, t := range candidates {
		finishedAt := t.UpdatedAt
		if t.CompletedAt != nil {
			finishedAt = *t.CompletedAt
		} else if t.CancelledAt != nil {
			finishedAt = *t.CancelledAt
		}
		if finishedAt.After(cutoff) {
			continue
		}
		if err := e.Archive(ctx, t.ID, ArchiveRetention); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}
