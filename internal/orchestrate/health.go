package orchestrate

import (
	"context"

	"github.com/cleodev/cleo/internal/task"
)

// HealthStatus is the coarse system-health classification, grounded on
// kanban.SystemHealthStatus (healthy/degraded/critical named bands
// derived from counting problem signals rather than one hard threshold).
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
)

// Health is the computed system-wide summary, grounded on
// kanban.ComputeSystemHealth/countRework/isThrashing: those derive a
// board's health from its tickets' rework counts and stuck-in-status
// durations; Health derives CLEO's from blocked-task ratio and
// verification round counts, the two signals available in this domain.
type Health struct {
	Status        HealthStatus
	TotalTasks    int
	BlockedTasks  int
	ThrashingTasks []string // tasks that hit the verification round cap
}

// ComputeHealth scans every live task and derives a Health summary.
// Thresholds: >25% blocked is degraded, >50% is critical; any task at
// the verification round cap independently marks the system degraded
// (mirrors isThrashing's "too much rework" signal).
func (o *Orchestrator) ComputeHealth(ctx context.Context) (*Health, error) {
	all, err := o.engine.List(ctx, task.ListFilter{})
	if err != nil {
		return nil, err
	}

	h := &Health{}
	for _, t := range all {
		if t.Status == task.StatusCancelled {
			continue
		}
		h.TotalTasks++
		if t.Status == task.StatusBlocked {
			h.BlockedTasks++
		}
		if t.Verification.Round >= task.MaxVerificationRounds {
			h.ThrashingTasks = append(h.ThrashingTasks, t.ID)
		}
	}

	h.Status = HealthHealthy
	if h.TotalTasks > 0 {
		ratio := float64(h.BlockedTasks) / float64(h.TotalTasks)
		switch {
		case ratio > 0.5:
			h.Status = HealthCritical
		case ratio > 0.25:
			h.Status = HealthDegraded
		}
	}
	if len(h.ThrashingTasks) > 0 && h.Status == HealthHealthy {
		h.Status = HealthDegraded
	}
	return h, nil
}
