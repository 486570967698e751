package session

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// BudgetStatus is the threshold-derived state of a session's context
// budget, evaluated against its configured ceiling.
type BudgetStatus string

const (
	BudgetHealthy  BudgetStatus = "healthy"
	BudgetWarning  BudgetStatus = "warning"
	BudgetCritical BudgetStatus = "critical"
	BudgetExceeded BudgetStatus = "exceeded"
)

// Thresholds expressed as a fraction of the configured ceiling, matching
// the teacher's background.go staleness-check shape (a ticker comparing
// elapsed time against named thresholds), repurposed here to compare
// accumulated token spend against named thresholds instead.
const (
	warningFraction  = 0.70
	criticalFraction = 0.90
)

// Budget is a session's running context-budget ledger. Grounded on
// kanban.AuditEntry's TokenInput/TokenOutput counters, extended into a
// ledger with a derived status instead of raw counters alone.
type Budget struct {
	Ceiling int `json:"ceiling"`
	Used    int `json:"used"`
}

// Status derives the threshold-based BudgetStatus for b.
func (b Budget) Status() BudgetStatus {
	if b.Ceiling <= 0 {
		return BudgetHealthy
	}
	frac := float64(b.Used) / float64(b.Ceiling)
	switch {
	case frac >= 1.0:
		return BudgetExceeded
	case frac >= criticalFraction:
		return BudgetCritical
	case frac >= warningFraction:
		return BudgetWarning
	default:
		return BudgetHealthy
	}
}

// Remaining returns the unspent budget, floored at zero.
func (b Budget) Remaining() int {
	r := b.Ceiling - b.Used
	if r < 0 {
		return 0
	}
	return r
}

// Summary renders a human-readable one-liner for CLI/audit output, e.g.
// "42,000 / 100,000 tokens used (warning)". Library: dustin/go-humanize,
// already a transitive require of modernc.org/sqlite in the teacher's own
// go.mod, given a direct call site here for number formatting.
func (b Budget) Summary() string {
	return fmt.Sprintf("%s / %s tokens used (%s)",
		humanize.Comma(int64(b.Used)), humanize.Comma(int64(b.Ceiling)), b.Status())
}

// Record adds amount tokens to the ledger and returns the resulting
// status so callers can react to a threshold crossing (e.g. forcing a
// handoff at BudgetCritical).
func (b *Budget) Record(amount int) BudgetStatus {
	b.Used += amount
	return b.Status()
}
