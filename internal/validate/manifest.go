package validate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ManifestEntry records one agent-produced artifact: a research note, an
// ADR, a specification, a piece of implementation output. Grounded on
// the document-manifest table that replaces the teacher's append-only
// MANIFEST.jsonl with a queryable SQL row per entry.
type ManifestEntry struct {
	ID             string    `json:"id"`
	FilePath       string    `json:"filePath"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	Status         string    `json:"status"`
	AgentType      string    `json:"agentType"`
	Topics         []string  `json:"topics,omitempty"`
	KeyFindings    []string  `json:"keyFindings,omitempty"`
	Actionable     bool      `json:"actionable"`
	NeedsFollowup  []string  `json:"needsFollowup,omitempty"`
	LinkedTasks    []string  `json:"linkedTasks,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ManifestPersister is the storage contract ManifestLog drives.
type ManifestPersister interface {
	InsertManifestEntry(ctx context.Context, e ManifestEntry) error
	GetManifestEntry(ctx context.Context, id string) (*ManifestEntry, error)
	ListManifestByAgentType(ctx context.Context, agentType string) ([]*ManifestEntry, error)
}

// ManifestLog records agent artifacts and checks them against
// protocol-specific rules before they're marked actionable.
type ManifestLog struct {
	persist ManifestPersister
	now     func() time.Time
}

// NewManifestLog constructs a ManifestLog.
func NewManifestLog(persist ManifestPersister) *ManifestLog {
	return &ManifestLog{persist: persist, now: time.Now}
}

// Persist exposes the underlying ManifestPersister for read-only queries
// that don't belong on ManifestLog itself (e.g. listing by agent type).
func (m *ManifestLog) Persist() ManifestPersister { return m.persist }

// Record stores a new manifest entry, stamping ID and CreatedAt.
func (m *ManifestLog) Record(ctx context.Context, e ManifestEntry) (*ManifestEntry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = m.now()
	if err := m.persist.InsertManifestEntry(ctx, e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ProtocolViolation is one broken protocol-specific rule for a manifest
// entry, carrying enough detail for an agent to self-correct.
type ProtocolViolation struct {
	Requirement string `json:"requirement"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Fix         string `json:"fix"`
}

// CheckProtocol validates e against the rules for its agent type: research
// entries need 3-7 key findings, ADR entries need at least one linked task
// and must not be marked actionable while still in draft status.
func CheckProtocol(e ManifestEntry) []ProtocolViolation {
	var violations []ProtocolViolation

	switch e.AgentType {
	case "research":
		if n := len(e.KeyFindings); n < 3 || n > 7 {
			violations = append(violations, ProtocolViolation{
				Requirement: "research.keyFindings",
				Severity:    "error",
				Message:     "research artifacts must report 3-7 key findings",
				Fix:         "add or trim keyFindings to land within 3-7 entries",
			})
		}
	case "adr":
		if len(e.LinkedTasks) == 0 {
			violations = append(violations, ProtocolViolation{
				Requirement: "adr.linkedTasks",
				Severity:    "error",
				Message:     "ADR artifacts must link at least one implementing task",
				Fix:         "link the task(s) this decision governs before shipping",
			})
		}
		if e.Actionable && e.Status != "accepted" {
			violations = append(violations, ProtocolViolation{
				Requirement: "adr.acceptance",
				Severity:    "error",
				Message:     "an ADR cannot be actionable before its decision is accepted",
				Fix:         "run decision.accept first, or clear actionable",
			})
		}
	}

	if e.Title == "" {
		violations = append(violations, ProtocolViolation{
			Requirement: "manifest.title",
			Severity:    "warn",
			Message:     "manifest entry has no title",
			Fix:         "set a title describing the artifact's content",
		})
	}

	return violations
}

func (v ProtocolViolation) String() string {
	return v.Requirement + ": " + v.Message
}
