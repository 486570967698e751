package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenUsageKind classifies a recorded spend.
type TokenUsageKind string

const (
	TokenUsageInput  TokenUsageKind = "input"
	TokenUsageOutput TokenUsageKind = "output"
)

// TokenUsageEntry is one recorded token-spend event. TokenUsageLog.Total
// sums a session's entries; nothing feeds them into a session's Budget.
type TokenUsageEntry struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Amount    int            `json:"amount"`
	Kind      TokenUsageKind `json:"kind"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TokenUsagePersister is the storage contract TokenUsageLog drives.
type TokenUsagePersister interface {
	InsertTokenUsage(ctx context.Context, e TokenUsageEntry) error
	SumTokenUsage(ctx context.Context, sessionID string) (int, error)
}

// TokenUsageLog records per-session token spend.
type TokenUsageLog struct {
	persist TokenUsagePersister
	now     func() time.Time
}

// NewTokenUsageLog constructs a TokenUsageLog.
func NewTokenUsageLog(persist TokenUsagePersister) *TokenUsageLog {
	return &TokenUsageLog{persist: persist, now: time.Now}
}

// Record logs one spend event.
func (t *TokenUsageLog) Record(ctx context.Context, sessionID string, amount int, kind TokenUsageKind) error {
	return t.persist.InsertTokenUsage(ctx, TokenUsageEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: t.now(),
	})
}

// Total returns the cumulative token spend for sessionID.
func (t *TokenUsageLog) Total(ctx context.Context, sessionID string) (int, error) {
	return t.persist.SumTokenUsage(ctx, sessionID)
}
