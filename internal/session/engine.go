package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cleodev/cleo/internal/cerrors"
)

// Store is the persistence contract session.Engine drives.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	ActiveSessionForScope(ctx context.Context, scope Scope) (*Session, error)
	// ActiveSession returns the single project-wide active session, if any
	// (spec.md §3/§4.4: at most one active session per project).
	ActiveSession(ctx context.Context) (*Session, error)
}

// Engine is the session lifecycle façade.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(store Store) *Engine { return &Engine{store: store, now: time.Now} }

// Start begins a new session over scope. Refuses if any session is
// already active anywhere in the project (CodeSessionExists), mirroring
// the teacher's single-claim-at-a-time assumption generalized to the
// single-writer invariant spec.md §4.4 requires project-wide, not just
// within the requested scope.
func (e *Engine) Start(ctx context.Context, scope Scope, agentIdentifier string) (*Session, error) {
	if existing, _ := e.store.ActiveSession(ctx); existing != nil {
		return nil, cerrors.New(cerrors.CodeSessionExists, "an active session already exists for this project")
	}

	now := e.now()
	s := &Session{
		ID:              uuid.NewString(),
		Status:          StatusActive,
		Scope:           scope,
		AgentIdentifier: agentIdentifier,
		StartedAt:       now,
	}
	if err := e.store.CreateSession(ctx, s); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return s, nil
}

// Suspend pauses an active session without ending it, preserving its
// scope claim.
func (e *Engine) Suspend(ctx context.Context, id string) (*Session, error) {
	s, err := e.mustActive(ctx, id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	s.Status = StatusSuspended
	s.SuspendedAt = &now
	s.SuspendCount++
	if err := e.store.UpdateSession(ctx, s); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return s, nil
}

// Resume reactivates a suspended session and increments its resume
// count. It does not link the session to any predecessor; Chain does that.
func (e *Engine) Resume(ctx context.Context, id string) (*Session, error) {
	s, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, cerrors.NotFound("session", id)
	}
	if s.Status != StatusSuspended {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "session is not suspended")
	}
	s.Status = StatusActive
	s.SuspendedAt = nil
	s.ResumeCount++
	if err := e.store.UpdateSession(ctx, s); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return s, nil
}

// End closes a session, recording its handoff and debrief for whatever
// session resumes the scope next (resolved via PreviousSessionID/
// NextSessionID chaining in Chain below).
func (e *Engine) End(ctx context.Context, id string, handoff *Handoff, debrief *Debrief) (*Session, error) {
	s, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, cerrors.NotFound("session", id)
	}
	if s.Status == StatusEnded {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "session already ended")
	}
	now := e.now()
	s.Status = StatusEnded
	s.EndedAt = &now
	s.Handoff = handoff
	s.Debrief = debrief
	if err := e.store.UpdateSession(ctx, s); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return s, nil
}

func (e *Engine) mustActive(ctx context.Context, id string) (*Session, error) {
	s, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, cerrors.NotFound("session", id)
	}
	if s.Status != StatusActive {
		return nil, cerrors.New(cerrors.CodeNoActiveSession, "session is not active")
	}
	return s, nil
}

// Briefing resolves the most relevant handoff a newly started session in
// scope should read: the ended predecessor session's handoff, if any.
func (e *Engine) Briefing(ctx context.Context, s *Session) (*Handoff, error) {
	if s.PreviousSessionID == "" {
		return nil, nil
	}
	prev, err := e.store.GetSession(ctx, s.PreviousSessionID)
	if err != nil {
		return nil, cerrors.NotFound("session", s.PreviousSessionID)
	}
	return prev.Handoff, nil
}

// Chain links s as the successor of prev, consuming prev's handoff.
func (e *Engine) Chain(ctx context.Context, prev, s *Session) error {
	prev.NextSessionID = s.ID
	s.PreviousSessionID = prev.ID
	now := e.now()
	s.HandoffConsumedAt = &now
	s.HandoffConsumedBy = s.AgentIdentifier
	if err := e.store.UpdateSession(ctx, prev); err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	if err := e.store.UpdateSession(ctx, s); err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return nil
}
