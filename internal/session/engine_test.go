package session

import (
	"context"
	"fmt"
	"testing"
)

type memStore struct {
	sessions map[string]*Session
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*Session{}}
}

func (m *memStore) CreateSession(ctx context.Context, s *Session) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) UpdateSession(ctx context.Context, s *Session) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session %s not found", s.ID)
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) ActiveSessionForScope(ctx context.Context, scope Scope) (*Session, error) {
	for _, s := range m.sessions {
		if s.Status == StatusActive && s.Scope == scope {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memStore) ActiveSession(ctx context.Context) (*Session, error) {
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			return s, nil
		}
	}
	return nil, nil
}

func TestStartRefusesWhenActiveSessionExistsForScope(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()
	scope := Scope{Type: ScopeProject}

	if _, err := e.Start(ctx, scope, "agent-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Start(ctx, scope, "agent-2"); err == nil {
		t.Fatal("expected E_SESSION_EXISTS for a second active session over the same scope")
	}
}

// TestStartRefusesAcrossDifferentScopes mirrors spec.md §4.4's project-wide
// single-writer invariant: a session over one scope blocks a new session
// over an unrelated scope, not just an overlapping one.
func TestStartRefusesAcrossDifferentScopes(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	if _, err := e.Start(ctx, Scope{Type: ScopeTask, RootTaskID: "T1"}, "agent-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Start(ctx, Scope{Type: ScopeTask, RootTaskID: "T2"}, "agent-2"); err == nil {
		t.Fatal("expected E_SESSION_EXISTS for a second active session over a different scope")
	}
}

func TestSuspendAndResumeRoundTrip(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()
	s, err := e.Start(ctx, Scope{Type: ScopeProject}, "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.TaskWorkID = "T1"
	if err := e.store.UpdateSession(ctx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	suspended, err := e.Suspend(ctx, s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if suspended.Status != StatusSuspended || suspended.SuspendedAt == nil {
		t.Fatalf("expected suspended status, got %+v", suspended)
	}
	if suspended.SuspendCount != 1 {
		t.Errorf("expected suspend count 1, got %d", suspended.SuspendCount)
	}

	resumed, err := e.Resume(ctx, s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resumed.Status != StatusActive || resumed.SuspendedAt != nil {
		t.Errorf("expected active status with cleared suspendedAt, got %+v", resumed)
	}
	if resumed.ResumeCount != 1 {
		t.Errorf("expected resume count 1, got %d", resumed.ResumeCount)
	}
	if resumed.TaskWorkID != "T1" {
		t.Errorf("expected taskWorkId to be preserved across suspend/resume, got %q", resumed.TaskWorkID)
	}
}

func TestEndRefusesAlreadyEndedSession(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()
	s, err := e.Start(ctx, Scope{Type: ScopeProject}, "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.End(ctx, s.ID, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.End(ctx, s.ID, nil, nil); err == nil {
		t.Fatal("expected error ending an already-ended session")
	}
}

// TestSessionChainReciprocalLinks mirrors spec.md's S6 scenario.
func TestSessionChainReciprocalLinks(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	a, err := e.Start(ctx, Scope{Type: ScopeProject}, "agent-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	handoff := ComposeHandoff(a, "finished the thing", nil, []string{"pick up T2"})
	if _, err := e.End(ctx, a.ID, handoff, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, _ = e.store.GetSession(ctx, a.ID)

	b, err := e.Start(ctx, Scope{Type: ScopeProject}, "agent-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Chain(ctx, a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ = e.store.GetSession(ctx, a.ID)
	b, _ = e.store.GetSession(ctx, b.ID)

	if a.NextSessionID != b.ID {
		t.Errorf("expected predecessor's NextSessionID to point at successor, got %q", a.NextSessionID)
	}
	if b.PreviousSessionID != a.ID {
		t.Errorf("expected successor's PreviousSessionID to point at predecessor, got %q", b.PreviousSessionID)
	}
	if b.HandoffConsumedAt == nil || b.HandoffConsumedBy != "agent-b" {
		t.Errorf("expected handoff consumption to be stamped on successor, got %+v", b)
	}

	briefing, err := e.Briefing(ctx, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if briefing == nil || briefing.Summary != "finished the thing" {
		t.Errorf("expected briefing to surface predecessor's handoff, got %+v", briefing)
	}
}

func TestRequiresHandoffWhenSessionMadeProgress(t *testing.T) {
	s := &Session{Stats: Stats{TasksStarted: 1}}
	if !RequiresHandoff(s) {
		t.Error("expected handoff required when a task was started")
	}
	empty := &Session{}
	if RequiresHandoff(empty) {
		t.Error("expected no handoff required for a session with no progress")
	}
}
