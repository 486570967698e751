package lifecycle

import (
	"context"
	"fmt"
	"testing"
)

type memPipelineStore struct {
	pipelines   map[string]*Pipeline
	byEpic      map[string]string
	transitions []*Transition
}

func newMemPipelineStore() *memPipelineStore {
	return &memPipelineStore{pipelines: map[string]*Pipeline{}, byEpic: map[string]string{}}
}

func (m *memPipelineStore) CreatePipeline(ctx context.Context, p *Pipeline) error {
	m.pipelines[p.ID] = p
	m.byEpic[p.EpicID] = p.ID
	return nil
}

func (m *memPipelineStore) GetPipeline(ctx context.Context, id string) (*Pipeline, error) {
	p, ok := m.pipelines[id]
	if !ok {
		return nil, fmt.Errorf("pipeline %s not found", id)
	}
	return p, nil
}

func (m *memPipelineStore) GetPipelineByEpic(ctx context.Context, epicID string) (*Pipeline, error) {
	id, ok := m.byEpic[epicID]
	if !ok {
		return nil, fmt.Errorf("no pipeline for epic %s", epicID)
	}
	return m.pipelines[id], nil
}

func (m *memPipelineStore) UpdatePipeline(ctx context.Context, p *Pipeline) error {
	m.pipelines[p.ID] = p
	return nil
}

func (m *memPipelineStore) RecordTransition(ctx context.Context, t *Transition) error {
	m.transitions = append(m.transitions, t)
	return nil
}

func TestStartPipelineActivatesFirstStage(t *testing.T) {
	e := NewEngine(newMemPipelineStore(), Deps{})
	p, err := e.StartPipeline(context.Background(), "E1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Stages) != len(Stages) {
		t.Fatalf("expected %d stages, got %d", len(Stages), len(p.Stages))
	}
	if p.Stages[0].Name != StageResearch || p.Stages[0].Status != StageActive {
		t.Errorf("expected research stage active first, got %+v", p.Stages[0])
	}
	for _, s := range p.Stages[1:] {
		if s.Status != StagePending {
			t.Errorf("expected stage %s pending, got %s", s.Name, s.Status)
		}
	}
}

func TestStartPipelineRefusesDuplicateForEpic(t *testing.T) {
	e := NewEngine(newMemPipelineStore(), Deps{})
	ctx := context.Background()
	if _, err := e.StartPipeline(ctx, "E1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.StartPipeline(ctx, "E1"); err == nil {
		t.Fatal("expected error starting a second pipeline for the same epic")
	}
}

func TestAdvanceStageBlocksOnFailingGate(t *testing.T) {
	e := NewEngine(newMemPipelineStore(), Deps{})
	ctx := context.Background()
	p, _ := e.StartPipeline(ctx, "E1")

	// research stage requires evidence; none has been recorded.
	if _, err := e.AdvanceStage(ctx, p.ID); err == nil {
		t.Fatal("expected E_GATE_FAILED without recorded evidence")
	}
}

func TestAdvanceStageSucceedsAfterEvidenceRecorded(t *testing.T) {
	e := NewEngine(newMemPipelineStore(), Deps{})
	ctx := context.Background()
	p, _ := e.StartPipeline(ctx, "E1")

	if _, err := e.RecordEvidence(ctx, p.ID, Evidence{Type: EvidenceArtifact, URI: "rcasd/E1/research/E1-research.md"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	advanced, err := e.AdvanceStage(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advanced.Stages[0].Status != StageDone {
		t.Errorf("expected research stage done, got %s", advanced.Stages[0].Status)
	}
	if advanced.Stages[1].Status != StageActive {
		t.Errorf("expected consensus stage active, got %s", advanced.Stages[1].Status)
	}
	if advanced.CurrentStageID != advanced.Stages[1].ID {
		t.Errorf("expected current stage to point at consensus")
	}
}

func TestSkipStageRequiresReason(t *testing.T) {
	e := NewEngine(newMemPipelineStore(), Deps{})
	ctx := context.Background()
	p, _ := e.StartPipeline(ctx, "E1")

	if _, err := e.SkipStage(ctx, p.ID, ""); err == nil {
		t.Fatal("expected error skipping without a reason")
	}

	skipped, err := e.SkipStage(ctx, p.ID, "no research needed for this epic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped.Stages[0].Status != StageSkipped || skipped.Stages[0].SkipReason == "" {
		t.Errorf("expected skipped stage with reason recorded, got %+v", skipped.Stages[0])
	}
	if skipped.Stages[1].Status != StageActive {
		t.Errorf("expected next stage activated after skip, got %s", skipped.Stages[1].Status)
	}
}

// TestConsensusGateRequiresAcceptedDecision checks that the consensus
// stage's gate reads decision acceptance.
func TestConsensusGateRequiresAcceptedDecision(t *testing.T) {
	decisionPersist := newMemDecisionPersister()
	decisions := NewDecisionStore(decisionPersist)
	store := newMemPipelineStore()
	e := NewEngine(store, Deps{Decisions: decisions})
	ctx := context.Background()

	p, _ := e.StartPipeline(ctx, "E1")
	e.RecordEvidence(ctx, p.ID, Evidence{Type: EvidenceArtifact, URI: "research.md"})
	e.AdvanceStage(ctx, p.ID) // research -> consensus

	// consensus/adr both gate on an accepted decision; none proposed yet.
	if _, err := e.AdvanceStage(ctx, p.ID); err == nil {
		t.Fatal("expected consensus stage to block without an accepted decision")
	}

	d, _ := decisions.Propose(ctx, p.ID, "Use RCASD", "ctx", "content", "rationale")
	decisions.Refresh(ctx, p.ID)
	if _, err := e.AdvanceStage(ctx, p.ID); err == nil {
		t.Fatal("expected consensus stage to still block on a merely-proposed decision")
	}

	if _, err := decisions.Accept(ctx, d.ID, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decisions.Refresh(ctx, p.ID)

	advanced, err := e.AdvanceStage(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error once the governing decision is accepted: %v", err)
	}
	if advanced.Stages[1].Status != StageDone {
		t.Errorf("expected consensus stage done, got %s", advanced.Stages[1].Status)
	}
}
