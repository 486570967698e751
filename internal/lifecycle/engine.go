package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cleodev/cleo/internal/cerrors"
)

// Engine drives pipelines through their fixed stage sequence. Grounded on
// orchestrator_prd.go's processApprovedToPRDRound/processPRDRoundStage
// pair (load current round, evaluate, persist next state), generalized
// from one hardcoded round to the eight fixed stages.
type Engine struct {
	store PipelineStore
	deps  Deps
	now   func() time.Time
}

// PipelineStore is the persistence contract lifecycle needs; a concrete
// implementation lives in internal/store.
type PipelineStore interface {
	CreatePipeline(ctx context.Context, p *Pipeline) error
	GetPipeline(ctx context.Context, id string) (*Pipeline, error)
	GetPipelineByEpic(ctx context.Context, epicID string) (*Pipeline, error)
	UpdatePipeline(ctx context.Context, p *Pipeline) error
	RecordTransition(ctx context.Context, t *Transition) error
}

// NewEngine constructs an Engine.
func NewEngine(store PipelineStore, deps Deps) *Engine {
	return &Engine{store: store, deps: deps, now: time.Now}
}

// StartPipeline creates a new pipeline for epicID with all eight stages
// pre-populated as pending, the first one active.
func (e *Engine) StartPipeline(ctx context.Context, epicID string) (*Pipeline, error) {
	if existing, _ := e.store.GetPipelineByEpic(ctx, epicID); existing != nil {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "epic already has a pipeline")
	}

	now := e.now()
	p := &Pipeline{
		ID:        uuid.NewString(),
		EpicID:    epicID,
		Status:    PipelineActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, name := range Stages {
		s := &Stage{
			ID:         uuid.NewString(),
			PipelineID: p.ID,
			Name:       name,
			Seq:        i,
			Status:     StagePending,
		}
		if i == 0 {
			s.Status = StageActive
			started := now
			s.StartedAt = &started
		}
		p.Stages = append(p.Stages, s)
	}
	p.CurrentStageID = p.Stages[0].ID

	if err := e.store.CreatePipeline(ctx, p); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return p, nil
}

// currentStage returns the stage p.CurrentStageID points at.
func currentStage(p *Pipeline) *Stage {
	for _, s := range p.Stages {
		if s.ID == p.CurrentStageID {
			return s
		}
	}
	return nil
}

// AdvanceStage marks the current stage done (after its gate passes) and
// activates the next one in four steps: (a) evaluate gate, (b) mark
// current stage done and stamp completion, (c) record the transition,
// (d) activate the next stage or complete the pipeline if this was the
// last one. The steps are separate store calls, not one transaction.
func (e *Engine) AdvanceStage(ctx context.Context, pipelineID string) (*Pipeline, error) {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, cerrors.NotFound("pipeline", pipelineID)
	}
	cur := currentStage(p)
	if cur == nil {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "pipeline has no active stage")
	}

	// (a) evaluate gate
	if gate, ok := gatesByStage[cur.Name]; ok {
		passed, msg := gate(ctx, e.deps, p, cur)
		cur.GateResults = append(cur.GateResults, GateResult{
			GateName: string(cur.Name), Passed: passed,
			EnforcementMode: EnforcementHard, Message: msg, CreatedAt: e.now(),
		})
		if !passed {
			return nil, cerrors.WithFix(cerrors.CodeGateFailed,
				msg, "satisfy the stage's gate predicate before advancing")
		}
	}

	now := e.now()
	// (b) mark current stage done
	cur.Status = StageDone
	cur.CompletedAt = &now

	var nextStage *Stage
	if cur.Seq+1 < len(p.Stages) {
		nextStage = p.Stages[cur.Seq+1]
	}

	// (c) record the transition
	transition := &Transition{
		ID:         uuid.NewString(),
		PipelineID: p.ID,
		FromStage:  cur.Name,
		Type:       TransitionAdvance,
		CreatedAt:  now,
	}
	if nextStage != nil {
		transition.ToStage = nextStage.Name
	}
	if err := e.store.RecordTransition(ctx, transition); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}

	// (d) activate next stage, or complete the pipeline
	if nextStage != nil {
		nextStage.Status = StageActive
		nextStage.StartedAt = &now
		p.CurrentStageID = nextStage.ID
	} else {
		p.Status = PipelineCompleted
		p.CurrentStageID = ""
	}
	p.UpdatedAt = now

	if err := e.store.UpdatePipeline(ctx, p); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return p, nil
}

// SkipStage bypasses the current stage's gate entirely, recording why.
// Used for stages an epic's scope genuinely doesn't need (e.g. no ADR
// required for a documentation-only epic).
func (e *Engine) SkipStage(ctx context.Context, pipelineID, reason string) (*Pipeline, error) {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, cerrors.NotFound("pipeline", pipelineID)
	}
	cur := currentStage(p)
	if cur == nil {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "pipeline has no active stage")
	}
	if reason == "" {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "a skip reason is required")
	}

	now := e.now()
	cur.Status = StageSkipped
	cur.SkipReason = reason
	cur.CompletedAt = &now

	var nextStage *Stage
	if cur.Seq+1 < len(p.Stages) {
		nextStage = p.Stages[cur.Seq+1]
	}
	if err := e.store.RecordTransition(ctx, &Transition{
		ID: uuid.NewString(), PipelineID: p.ID, FromStage: cur.Name,
		Type: TransitionSkip, CreatedAt: now,
	}); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}

	if nextStage != nil {
		nextStage.Status = StageActive
		nextStage.StartedAt = &now
		p.CurrentStageID = nextStage.ID
	} else {
		p.Status = PipelineCompleted
		p.CurrentStageID = ""
	}
	p.UpdatedAt = now
	if err := e.store.UpdatePipeline(ctx, p); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return p, nil
}

// BlockActiveStage transitions pipelineID's active implementation or
// contribution stage to blocked, recording reason as a stage note and a
// TransitionBlock record. Any other current stage, or a current stage
// that isn't active, is left untouched. Used by the decision
// supersession cascade (spec.md "Supersession cascade"): a superseded
// governing ADR never deletes downstream work, it only flags it.
func (e *Engine) BlockActiveStage(ctx context.Context, pipelineID, reason string) error {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return cerrors.NotFound("pipeline", pipelineID)
	}
	cur := currentStage(p)
	if cur == nil || cur.Status != StageActive {
		return nil
	}
	if cur.Name != StageImplementation && cur.Name != StageContribution {
		return nil
	}

	now := e.now()
	cur.Status = StageBlocked
	cur.Notes = append(cur.Notes, reason)
	p.Status = PipelineBlocked
	p.UpdatedAt = now

	if err := e.store.RecordTransition(ctx, &Transition{
		ID: uuid.NewString(), PipelineID: p.ID, FromStage: cur.Name, ToStage: cur.Name,
		Type: TransitionBlock, CreatedAt: now,
	}); err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return e.store.UpdatePipeline(ctx, p)
}

// RecordEvidence attaches evidence to the pipeline's current stage.
func (e *Engine) RecordEvidence(ctx context.Context, pipelineID string, ev Evidence) (*Pipeline, error) {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, cerrors.NotFound("pipeline", pipelineID)
	}
	cur := currentStage(p)
	if cur == nil {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "pipeline has no active stage")
	}
	ev.ID = uuid.NewString()
	ev.CreatedAt = e.now()
	cur.Evidence = append(cur.Evidence, ev)
	p.UpdatedAt = e.now()
	if err := e.store.UpdatePipeline(ctx, p); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return p, nil
}
