package lifecycle

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cleodev/cleo/internal/cerrors"
)

// DecisionStatus is the lifecycle state of an architecture decision
// record. Grounded on kanban.ADRStatus.
type DecisionStatus string

const (
	DecisionProposed   DecisionStatus = "proposed"
	DecisionAccepted   DecisionStatus = "accepted"
	DecisionRejected   DecisionStatus = "rejected"
	DecisionSuperseded DecisionStatus = "superseded"
)

// Decision is CLEO's ADR record: a human-in-the-loop gated artifact that
// a pipeline's Consensus/ADR stages attach evidence to. Grounded on
// kanban.ADR (FormatADRID, supersession field) and the pack's
// ashita-ai-akashi Decision shape (SupersedesID, evidence linkage),
// trimmed of the embedding/consensus-scoring fields a single-process
// task tracker has no use for.
type Decision struct {
	ID             string     `json:"id"`
	PipelineID     string     `json:"pipelineId"`
	Status         DecisionStatus `json:"status"`
	Title          string     `json:"title"`
	Context        string     `json:"context"`
	Content        string     `json:"content"`
	Rationale      string     `json:"rationale"`
	Consequences   []string   `json:"consequences,omitempty"`
	SupersedesID   string     `json:"supersedesId,omitempty"`
	SupersededByID string     `json:"supersededById,omitempty"`
	AcceptedBy     string     `json:"acceptedBy,omitempty"`
	AcceptedAt     *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// DecisionPersister is the persistence contract DecisionStore drives.
type DecisionPersister interface {
	CreateDecision(ctx context.Context, d *Decision) error
	GetDecision(ctx context.Context, id string) (*Decision, error)
	UpdateDecision(ctx context.Context, d *Decision) error
	ListDecisionsByPipeline(ctx context.Context, pipelineID string) ([]*Decision, error)
}

// TaskDecisionLinker is the junction-table half of the supersession
// cascade: it records which tasks implement a decision and flags them
// for review when that decision is superseded. A concrete implementation
// lives in internal/store against the task_decisions table.
type TaskDecisionLinker interface {
	LinkImplementingTask(ctx context.Context, taskID, decisionID string) error
	FlagImplementingTasks(ctx context.Context, decisionID string) ([]string, error)
}

// StageBlocker is the pipeline half of the supersession cascade: it
// transitions an affected pipeline's active implementation/contribution
// stage to blocked. *Engine satisfies this directly.
type StageBlocker interface {
	BlockActiveStage(ctx context.Context, pipelineID, reason string) error
}

// DecisionStore is the ADR façade: propose, accept (human-in-the-loop),
// supersede, list, show.
type DecisionStore struct {
	persist DecisionPersister
	tasks   TaskDecisionLinker
	stages  StageBlocker
	now     func() time.Time
	cache   map[string][]*Decision // pipelineID -> decisions, refreshed per call
}

// NewDecisionStore constructs a DecisionStore.
func NewDecisionStore(persist DecisionPersister) *DecisionStore {
	return &DecisionStore{persist: persist, now: time.Now, cache: map[string][]*Decision{}}
}

// SetCascade wires the task-decision linker and pipeline stage blocker
// the supersession cascade needs. Both are optional: a DecisionStore
// without them still proposes/accepts/supersedes decisions, it just
// skips the downstream flagging spec.md's "Supersession cascade" and
// scenario S5 describe.
func (s *DecisionStore) SetCascade(tasks TaskDecisionLinker, stages StageBlocker) {
	s.tasks = tasks
	s.stages = stages
}

// LinkImplementingTask records that taskID implements decisionID, so a
// later supersession can find it. Call this after a task is created to
// satisfy a decision (the dispatch layer's decision.link operation).
func (s *DecisionStore) LinkImplementingTask(ctx context.Context, taskID, decisionID string) error {
	if s.tasks == nil {
		return cerrors.New(cerrors.CodeInvalidInput, "no task-decision linker configured")
	}
	if err := s.tasks.LinkImplementingTask(ctx, taskID, decisionID); err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return nil
}

// Propose creates a new decision in the proposed state.
func (s *DecisionStore) Propose(ctx context.Context, pipelineID, title, context_, content, rationale string) (*Decision, error) {
	now := s.now()
	d := &Decision{
		ID:         uuid.NewString(),
		PipelineID: pipelineID,
		Status:     DecisionProposed,
		Title:      title,
		Context:    context_,
		Content:    content,
		Rationale:  rationale,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.persist.CreateDecision(ctx, d); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return d, nil
}

// Accept marks a proposed decision accepted. This is the spec's
// human-in-the-loop gate: dispatch only calls Accept in response to an
// explicit operator/human approval, never automatically.
func (s *DecisionStore) Accept(ctx context.Context, id, acceptedBy string) (*Decision, error) {
	if acceptedBy == "" {
		return nil, cerrors.New(cerrors.CodeHandoffRequired, "accepting a decision requires an explicit acceptedBy")
	}
	d, err := s.persist.GetDecision(ctx, id)
	if err != nil {
		return nil, cerrors.NotFound("decision", id)
	}
	if d.Status != DecisionProposed {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "only a proposed decision can be accepted")
	}
	now := s.now()
	d.Status = DecisionAccepted
	d.AcceptedBy = acceptedBy
	d.AcceptedAt = &now
	d.UpdatedAt = now
	if err := s.persist.UpdateDecision(ctx, d); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return d, nil
}

// Supersede marks an accepted decision superseded by a new one, flagging
// both records rather than deleting the old one — decisions are an
// append-only provenance trail, matching kanban.ADR's supersession field.
func (s *DecisionStore) Supersede(ctx context.Context, oldID string, newDecision *Decision) (*Decision, error) {
	old, err := s.persist.GetDecision(ctx, oldID)
	if err != nil {
		return nil, cerrors.NotFound("decision", oldID)
	}
	if old.Status != DecisionAccepted {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "only an accepted decision can be superseded")
	}

	newDecision.ID = uuid.NewString()
	newDecision.SupersedesID = old.ID
	newDecision.Status = DecisionProposed
	now := s.now()
	newDecision.CreatedAt = now
	newDecision.UpdatedAt = now
	if err := s.persist.CreateDecision(ctx, newDecision); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}

	old.Status = DecisionSuperseded
	old.SupersededByID = newDecision.ID
	old.UpdatedAt = now
	if err := s.persist.UpdateDecision(ctx, old); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}

	// Supersession cascade (spec.md "Supersession cascade", scenario S5):
	// flag-only propagation. Implementing tasks are marked needsReview;
	// an active implementation/contribution stage on the governed
	// pipeline is blocked. Nothing downstream is ever deleted.
	if s.tasks != nil {
		if _, err := s.tasks.FlagImplementingTasks(ctx, old.ID); err != nil {
			return nil, cerrors.New(cerrors.CodeInternal, err.Error())
		}
	}
	if s.stages != nil && old.PipelineID != "" {
		if err := s.stages.BlockActiveStage(ctx, old.PipelineID, "governing ADR superseded"); err != nil {
			return nil, cerrors.New(cerrors.CodeInternal, err.Error())
		}
	}
	return newDecision, nil
}

// ByPipeline returns the decisions for pipelineID as last loaded by
// Refresh (or List), most recent first. It does not read the persister
// itself, so calling it again returns the same cached slice.
func (s *DecisionStore) ByPipeline(pipelineID string) []*Decision {
	return s.cache[pipelineID]
}

// Refresh loads pipelineID's decisions from the persister into the cache
// ByPipeline reads from. Gate predicates call this before ByPipeline so
// they never see stale data within one AdvanceStage call.
func (s *DecisionStore) Refresh(ctx context.Context, pipelineID string) error {
	list, err := s.persist.ListDecisionsByPipeline(ctx, pipelineID)
	if err != nil {
		return cerrors.New(cerrors.CodeInternal, err.Error())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	s.cache[pipelineID] = list
	return nil
}

// List returns every decision for pipelineID after refreshing the cache.
func (s *DecisionStore) List(ctx context.Context, pipelineID string) ([]*Decision, error) {
	if err := s.Refresh(ctx, pipelineID); err != nil {
		return nil, err
	}
	return s.ByPipeline(pipelineID), nil
}

// Show returns a single decision by ID.
func (s *DecisionStore) Show(ctx context.Context, id string) (*Decision, error) {
	d, err := s.persist.GetDecision(ctx, id)
	if err != nil {
		return nil, cerrors.NotFound("decision", id)
	}
	return d, nil
}
