package lifecycle

import (
	"context"
	"fmt"

	"github.com/cleodev/cleo/internal/task"
)

// GatePredicate evaluates whether a stage is eligible to be marked done.
// Each predicate returns (passed, message). Grounded on
// orchestrator_prd.go's PRD round-completion checks (checkParentCompletion,
// countActualResponses): a small per-stage function inspecting
// accumulated state, not a generic rule engine.
type GatePredicate func(ctx context.Context, deps Deps, p *Pipeline, s *Stage) (bool, string)

// Deps is the narrow slice of engine collaborators a gate predicate may
// need, passed explicitly instead of a God-object Engine so predicates
// stay unit-testable in isolation.
type Deps struct {
	Tasks     *task.Engine
	Decisions *DecisionStore
	Artifacts *ArtifactStore
}

// gatesByStage maps each stage to the predicate checked before it can be
// marked done. A stage with no entry always passes (nothing beyond
// "someone called complete" is required).
var gatesByStage = map[StageName]GatePredicate{
	StageResearch:       gateHasEvidence,
	StageConsensus:      gateDecisionAccepted,
	StageADR:            gateDecisionAccepted,
	StageSpecification:  gateArtifactValidated,
	StageDecomposition:  gateHasChildTasks,
	StageImplementation: gateAllTaskGatesPassed,
	StageContribution:   gateArtifactValidated,
	StageRelease:        gateHasEvidence,
}

func gateHasEvidence(ctx context.Context, deps Deps, p *Pipeline, s *Stage) (bool, string) {
	if len(s.Evidence) == 0 {
		return false, fmt.Sprintf("stage %s requires at least one evidence link before completion", s.Name)
	}
	return true, ""
}

func gateDecisionAccepted(ctx context.Context, deps Deps, p *Pipeline, s *Stage) (bool, string) {
	if deps.Decisions == nil {
		return false, "no decision store configured"
	}
	if err := deps.Decisions.Refresh(ctx, p.ID); err != nil {
		return false, err.Error()
	}
	decisions := deps.Decisions.ByPipeline(p.ID)
	for _, d := range decisions {
		if d.Status == DecisionAccepted {
			return true, ""
		}
	}
	return false, fmt.Sprintf("stage %s requires an accepted decision", s.Name)
}

func gateArtifactValidated(ctx context.Context, deps Deps, p *Pipeline, s *Stage) (bool, string) {
	if s.OutputFile == "" {
		return false, fmt.Sprintf("stage %s has no output artifact recorded", s.Name)
	}
	if deps.Artifacts == nil {
		return false, "no artifact validator configured"
	}
	if err := deps.Artifacts.Validate(s.OutputFile, string(s.Name)); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func gateHasChildTasks(ctx context.Context, deps Deps, p *Pipeline, s *Stage) (bool, string) {
	if deps.Tasks == nil {
		return false, "no task engine configured"
	}
	children, err := deps.Tasks.List(ctx, task.ListFilter{ParentID: p.EpicID})
	if err != nil {
		return false, err.Error()
	}
	if len(children) == 0 {
		return false, "decomposition requires at least one child task"
	}
	return true, ""
}

func gateAllTaskGatesPassed(ctx context.Context, deps Deps, p *Pipeline, s *Stage) (bool, string) {
	if deps.Tasks == nil {
		return false, "no task engine configured"
	}
	children, err := deps.Tasks.List(ctx, task.ListFilter{ParentID: p.EpicID})
	if err != nil {
		return false, err.Error()
	}
	for _, c := range children {
		if c.Status == task.StatusCancelled {
			continue
		}
		if !c.Verification.Passed(task.Gate) {
			return false, fmt.Sprintf("task %s has not passed all verification gates", c.ID)
		}
	}
	return true, ""
}
