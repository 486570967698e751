// Package lifecycle drives the eight-stage RCASD-ICR pipeline an epic
// moves through: Research, Consensus, ADR, Specification, Decomposition,
// Implementation, Contribution, Release. Grounded on kanban.ADR's status
// enum and FormatADRID, generalized from a single flat record into a
// full per-epic pipeline with gate predicates between stages.
package lifecycle

import "time"

// StageName is one of the eight fixed pipeline stages, in order.
type StageName string

const (
	StageResearch        StageName = "research"
	StageConsensus       StageName = "consensus"
	StageADR             StageName = "adr"
	StageSpecification   StageName = "specification"
	StageDecomposition   StageName = "decomposition"
	StageImplementation  StageName = "implementation"
	StageContribution    StageName = "contribution"
	StageRelease         StageName = "release"
)

// Stages is the fixed, ordered stage list every pipeline follows.
var Stages = []StageName{
	StageResearch, StageConsensus, StageADR, StageSpecification,
	StageDecomposition, StageImplementation, StageContribution, StageRelease,
}

// StageStatus tracks one stage's progress.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageDone      StageStatus = "done"
	StageSkipped   StageStatus = "skipped"
	StageBlocked   StageStatus = "blocked"
)

// PipelineStatus tracks the whole pipeline.
type PipelineStatus string

const (
	PipelineActive    PipelineStatus = "active"
	PipelineBlocked   PipelineStatus = "blocked"
	PipelineCompleted PipelineStatus = "completed"
)

// Pipeline is the per-epic RCASD-ICR state.
type Pipeline struct {
	ID             string         `json:"id"`
	EpicID         string         `json:"epicId"`
	Status         PipelineStatus `json:"status"`
	CurrentStageID string         `json:"currentStageId,omitempty"`
	Stages         []*Stage       `json:"stages"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Stage is one step of a Pipeline.
type Stage struct {
	ID                string            `json:"id"`
	PipelineID        string            `json:"pipelineId"`
	Name              StageName         `json:"name"`
	Seq               int               `json:"seq"`
	Status            StageStatus       `json:"status"`
	StartedAt         *time.Time        `json:"startedAt,omitempty"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty"`
	SkipReason        string            `json:"skipReason,omitempty"`
	Notes             []string          `json:"notes,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	OutputFile        string            `json:"outputFile,omitempty"`
	ProvenanceChain   []string          `json:"provenanceChain,omitempty"`
	GateResults       []GateResult      `json:"gateResults,omitempty"`
	Evidence          []Evidence        `json:"evidence,omitempty"`
}

// EnforcementMode controls what a failing gate does to the stage
// transition: "hard" blocks it, "soft" records a warning and proceeds.
type EnforcementMode string

const (
	EnforcementHard EnforcementMode = "hard"
	EnforcementSoft EnforcementMode = "soft"
)

// GateResult records one gate predicate's outcome for a stage.
type GateResult struct {
	GateName        string          `json:"gateName"`
	Passed          bool            `json:"passed"`
	EnforcementMode EnforcementMode `json:"enforcementMode"`
	Message         string          `json:"message,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// EvidenceType classifies a piece of stage evidence.
type EvidenceType string

const (
	EvidenceArtifact EvidenceType = "artifact"
	EvidenceDecision EvidenceType = "decision"
	EvidenceTask     EvidenceType = "task"
	EvidenceExternal EvidenceType = "external"
)

// Evidence links a stage to the thing that justifies marking it done.
type Evidence struct {
	ID        string       `json:"id"`
	Type      EvidenceType `json:"type"`
	URI       string       `json:"uri"`
	CreatedAt time.Time    `json:"createdAt"`
}

// TransitionType classifies a pipeline transition record.
type TransitionType string

const (
	TransitionAdvance  TransitionType = "advance"
	TransitionSkip     TransitionType = "skip"
	TransitionRollback TransitionType = "rollback"
	TransitionBlock    TransitionType = "block"
)

// Transition is an audit record of a pipeline moving between stages.
type Transition struct {
	ID         string         `json:"id"`
	PipelineID string         `json:"pipelineId"`
	FromStage  StageName      `json:"fromStage,omitempty"`
	ToStage    StageName      `json:"toStage,omitempty"`
	Type       TransitionType `json:"type"`
	CreatedAt  time.Time      `json:"createdAt"`
}
