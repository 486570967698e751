// Package session implements CLEO's scoped work sessions: start/suspend/
// resume/end lifecycle, chained handoff/debrief persistence, and a
// context-budget ledger. Grounded on the pack's vinayprograms-agent
// internal/session/session.go scoped-session shape and the teacher's
// kanban.AgentRun start/end timestamp pair.
package session

import "time"

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusEnded     Status = "ended"
)

// ScopeType is what a session is allowed to touch.
type ScopeType string

const (
	ScopeTask    ScopeType = "task"
	ScopeEpic    ScopeType = "epic"
	ScopePhase   ScopeType = "phase"
	ScopeProject ScopeType = "project"
)

// Scope bounds which tasks a session may operate on.
type Scope struct {
	Type               ScopeType `json:"type"`
	RootTaskID         string    `json:"rootTaskId,omitempty"`
	Phase              string    `json:"phase,omitempty"`
	IncludeDescendants bool      `json:"includeDescendants"`
}

// Stats is the running ledger of work a session has done: raw counters of
// tasks started, tasks completed and gates set.
type Stats struct {
	TasksStarted   int `json:"tasksStarted"`
	TasksCompleted int `json:"tasksCompleted"`
	GatesSet       int `json:"gatesSet"`
}

// Handoff is what an ending session leaves for whatever session resumes
// its scope next: a structured summary instead of free text, grounded on
// orchestrator_prd.go's runPMSynthesis reduction of round state into one
// synthesis string.
type Handoff struct {
	Summary        string   `json:"summary"`
	OpenQuestions  []string `json:"openQuestions,omitempty"`
	NextSteps      []string `json:"nextSteps,omitempty"`
	TaskWorkID     string   `json:"taskWorkId,omitempty"`
}

// Debrief is the reflection a session records about its own run, distinct
// from the Handoff it leaves the next session.
type Debrief struct {
	WhatWorked     string `json:"whatWorked,omitempty"`
	WhatDidnt      string `json:"whatDidnt,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Session is one scoped unit of agent work.
type Session struct {
	ID       string `json:"id"`
	Status   Status `json:"status"`
	Scope    Scope  `json:"scope"`
	TaskWorkID string `json:"taskWorkId,omitempty"`

	AgentIdentifier string `json:"agentIdentifier,omitempty"`

	StartedAt     time.Time  `json:"startedAt"`
	SuspendedAt   *time.Time `json:"suspendedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	ResumeCount   int        `json:"resumeCount"`
	SuspendCount  int        `json:"suspendCount"`

	Stats Stats `json:"stats"`

	PreviousSessionID string `json:"previousSessionId,omitempty"`
	NextSessionID     string `json:"nextSessionId,omitempty"`

	Handoff *Handoff `json:"handoff,omitempty"`
	Debrief *Debrief `json:"debrief,omitempty"`

	HandoffConsumedAt *time.Time `json:"handoffConsumedAt,omitempty"`
	HandoffConsumedBy string     `json:"handoffConsumedBy,omitempty"`

	GradeMode bool `json:"gradeMode"`

	TokensUsed int `json:"tokensUsed"`
}
