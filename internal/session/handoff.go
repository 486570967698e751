package session

import "strings"

// ComposeHandoff reduces a session's accumulated state into a structured
// Handoff, a pure function with no store dependency so it is trivially
// testable. Grounded on orchestrator_prd.go's parsePMSynthesisResponse:
// there, free-text agent responses are reduced into a synthesis struct;
// here the reduction runs over CLEO's own structured Stats instead of
// parsed Markdown.
func ComposeHandoff(s *Session, summary string, openQuestions, nextSteps []string) *Handoff {
	return &Handoff{
		Summary:       strings.TrimSpace(summary),
		OpenQuestions: openQuestions,
		NextSteps:     nextSteps,
		TaskWorkID:    s.TaskWorkID,
	}
}

// ComposeDebrief builds a Debrief from a session's own self-reported
// reflection fields.
func ComposeDebrief(whatWorked, whatDidnt, recommendation string) *Debrief {
	return &Debrief{
		WhatWorked:     strings.TrimSpace(whatWorked),
		WhatDidnt:      strings.TrimSpace(whatDidnt),
		Recommendation: strings.TrimSpace(recommendation),
	}
}

// RequiresHandoff reports whether the session made any progress (started
// or completed at least one task, or set a gate). Engine.End does not
// consult it: a session ends with or without a handoff summary.
func RequiresHandoff(s *Session) bool {
	return s.Stats.TasksStarted > 0 || s.Stats.TasksCompleted > 0 || s.Stats.GatesSet > 0
}
