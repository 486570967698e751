package validate

import "testing"

func TestCheckProtocolResearchRequiresKeyFindingsRange(t *testing.T) {
	e := ManifestEntry{AgentType: "research", Title: "findings", KeyFindings: []string{"a", "b"}}
	violations := CheckProtocol(e)
	found := false
	for _, v := range violations {
		if v.Requirement == "research.keyFindings" {
			found = true
		}
	}
	if !found {
		t.Error("expected a key-findings-range violation for only 2 findings")
	}
}

func TestCheckProtocolResearchWithinRangePasses(t *testing.T) {
	e := ManifestEntry{AgentType: "research", Title: "findings", KeyFindings: []string{"a", "b", "c"}}
	if violations := CheckProtocol(e); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestCheckProtocolADRRequiresLinkedTask(t *testing.T) {
	e := ManifestEntry{AgentType: "adr", Title: "decision record"}
	violations := CheckProtocol(e)
	found := false
	for _, v := range violations {
		if v.Requirement == "adr.linkedTasks" {
			found = true
		}
	}
	if !found {
		t.Error("expected adr.linkedTasks violation")
	}
}

func TestCheckProtocolADRCannotBeActionableBeforeAccepted(t *testing.T) {
	e := ManifestEntry{
		AgentType:   "adr",
		Title:       "decision record",
		LinkedTasks: []string{"T1"},
		Actionable:  true,
		Status:      "proposed",
	}
	violations := CheckProtocol(e)
	found := false
	for _, v := range violations {
		if v.Requirement == "adr.acceptance" {
			found = true
		}
	}
	if !found {
		t.Error("expected adr.acceptance violation for actionable-before-accepted")
	}
}

func TestCheckProtocolFlagsMissingTitle(t *testing.T) {
	e := ManifestEntry{AgentType: "research", KeyFindings: []string{"a", "b", "c"}}
	violations := CheckProtocol(e)
	found := false
	for _, v := range violations {
		if v.Requirement == "manifest.title" {
			found = true
		}
	}
	if !found {
		t.Error("expected manifest.title violation")
	}
}
