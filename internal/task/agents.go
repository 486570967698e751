package task

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AgentKind is one of the fixed agent identifiers recognized by the gate
// machine and the audit log. Grounded on agents/provider/factory.go's
// Register/Get provider registry, repurposed here as a closed whitelist
// rather than a live client registry — CLEO records which kind of agent
// touched a gate, it never calls one.
type AgentKind string

const (
	AgentDev          AgentKind = "dev"
	AgentQA           AgentKind = "qa"
	AgentSecurity     AgentKind = "security"
	AgentDocs         AgentKind = "docs"
	AgentPM           AgentKind = "pm"
	AgentOrchestrator AgentKind = "orchestrator"
	AgentHuman        AgentKind = "human"
)

var knownAgents = map[AgentKind]bool{
	AgentDev: true, AgentQA: true, AgentSecurity: true,
	AgentDocs: true, AgentPM: true, AgentOrchestrator: true, AgentHuman: true,
}

var titleCaser = cases.Title(language.English)

// NormalizeAgent case-folds a raw agent identifier against the known
// whitelist, returning ok=false for anything unrecognized.
func NormalizeAgent(raw string) (AgentKind, bool) {
	lower := cases.Lower(language.English).String(raw)
	kind := AgentKind(lower)
	return kind, knownAgents[kind]
}

// DisplayName renders an AgentKind for audit/log output, e.g. "Security".
func DisplayName(k AgentKind) string {
	return titleCaser.String(string(k))
}
