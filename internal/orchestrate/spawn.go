package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleodev/cleo/internal/task"
)

// SpawnContext is the context bundle an external agent runner would hand
// to a freshly spawned agent process. Grounded on orchestrator_prd.go's
// spawnSingleExpert: there, the prompt-assembly half builds a context
// block before invoking a subprocess; CLEO keeps only that assembly half
// since it never invokes the subprocess itself (Non-goal: no automatic
// scheduling of agent work).
type SpawnContext struct {
	TaskID      string
	Title       string
	Description string
	Acceptance  []string
	ParentChain []string
	AgentKind   task.AgentKind
}

// Render produces a plain-text briefing from c, for a caller to hand to
// whatever external agent process it launches.
func (c SpawnContext) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n%s\n\n", c.TaskID, c.Title)
	if c.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", c.Description)
	}
	if len(c.ParentChain) > 0 {
		fmt.Fprintf(&b, "Context: %s\n", strings.Join(c.ParentChain, " > "))
	}
	if len(c.Acceptance) > 0 {
		b.WriteString("Acceptance criteria:\n")
		for _, a := range c.Acceptance {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}
	fmt.Fprintf(&b, "\nAssigned agent: %s\n", task.DisplayName(c.AgentKind))
	return b.String()
}

// Spawn assembles the SpawnContext for id, walking its parent chain for
// breadcrumb context the way spawnSingleExpert assembles a ticket's
// ancestry before handing it to an expert agent.
func (o *Orchestrator) Spawn(ctx context.Context, id string, agent task.AgentKind) (*SpawnContext, error) {
	t, err := o.engine.Show(ctx, id)
	if err != nil {
		return nil, err
	}

	var chain []string
	cur := t
	for cur.ParentID != "" {
		parent, err := o.engine.Show(ctx, cur.ParentID)
		if err != nil {
			break
		}
		chain = append([]string{parent.Title}, chain...)
		cur = parent
	}

	return &SpawnContext{
		TaskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		Acceptance:  t.Acceptance,
		ParentChain: chain,
		AgentKind:   agent,
	}, nil
}
