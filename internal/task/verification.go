package task

import (
	"context"
	"fmt"
	"time"

	"github.com/cleodev/cleo/internal/cerrors"
)

// MaxVerificationRounds caps how many times a task's verification round
// counter may increment before dispatch refuses further gate-fail cycles
// and requires human intervention (spec §8, E_MAX_ROUNDS).
const MaxVerificationRounds = 5

// SetGate applies one gate transition to task id, enforcing the rules
// SetGate on Verification itself cannot: an agent may not approve its own
// work (self-approval), and a task cannot cycle through failing rounds
// forever. Grounded on internal/db/store.go's AddSignoff (one prepared
// statement, wrapped in a transaction, trailing history write), extended
// here into the six-gate tri-valued machine the teacher never had.
func (e *Engine) SetGate(ctx context.Context, id, gate string, value bool, agent, note string) (*Task, error) {
	t, err := e.Show(ctx, id)
	if err != nil {
		return nil, err
	}

	kind, ok := NormalizeAgent(agent)
	if !ok {
		return nil, cerrors.WithFix(cerrors.CodeInvalidInput,
			fmt.Sprintf("%q is not a recognized agent identifier", agent),
			"use one of the fixed agent kinds: dev, qa, security, docs, pm, orchestrator, human")
	}

	if creator, creatorOK := NormalizeAgent(t.CreatedBy); creatorOK && creator == kind {
		return nil, cerrors.WithFix(cerrors.CodeCircularValidation,
			"agent cannot set a verification gate on a task it created",
			"have a different agent set this gate")
	}

	if !value && t.Verification.Round >= MaxVerificationRounds {
		return nil, cerrors.WithFix(cerrors.CodeMaxRounds,
			"verification round cap reached",
			"escalate to a human reviewer instead of failing another round")
	}

	now := time.Now()
	if !value {
		t.Verification.Round++
	}
	if err := t.Verification.SetGate(gate, value, agent, note, now); err != nil {
		return nil, cerrors.New(cerrors.CodeInvalidInput, err.Error())
	}

	if t.Verification.Passed(Gate) {
		t.Status = StatusDone
		completedAt := now
		t.CompletedAt = &completedAt
	}
	t.UpdatedAt = now

	if err := e.store.UpdateTask(ctx, t); err != nil {
		return nil, cerrors.New(cerrors.CodeInternal, err.Error())
	}
	return t, nil
}
