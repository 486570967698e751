package task

import (
	"context"
	"testing"
)

// TestGateCascadeResetsDownstream mirrors spec.md's S3 scenario: failing
// qaPassed resets cleanupDone/securityPassed/documented to untouched and
// appends a failure-log entry.
func TestGateCascadeResetsDownstream(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	tk, err := e.Add(ctx, &Task{Title: "Gate me", Description: "has gates"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := e.SetGate(ctx, tk.ID, "implemented", true, "dev", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.SetGate(ctx, tk.ID, "testsPassed", true, "qa", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, err := e.SetGate(ctx, tk.ID, "qaPassed", true, "qa", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Verification.QAPassed == nil || !*updated.Verification.QAPassed {
		t.Fatalf("expected qaPassed true, got %+v", updated.Verification)
	}

	failed, err := e.SetGate(ctx, tk.ID, "qaPassed", false, "security", "found a regression")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := failed.Verification
	if v.QAPassed == nil || *v.QAPassed {
		t.Errorf("expected qaPassed false, got %+v", v.QAPassed)
	}
	if v.CleanupDone != nil || v.SecurityPassed != nil || v.Documented != nil {
		t.Errorf("expected downstream gates reset to untouched, got %+v", v)
	}
	if len(v.FailureLog) != 1 {
		t.Fatalf("expected one failure-log entry, got %d", len(v.FailureLog))
	}
	if v.FailureLog[0].Gate != "qaPassed" || v.FailureLog[0].Agent != "security" {
		t.Errorf("unexpected failure entry: %+v", v.FailureLog[0])
	}
}

func TestSetGateRejectsSelfApproval(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	tk, err := e.Add(ctx, &Task{Title: "Self review", Description: "needs review", CreatedBy: "dev"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.SetGate(ctx, tk.ID, "implemented", true, "dev", ""); err == nil {
		t.Fatal("expected E_CIRCULAR_VALIDATION for self-approval")
	}
	if _, err := e.SetGate(ctx, tk.ID, "implemented", true, "qa", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.SetGate(ctx, tk.ID, "qaPassed", true, "dev", ""); err == nil {
		t.Fatal("expected E_CIRCULAR_VALIDATION for self-approval")
	}
}

func TestPassedDerivesFromRequiredGates(t *testing.T) {
	v := &Verification{}
	if v.Passed(Gate) {
		t.Fatal("expected untouched gates to not pass")
	}
	for _, g := range Gate {
		v.SetGate(g, true, "dev", "", v.LastUpdated)
	}
	if !v.Passed(Gate) {
		t.Fatal("expected all gates true to pass")
	}
}

func TestPassedHonorsConfiguredSubset(t *testing.T) {
	v := &Verification{}
	v.SetGate("implemented", true, "dev", "", v.LastUpdated)
	if !v.Passed([]string{"implemented"}) {
		t.Fatal("expected subset requirement to pass with only implemented set")
	}
	if v.Passed(Gate) {
		t.Fatal("expected full gate list to still fail")
	}
}

func TestSetGateCapsAtMaxRounds(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	tk, err := e.Add(ctx, &Task{Title: "Round capped", Description: "fails repeatedly"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var lastErr error
	for i := 0; i < MaxVerificationRounds+1; i++ {
		_, lastErr = e.SetGate(ctx, tk.ID, "implemented", false, "dev", "nope")
	}
	if lastErr == nil {
		t.Fatal("expected an error once the round cap is exceeded")
	}
}
