package cerrors

import "testing"

func TestErrorImplementsErrorInterface(t *testing.T) {
	err := New(CodeNotFound, "task not found")
	if err.Error() != "E_NOT_FOUND: task not found" {
		t.Errorf("unexpected Error() string: %q", err.Error())
	}
}

func TestExitCodeFallsBackToOneWhenUnmapped(t *testing.T) {
	err := &Error{Code: "E_SOMETHING_NEW"}
	if err.ExitCode() != 1 {
		t.Errorf("expected fallback exit code 1, got %d", err.ExitCode())
	}
}

func TestExitCodeMatchesTable(t *testing.T) {
	cases := map[Code]int{
		CodeOK:                 0,
		CodeInvalidInput:       2,
		CodeNotFound:           4,
		CodeLockTimeout:        7,
		CodeHasChildren:        10,
		CodeCircularValidation: 70,
		CodeHandoffRequired:    65,
	}
	for code, want := range cases {
		err := New(code, "x")
		if got := err.ExitCode(); got != want {
			t.Errorf("code %s: exit code = %d, want %d", code, got, want)
		}
	}
}

func TestValidationAggregatesViolations(t *testing.T) {
	err := Validation([]string{"a", "b"})
	if err.Code != CodeValidation {
		t.Errorf("expected CodeValidation, got %s", err.Code)
	}
	if len(err.Violations) != 2 {
		t.Errorf("expected 2 violations, got %d", len(err.Violations))
	}
}

func TestNotFoundMessageIncludesKindAndID(t *testing.T) {
	err := NotFound("task", "T001")
	if err.Code != CodeNotFound {
		t.Errorf("expected CodeNotFound, got %s", err.Code)
	}
	if err.Message != "task not found: T001" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestWithFixSetsFixField(t *testing.T) {
	err := WithFix(CodeMaxDepth, "too deep", "flatten the hierarchy")
	if err.Fix != "flatten the hierarchy" {
		t.Errorf("expected fix text to be set, got %q", err.Fix)
	}
}
