package main

import (
	"testing"

	"github.com/cleodev/cleo/internal/dispatch"
	"github.com/cleodev/cleo/internal/validate"
)

func TestStrExtractsStringParamOrZeroValue(t *testing.T) {
	p := dispatch.Params{"title": "Ship it", "count": 3}
	if got := str(p, "title"); got != "Ship it" {
		t.Errorf("expected %q, got %q", "Ship it", got)
	}
	if got := str(p, "count"); got != "" {
		t.Errorf("expected empty string for a non-string value, got %q", got)
	}
	if got := str(p, "missing"); got != "" {
		t.Errorf("expected empty string for a missing key, got %q", got)
	}
}

func TestBooleanExtractsBoolParamOrFalse(t *testing.T) {
	p := dispatch.Params{"force": true, "title": "not a bool"}
	if got := boolean(p, "force"); !got {
		t.Error("expected true")
	}
	if got := boolean(p, "title"); got {
		t.Error("expected false for a non-bool value")
	}
	if got := boolean(p, "missing"); got {
		t.Error("expected false for a missing key")
	}
}

func TestRegisterSchemasRequiresFieldsForCoreMutateOperations(t *testing.T) {
	s := validate.NewSchemaRegistry()
	registerSchemas(s)

	for _, op := range []string{"task.add", "task.complete", "lifecycle.advance", "decision.accept", "session.begin", "session.end"} {
		if violations := s.Validate(op, map[string]interface{}{}); len(violations) == 0 {
			t.Errorf("expected %s to require at least one field when called with an empty payload", op)
		}
	}
}
