// Package cerrors defines CLEO's closed error-code enumeration and the
// structured Error type every engine returns across the dispatch boundary.
// Handlers never panic or return a bare error past the engine layer — they
// return *Error so dispatch can translate it into the fixed exit-code table
// from spec.md §6/§7 without any wrapping.
package cerrors

// Code is one of the closed set of error codes named in spec.md §7.
type Code string

const (
	// Success (0).
	CodeOK Code = "OK"

	// General / internal (1, 3).
	CodeInternal Code = "E_INTERNAL"

	// Invalid input (2).
	CodeInvalidInput Code = "E_INVALID_INPUT"
	CodeValidation   Code = "E_VALIDATION"

	// Not found (4).
	CodeNotFound Code = "E_NOT_FOUND"

	// Lock timeout (7).
	CodeLockTimeout Code = "E_LOCK_TIMEOUT"

	// Hierarchy (10-19).
	CodeHasChildren    Code = "E_HAS_CHILDREN"
	CodeMaxDepth       Code = "E_MAX_DEPTH"
	CodeCycle          Code = "E_CYCLE"
	CodeTaskNotInScope Code = "E_TASK_NOT_IN_SCOPE"

	// Concurrency (20-29).
	CodeChecksumMismatch       Code = "E_CHECKSUM_MISMATCH"
	CodeConcurrentModification Code = "E_CONCURRENT_MODIFICATION"
	CodeTaskClaimed            Code = "E_TASK_CLAIMED"

	// Session (30-39).
	CodeSessionExists   Code = "E_SESSION_EXISTS"
	CodeNoActiveSession Code = "E_NO_ACTIVE_SESSION"

	// Verification (40-49; E_CIRCULAR_VALIDATION has the fixed code 70).
	CodeCircularValidation Code = "E_CIRCULAR_VALIDATION"
	CodeMaxRounds          Code = "E_MAX_ROUNDS"

	// Protocol (60-67).
	CodeHandoffRequired Code = "E_HANDOFF_REQUIRED"
	CodeProtocolInvalid Code = "E_PROTOCOL_INVALID"

	// Lifecycle gate (80-84).
	CodeGateFailed Code = "E_GATE_FAILED"
	CodeGateBlocked Code = "E_GATE_BLOCKED"

	// Artifact / provenance (85-94).
	CodeArtifactWriteFailed Code = "E_ARTIFACT_WRITE_FAILED"

	// Dispatch (no handler registered).
	CodeNoHandler   Code = "E_NO_HANDLER"
	CodeCancelled   Code = "E_CANCELLED"
)

// ExitCodes is the fixed mapping from error code to numeric process/RPC
// exit code, the canonical contract shared by the CLI and RPC callers
// (spec.md §6).
var ExitCodes = map[Code]int{
	CodeOK:                    0,
	CodeInternal:              1,
	CodeInvalidInput:          2,
	CodeValidation:            2,
	CodeNotFound:              4,
	CodeLockTimeout:           7,
	CodeHasChildren:           10,
	CodeMaxDepth:              11,
	CodeCycle:                 12,
	CodeTaskNotInScope:        13,
	CodeChecksumMismatch:       20,
	CodeConcurrentModification: 21,
	CodeTaskClaimed:            22,
	CodeSessionExists:          30,
	CodeNoActiveSession:        31,
	CodeCircularValidation:    70,
	CodeMaxRounds:             41,
	CodeHandoffRequired:       65,
	CodeProtocolInvalid:       61,
	CodeGateFailed:            80,
	CodeGateBlocked:           81,
	CodeArtifactWriteFailed:   85,
	CodeNoHandler:             3,
	CodeCancelled:             3,
}

// Error is the structured failure shape that crosses the dispatch boundary.
// Handlers return *Error instead of a bare Go error; adapters translate it
// into the surface-appropriate form (CLI: message + exit code, RPC: JSON
// envelope).
type Error struct {
	Code         Code     `json:"code"`
	Message      string   `json:"message"`
	Violations   []string `json:"violations,omitempty"`
	Fix          string   `json:"fix,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// ExitCode returns the numeric exit code for e's Code, or 1 if unmapped.
func (e *Error) ExitCode() int {
	if c, ok := ExitCodes[e.Code]; ok {
		return c
	}
	return 1
}

// New constructs an Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithFix constructs an Error with a fix hint.
func WithFix(code Code, message, fix string) *Error {
	return &Error{Code: code, Message: message, Fix: fix}
}

// Validation constructs an aggregated validation error from violations.
func Validation(violations []string) *Error {
	return &Error{Code: CodeValidation, Message: "validation failed", Violations: violations}
}

// NotFound constructs a not-found error for the given entity kind/id.
func NotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: kind + " not found: " + id}
}
