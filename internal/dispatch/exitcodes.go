package dispatch

import "github.com/cleodev/cleo/internal/cerrors"

// ExitCode translates the outcome of a Dispatch call into the numeric
// process exit code the CLI surface returns, and the RPC surface embeds
// in its JSON envelope. A nil err (success) is exit code 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ce, ok := err.(*cerrors.Error); ok {
		return ce.ExitCode()
	}
	return 1
}
