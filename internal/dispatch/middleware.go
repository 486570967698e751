package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cleodev/cleo/internal/audit"
	"github.com/cleodev/cleo/internal/cerrors"
	"github.com/cleodev/cleo/internal/store"
)

// Middleware wraps every dispatched call with the audit log and, for
// mutating operations, the advisory lock. Grounded on internal/web/
// server.go's jsonResponse/jsonError envelope helpers, generalized from
// an HTTP-only concern into something the CLI path shares too.
type Middleware struct {
	accessor *store.Accessor
	auditor  *audit.Logger
	logger   *slog.Logger
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(accessor *store.Accessor, auditor *audit.Logger, logger *slog.Logger) *Middleware {
	return &Middleware{accessor: accessor, auditor: auditor, logger: logger}
}

// Wrap runs h under the audit log, and under the advisory lock if op is a
// KindMutate operation.
func (m *Middleware) Wrap(op Operation, h Handler) Handler {
	return func(ctx context.Context, params Params, rc RequestContext) (interface{}, error) {
		start := time.Now()
		requestID := uuid.NewString()
		m.logger.Debug("dispatch start", "request_id", requestID, "operation", op.FullName(), "session_id", rc.SessionID)

		var result interface{}
		var callErr error

		run := func(ctx context.Context) error {
			result, callErr = h(ctx, params, rc)
			return nil
		}

		if op.Kind == KindMutate && m.accessor != nil {
			lockErr := m.accessor.WithLock(ctx, rc.AgentID, run)
			if lockErr != nil {
				callErr = cerrors.New(cerrors.CodeLockTimeout, lockErr.Error())
			}
		} else {
			run(ctx)
		}

		outcome := "ok"
		var cErr *cerrors.Error
		if callErr != nil {
			outcome = "error"
			if ce, ok := callErr.(*cerrors.Error); ok {
				cErr = ce
			} else {
				cErr = cerrors.New(cerrors.CodeInternal, callErr.Error())
			}
			callErr = cErr
		}

		if m.auditor != nil {
			m.auditor.Record(ctx, audit.Entry{
				Operation: op.FullName(),
				SessionID: rc.SessionID,
				AgentID:   rc.AgentID,
				Outcome:   outcome,
				Duration:  time.Since(start),
			})
		}

		m.logger.Debug("dispatch end", "request_id", requestID, "operation", op.FullName(),
			"outcome", outcome, "elapsed", time.Since(start))

		return result, callErr
	}
}
