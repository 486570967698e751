// Package dispatch is CLEO's single entry point: every CLI verb and every
// RPC call funnels through Dispatch(kind, domain, operation, params, ctx),
// which resolves a registered Handler, wraps it in audit middleware, and
// translates its *cerrors.Error into the fixed exit-code contract.
// Grounded on internal/web/server.go + internal/web/api.go's per-route
// handler registration, generalized from "one handler per HTTP route" to
// "one handler per dotted operation name" so the CLI and the RPC server
// share one registry.
package dispatch

import "context"

// Kind distinguishes a read from a write, letting middleware decide
// whether an operation takes the advisory lock. Middleware audits every
// call, queries included, whatever its kind.
type Kind string

const (
	KindQuery  Kind = "query"
	KindMutate Kind = "mutate"
)

// Domain is the subsystem an operation belongs to.
type Domain string

const (
	DomainTask      Domain = "task"
	DomainLifecycle Domain = "lifecycle"
	DomainSession   Domain = "session"
	DomainDecision  Domain = "decision"
	DomainValidate  Domain = "validate"
	DomainAdmin     Domain = "admin"
)

// Params is the untyped argument bag a Handler receives; each Handler
// defines which keys it reads, validated with internal/validate before
// the Handler runs.
type Params map[string]interface{}

// RequestContext carries the caller identity dispatch threads through to
// audit logging, distinct from context.Context's cancellation/deadline
// role.
type RequestContext struct {
	SessionID string
	AgentID   string
}

// Handler implements one dispatch operation.
type Handler func(ctx context.Context, params Params, rc RequestContext) (interface{}, error)

// Operation names a registered handler by its fully-qualified dotted
// name, e.g. "task.complete" or "lifecycle.advance".
type Operation struct {
	Domain Domain
	Kind   Kind
	Name   string
}

// FullName returns "<domain>.<name>", the registry lookup key.
func (o Operation) FullName() string { return string(o.Domain) + "." + o.Name }
