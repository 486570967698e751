package dispatch

import (
	"context"

	"github.com/cleodev/cleo/internal/cerrors"
	"github.com/cleodev/cleo/internal/validate"
)

// Dispatcher is CLEO's single entry point, composing the Registry and
// Middleware behind the one call every surface (CLI, RPC) makes.
type Dispatcher struct {
	registry *Registry
	mw       *Middleware
	schemas  *validate.SchemaRegistry
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(registry *Registry, mw *Middleware, schemas *validate.SchemaRegistry) *Dispatcher {
	return &Dispatcher{registry: registry, mw: mw, schemas: schemas}
}

// Dispatch resolves domain.operation, validates params against its
// registered schema, and runs the handler through the audit/lock
// middleware. Every error returned is a *cerrors.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, domain Domain, operation string, params Params, rc RequestContext) (interface{}, error) {
	op, handler, err := d.registry.Resolve(domain, operation)
	if err != nil {
		return nil, err
	}
	if op.Kind != kind {
		return nil, cerrors.New(cerrors.CodeProtocolInvalid,
			"operation "+op.FullName()+" is not a "+string(kind)+" operation")
	}

	if d.schemas != nil {
		if violations := d.schemas.Validate(op.FullName(), map[string]interface{}(params)); len(violations) > 0 {
			return nil, cerrors.Validation(violations)
		}
	}

	wrapped := d.mw.Wrap(op, handler)
	return wrapped(ctx, params, rc)
}
