package dispatch

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cleodev/cleo/internal/validate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(schemas *validate.SchemaRegistry) (*Dispatcher, *Registry) {
	r := NewRegistry()
	mw := NewMiddleware(nil, nil, discardLogger())
	return NewDispatcher(r, mw, schemas), r
}

func TestDispatchResolvesAndRunsHandler(t *testing.T) {
	d, r := newTestDispatcher(nil)
	r.Register(Operation{Domain: DomainTask, Kind: KindQuery, Name: "show"},
		func(ctx context.Context, params Params, rc RequestContext) (interface{}, error) {
			return params["id"], nil
		})

	result, err := d.Dispatch(context.Background(), KindQuery, DomainTask, "show",
		Params{"id": "T1"}, RequestContext{AgentID: "dev"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "T1" {
		t.Errorf("expected T1, got %v", result)
	}
}

func TestDispatchRejectsKindMismatch(t *testing.T) {
	d, r := newTestDispatcher(nil)
	r.Register(Operation{Domain: DomainTask, Kind: KindMutate, Name: "complete"}, noopHandler)

	if _, err := d.Dispatch(context.Background(), KindQuery, DomainTask, "complete", nil, RequestContext{}); err == nil {
		t.Fatal("expected an error dispatching a mutate operation as a query")
	}
}

func TestDispatchEnforcesRegisteredSchema(t *testing.T) {
	schemas := validate.NewSchemaRegistry()
	schemas.Register("task.add", validate.FieldSpec{Name: "title", Kind: validate.KindString, Required: true})
	d, r := newTestDispatcher(schemas)
	r.Register(Operation{Domain: DomainTask, Kind: KindMutate, Name: "add"}, noopHandler)

	if _, err := d.Dispatch(context.Background(), KindMutate, DomainTask, "add", Params{}, RequestContext{}); err == nil {
		t.Fatal("expected a validation error for a missing required field")
	}

	if _, err := d.Dispatch(context.Background(), KindMutate, DomainTask, "add",
		Params{"title": "Ship it"}, RequestContext{}); err != nil {
		t.Errorf("unexpected error with a valid payload: %v", err)
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	d, r := newTestDispatcher(nil)
	r.Register(Operation{Domain: DomainTask, Kind: KindQuery, Name: "show"},
		func(ctx context.Context, params Params, rc RequestContext) (interface{}, error) {
			return nil, io.ErrUnexpectedEOF
		})

	if _, err := d.Dispatch(context.Background(), KindQuery, DomainTask, "show", nil, RequestContext{}); err == nil {
		t.Fatal("expected the handler's error to propagate")
	}
}
