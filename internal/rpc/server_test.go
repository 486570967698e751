package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cleodev/cleo/internal/cerrors"
	"github.com/cleodev/cleo/internal/dispatch"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer() (*Server, *dispatch.Registry) {
	r := dispatch.NewRegistry()
	mw := dispatch.NewMiddleware(nil, nil, discardLogger())
	d := dispatch.NewDispatcher(r, mw, nil)
	return NewServer(d, discardLogger()), r
}

func doDispatch(t *testing.T, s *Server, body interface{}) (*httptest.ResponseRecorder, dispatchResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("unexpected error marshalling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp dispatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error decoding response: %v", err)
	}
	return rec, resp
}

func TestHandleDispatchRunsRegisteredHandler(t *testing.T) {
	s, r := newTestServer()
	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindQuery, Name: "show"},
		func(ctx context.Context, params dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return params["id"], nil
		})

	rec, resp := doDispatch(t, s, dispatchRequest{
		Kind: dispatch.KindQuery, Domain: dispatch.DomainTask, Operation: "show",
		Params: dispatch.Params{"id": "T1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rec.Code)
	}
	if !resp.OK || resp.Result != "T1" {
		t.Errorf("expected a successful result of T1, got %+v", resp)
	}
}

func TestHandleDispatchReportsHandlerError(t *testing.T) {
	s, r := newTestServer()
	r.Register(dispatch.Operation{Domain: dispatch.DomainTask, Kind: dispatch.KindMutate, Name: "complete"},
		func(ctx context.Context, params dispatch.Params, rc dispatch.RequestContext) (interface{}, error) {
			return nil, cerrors.New(cerrors.CodeNotFound, "task not found")
		})

	_, resp := doDispatch(t, s, dispatchRequest{
		Kind: dispatch.KindMutate, Domain: dispatch.DomainTask, Operation: "complete",
	})
	if resp.OK {
		t.Fatal("expected a failed dispatch response")
	}
	if resp.Error == nil || resp.Error.Code != cerrors.CodeNotFound {
		t.Errorf("expected the handler's error code to propagate, got %+v", resp.Error)
	}
}

func TestHandleDispatchRejectsNonPost(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/dispatch", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for a non-POST request, got %d", rec.Code)
	}
}

func TestHandleDispatchRejectsMalformedJSON(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/dispatch", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed body, got %d", rec.Code)
	}
}

func TestHealthzReportsOK(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %+v", body)
	}
}
