// Package rpc exposes CLEO's dispatch layer over HTTP as a single JSON
// POST /dispatch endpoint. Grounded on internal/web/server.go's Server
// struct and internal/web/api.go's jsonResponse/jsonError envelope
// helpers, with the html/template dashboard, SSE broadcaster, and setup
// wizard removed — TTY/HTML rendering is out of scope (spec.md §1); the
// JSON dispatch endpoint is the only frontend surface this package owns.
package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cleodev/cleo/internal/cerrors"
	"github.com/cleodev/cleo/internal/dispatch"
)

// Server wraps a dispatch.Dispatcher behind an HTTP handler.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	mux        *http.ServeMux
}

// NewServer constructs a Server backed by d.
func NewServer(d *dispatch.Dispatcher, logger *slog.Logger) *Server {
	s := &Server{dispatcher: d, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/dispatch", s.handleDispatch)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type dispatchRequest struct {
	Kind      dispatch.Kind     `json:"kind"`
	Domain    dispatch.Domain   `json:"domain"`
	Operation string            `json:"operation"`
	Params    dispatch.Params   `json:"params"`
	SessionID string            `json:"sessionId"`
	AgentID   string            `json:"agentId"`
}

type dispatchResponse struct {
	OK       bool        `json:"ok"`
	Result   interface{} `json:"result,omitempty"`
	Error    *cerrors.Error `json:"error,omitempty"`
	ExitCode int         `json:"exitCode"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, cerrors.New(cerrors.CodeProtocolInvalid, "POST required"))
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, cerrors.New(cerrors.CodeInvalidInput, "malformed JSON body: "+err.Error()))
		return
	}

	rc := dispatch.RequestContext{SessionID: req.SessionID, AgentID: req.AgentID}
	result, err := s.dispatcher.Dispatch(r.Context(), req.Kind, req.Domain, req.Operation, req.Params, rc)

	resp := dispatchResponse{OK: err == nil, Result: result, ExitCode: dispatch.ExitCode(err)}
	if err != nil {
		if ce, ok := err.(*cerrors.Error); ok {
			resp.Error = ce
		} else {
			resp.Error = cerrors.New(cerrors.CodeInternal, err.Error())
		}
		s.logger.Error("dispatch failed", "operation", req.Domain, "error", err)
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, e *cerrors.Error) {
	s.jsonResponse(w, status, dispatchResponse{OK: false, Error: e, ExitCode: e.ExitCode()})
}
