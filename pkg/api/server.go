// Package api implements the read-only HTTP surface (C9 adjunct,
// peripheral per spec.md §6): trace listing, event browsing with cursor
// pagination, artifact metadata lookup, verification report retrieval, and
// an on-demand verify trigger.
//
// Grounded on the teacher's core/pkg/console/server.go: stdlib
// http.NewServeMux() with mux.HandleFunc per route, including the
// trailing-slash-plus-bare-path registration pair
// (mux.HandleFunc("/api/runs/", ...) and mux.HandleFunc("/api/runs", ...))
// used here for /api/traces/ sub-resources, and hand-parsing path segments
// inside the handler rather than reaching for a router library — the
// teacher never imports gorilla/mux or chi anywhere in its ~450
// registered routes.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adjoshi06/chainofCommand/pkg/artifacts"
	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/keyregistry"
	"github.com/Adjoshi06/chainofCommand/pkg/ledger"
	"github.com/Adjoshi06/chainofCommand/pkg/tracestore"
	"github.com/Adjoshi06/chainofCommand/pkg/verifier"
	"github.com/google/uuid"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Server serves the read API over a trace store, artifact store, and key
// registry.
type Server struct {
	traces  *tracestore.Store
	ledger  *ledger.Ledger
	store   *artifacts.Store
	keys    *keyregistry.Registry
	profile contracts.PolicyProfile
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds the read API's handler. profile is the default policy
// profile applied to on-demand /verify runs.
func New(traces *tracestore.Store, led *ledger.Ledger, store *artifacts.Store, keys *keyregistry.Registry, profile contracts.PolicyProfile, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{traces: traces, ledger: led, store: store, keys: keys, profile: profile, logger: logger.With("component", "api")}
	s.mux = http.NewServeMux()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/traces", s.withRequestID(s.handleTraces))
	s.mux.HandleFunc("/api/traces/", s.withRequestID(s.handleTraceSubresource))
	s.mux.HandleFunc("/api/artifacts/", s.withRequestID(s.handleArtifactMetadata))
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.mux.ServeHTTP(w, req)
}

// withRequestID stamps every response with an X-Request-Id correlation
// header, grounded on core/pkg/audit/logger.go's use of google/uuid for
// per-event identifiers.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Error: message})
}

// handleTraces serves GET /api/traces.
func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessions, err := s.traces.ListTraces()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"traces": sessions})
}

// handleTraceSubresource dispatches GET/POST under /api/traces/{trace_id}/...
func (s *Server) handleTraceSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/traces/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		s.writeError(w, http.StatusNotFound, "trace_id is required")
		return
	}
	traceID := segments[0]

	switch {
	case len(segments) == 1:
		s.handleTraceGet(w, r, traceID)
	case len(segments) == 2 && segments[1] == "events":
		s.handleEventsList(w, r, traceID)
	case len(segments) == 3 && segments[1] == "events":
		s.handleEventGet(w, r, traceID, segments[2])
	case len(segments) == 2 && segments[1] == "verify":
		s.handleVerifyTrigger(w, r, traceID)
	case len(segments) == 3 && segments[1] == "reports" && segments[2] == "latest":
		s.handleReportGet(w, r, traceID, "")
	case len(segments) == 3 && segments[1] == "reports":
		s.handleReportGet(w, r, traceID, segments[2])
	default:
		s.writeError(w, http.StatusNotFound, "no such route")
	}
}

func (s *Server) handleTraceGet(w http.ResponseWriter, r *http.Request, traceID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	session, err := s.traces.LoadTrace(traceID)
	if errors.Is(err, tracestore.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "trace not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleEventsList(w http.ResponseWriter, r *http.Request, traceID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	events, err := s.ledger.ReadEvents(traceID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := r.URL.Query()
	if t := q.Get("type"); t != "" {
		events = filterEvents(events, func(e contracts.ProtocolEvent) bool { return string(e.EventType) == t })
	}
	if role := q.Get("role"); role != "" {
		events = filterEvents(events, func(e contracts.ProtocolEvent) bool { return string(e.Actor.Role) == role })
	}

	limit := defaultEventLimit
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	offset := 0
	if c := q.Get("cursor"); c != "" {
		parsed, err := decodeCursor(c)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		offset = parsed
	}
	if offset > len(events) {
		offset = len(events)
	}

	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	page := events[offset:end]

	resp := map[string]interface{}{"events": page}
	if end < len(events) {
		resp["next_cursor"] = encodeCursor(end)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func filterEvents(events []contracts.ProtocolEvent, keep func(contracts.ProtocolEvent) bool) []contracts.ProtocolEvent {
	out := make([]contracts.ProtocolEvent, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func encodeCursor(offset int) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func (s *Server) handleEventGet(w http.ResponseWriter, r *http.Request, traceID, eventID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	events, err := s.ledger.ReadEvents(traceID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, e := range events {
		if e.EventID == eventID {
			s.writeJSON(w, http.StatusOK, e)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "event not found")
}

func (s *Server) handleArtifactMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/artifacts/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) != 2 || segments[1] != "metadata" {
		s.writeError(w, http.StatusNotFound, "no such route")
		return
	}
	hash := segments[0]
	if err := contracts.ValidateHex64("artifact_hash", hash); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, err := s.store.ReadDescriptor(hash)
	if errors.Is(err, artifacts.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleReportGet(w http.ResponseWriter, r *http.Request, traceID, reportID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var (
		report contracts.VerificationReport
		err    error
	)
	if reportID == "" {
		report, err = s.traces.LoadLatestReport(traceID)
	} else {
		report, err = s.traces.LoadReport(traceID, reportID)
	}
	if errors.Is(err, tracestore.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleVerifyTrigger(w http.ResponseWriter, r *http.Request, traceID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, err := s.traces.LoadTrace(traceID); errors.Is(err, tracestore.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "trace not found")
		return
	} else if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pipeline := verifier.New(s.traces, s.ledger, s.store, s.keys, s.profile)
	report, err := pipeline.Verify(traceID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.traces.SaveReport(traceID, report); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}
