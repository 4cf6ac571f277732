// Package web exposes the transition-request surface and the audit
// query API over HTTP. The handlers are thin: gates and sweep logic
// live in their own packages; this layer only validates input, shapes
// JSON, and picks status codes.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/steveyegge/mergegate/internal/gate"
	"github.com/steveyegge/mergegate/internal/store"
	"github.com/steveyegge/mergegate/internal/sweep"
	"github.com/steveyegge/mergegate/internal/task"
)

// Server wires the HTTP surface to the core components.
type Server struct {
	st       store.Store
	enforcer *gate.Enforcer
	sweeper  *sweep.Sweeper
}

// New creates a Server.
func New(st store.Store, enforcer *gate.Enforcer, sweeper *sweep.Sweeper) *Server {
	return &Server{st: st, enforcer: enforcer, sweeper: sweeper}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Patch("/tasks/{id}", s.handlePatchTask)
		r.Post("/sweep", s.handleSweep)
		r.Get("/merge-log", s.handleMergeLog)
	})
	return r
}

// patchRequest is the transition-request wire format.
type patchRequest struct {
	Status   string        `json:"status"`
	Metadata task.Metadata `json:"metadata"`
}

// patchResponse is returned for both approvals and rejections. Gate is
// a stable identifier callers branch on programmatically.
type patchResponse struct {
	Success             bool       `json:"success"`
	Task                *task.Task `json:"task,omitempty"`
	Gate                string     `json:"gate,omitempty"`
	Error               string     `json:"error,omitempty"`
	SkippedVerification bool       `json:"skipped_verification,omitempty"`
}

func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !isValidID(id) {
		writeJSON(w, http.StatusBadRequest, patchResponse{Success: false, Error: "invalid task id"})
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, patchResponse{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}
	status, err := task.ParseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, patchResponse{Success: false, Error: err.Error()})
		return
	}

	if _, err := s.st.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, patchResponse{Success: false, Error: "task not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, patchResponse{Success: false, Error: err.Error()})
		return
	}

	updated, out := s.enforcer.Transition(r.Context(), s.st, id, gate.Request{
		Status:   status,
		Metadata: req.Metadata,
	})
	if out.Decision == gate.Rejected {
		writeJSON(w, http.StatusBadRequest, patchResponse{
			Success: false,
			Gate:    out.Gate,
			Error:   out.Reason,
		})
		return
	}

	writeJSON(w, http.StatusOK, patchResponse{
		Success:             true,
		Task:                updated,
		SkippedVerification: out.Decision == gate.ApprovedSkipped,
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	// An on-demand pass must visit every validating task even when the
	// request hits the router timeout or the client hangs up, so it runs
	// detached from the request's cancellation.
	summary, err := s.sweeper.RunOnce(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, sweep.ErrPassInFlight) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMergeLog(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 1000)
	entries := s.sweeper.Log().Recent(limit)
	if entries == nil {
		entries = []sweep.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if last := s.sweeper.LastSummary(); last != nil {
		resp["last_sweep"] = last.FinishedAt
		resp["last_pass_id"] = last.PassID
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
