// Package server implements the HTTP surface of spec §6.4/§9: task
// submission, web/agent inspection, and a Prometheus metrics endpoint,
// grounded on this codebase's chi-based transport layer
// (pkg/transport/http_metrics_middleware.go) adapted from a generic
// metrics-wrapping middleware to this runtime's own resource routes.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Pharbi/arachnid/internal/core"
	"github.com/Pharbi/arachnid/internal/engine"
	"github.com/Pharbi/arachnid/internal/telemetry"
)

// Server exposes the coordination engine over HTTP.
type Server struct {
	Engine  *engine.Engine
	Metrics *telemetry.Metrics
	Logger  telemetry.Logger
}

// Router builds the chi mux with every route this runtime exposes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", s.Metrics.Handler())

	r.Route("/v1/webs", func(r chi.Router) {
		r.Post("/", s.handleCreateWeb)
		r.Get("/", s.handleListWebs)
		r.Get("/{webID}", s.handleGetWeb)
		r.Get("/{webID}/agents", s.handleListAgents)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Logger.Info("request handled", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createWebRequest struct {
	Task       string         `json:"task"`
	Capability string         `json:"capability"`
	Config     *core.Config   `json:"config,omitempty"`
}

type createWebResponse struct {
	WebID string `json:"web_id"`
}

func (s *Server) handleCreateWeb(w http.ResponseWriter, r *http.Request) {
	var req createWebRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Task == "" {
		writeError(w, http.StatusBadRequest, "task is required")
		return
	}

	webID := uuid.NewString()
	cfg := req.Config
	if cfg == nil {
		cfg = core.DefaultConfig()
	}

	if err := s.Engine.CreateWeb(r.Context(), webID, req.Task, req.Capability, cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, createWebResponse{WebID: webID})
}

func (s *Server) handleListWebs(w http.ResponseWriter, r *http.Request) {
	webs, err := s.Engine.Store.ListRunningWebs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, webs)
}

func (s *Server) handleGetWeb(w http.ResponseWriter, r *http.Request) {
	webID := chi.URLParam(r, "webID")
	web, err := s.Engine.Store.GetWeb(r.Context(), webID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, web)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	webID := chi.URLParam(r, "webID")
	agents, err := s.Engine.Store.ListAgents(r.Context(), webID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
