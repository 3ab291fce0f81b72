package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/csvanomaly/internal/core"
	"github.com/JonMunkholm/csvanomaly/internal/web/templates"
)

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.UploadPage(templates.PageData{
		Limits:                s.pipeline.Limits(),
		ExplainabilityEnabled: s.pipeline.ExplainabilityEnabled(),
		CategoricalEnabled:    s.pipeline.CategoricalEnabled(),
		DefaultPercentile:     s.pipeline.DefaultPercentile(),
	})
	if err := page.Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status         string                `json:"status"`
	Runs           core.RunLimiterStatus `json:"runs"`
	Explainability bool                  `json:"explainability"`
	Categorical    bool                  `json:"categorical"`
}

// handleHealth reports liveness and run slot occupancy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Runs:           s.limiter.Status(),
		Explainability: s.pipeline.ExplainabilityEnabled(),
		Categorical:    s.pipeline.CategoricalEnabled(),
	})
}

// handleLimits returns the sanitization limits in effect.
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Limits())
}

// RunsResponse is the body of GET /api/runs.
type RunsResponse struct {
	Runs []core.RunRecord `json:"runs"`
}

// handleRuns lists recent detection runs, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, r, core.NewError(core.KindInvalidParameter, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	store := s.pipeline.Runs()
	if store == nil {
		writeJSON(w, http.StatusOK, RunsResponse{Runs: []core.RunRecord{}})
		return
	}

	runs, err := store.Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}
