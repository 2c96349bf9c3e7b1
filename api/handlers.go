package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anurag-bit/sih-tj/chat"
)

// --- search ---

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	results, err := s.cfg.Search.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *server) handleProblem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	problem, err := s.cfg.Search.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if problem == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("problem not found: %s", id))
		return
	}
	writeJSON(w, http.StatusOK, problem)
}

func (s *server) handleSearchStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.Search.CollectionStats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleSearchHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Search.HealthCheck(r.Context()))
}

// --- github ---

type recommendRequest struct {
	Username string `json:"username"`
}

func (s *server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("username is required"))
		return
	}

	results, err := s.cfg.GitHub.Recommend(r.Context(), req.Username)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	profile, err := s.cfg.GitHub.Profile(r.Context(), username)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *server) handleGitHubHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.GitHub.HealthCheck(r.Context()))
}

// --- chat ---

type chatRequest struct {
	ProblemContext string `json:"problem_context"`
	Question       string `json:"question"`
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	answer, err := s.cfg.Chat.Respond(r.Context(), req.ProblemContext, req.Question)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

func (s *server) handleChatSuggestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"questions": chat.SuggestedQuestions()})
}

func (s *server) handleChatModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.cfg.Chat.Models()})
}

func (s *server) handleChatHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if !s.cfg.Chat.Configured() {
		status = "unconfigured"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"model":  s.cfg.Chat.Model(),
	})
}

// --- dashboard ---

func (s *server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Has("force_refresh")
	stats, err := s.cfg.Dashboard.Stats(r.Context(), force)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleDashboardCategories(w http.ResponseWriter, r *http.Request) {
	breakdown, err := s.cfg.Dashboard.CategoryBreakdown(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *server) handleDashboardTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.cfg.Dashboard.TechnologyTrends(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *server) handleDashboardClearCache(w http.ResponseWriter, _ *http.Request) {
	s.cfg.Dashboard.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func (s *server) handleDashboardHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Dashboard.HealthCheck(r.Context()))
}
