// Package api exposes the search, recommendation, chat, and analytics
// services over HTTP, mirroring the shape the frontend expects.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anurag-bit/sih-tj/chat"
	"github.com/anurag-bit/sih-tj/dashboard"
	"github.com/anurag-bit/sih-tj/github"
	"github.com/anurag-bit/sih-tj/search"
)

// Config wires the services into the router.
type Config struct {
	Search    *search.Service
	GitHub    *github.Service
	Chat      *chat.Service
	Dashboard *dashboard.Service

	// DocgenURL is the base URL of the document generation sidecar.
	// Empty disables the /api/docgen proxy.
	DocgenURL string

	// CORSOrigins allowed by the browser. Empty allows all.
	CORSOrigins []string

	Logger *slog.Logger
}

type server struct {
	cfg Config
	log *slog.Logger
}

// NewRouter builds the chi router with all API routes mounted.
func NewRouter(cfg Config) chi.Router {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &server{cfg: cfg, log: log}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/search", func(r chi.Router) {
			r.Post("/", s.handleSearch)
			r.Get("/problem/{id}", s.handleProblem)
			r.Get("/stats", s.handleSearchStats)
			r.Get("/health", s.handleSearchHealth)
		})

		r.Route("/github", func(r chi.Router) {
			r.Post("/recommend", s.handleRecommend)
			r.Get("/profile/{username}", s.handleProfile)
			r.Get("/health", s.handleGitHubHealth)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", s.handleChat)
			r.Post("/stream", s.handleChatStream)
			r.Get("/suggestions", s.handleChatSuggestions)
			r.Get("/models", s.handleChatModels)
			r.Get("/health", s.handleChatHealth)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats", s.handleDashboardStats)
			r.Get("/categories", s.handleDashboardCategories)
			r.Get("/technology-trends", s.handleDashboardTrends)
			r.Post("/clear-cache", s.handleDashboardClearCache)
			r.Get("/health", s.handleDashboardHealth)
		})

		if cfg.DocgenURL != "" {
			r.Handle("/docgen/*", s.docgenProxy())
		}
	})

	return r
}

// statusFor maps service errors to HTTP status codes. Unknown errors are
// internal: never leaked as anything more specific.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrInsufficientInput),
		errors.Is(err, chat.ErrInvalidContext),
		errors.Is(err, github.ErrInsufficientData):
		return http.StatusBadRequest
	case errors.Is(err, github.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, github.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, search.ErrUnavailable),
		errors.Is(err, dashboard.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, search.ErrQueryFailed),
		errors.Is(err, dashboard.ErrScanFailed),
		errors.Is(err, github.ErrUpstream),
		errors.Is(err, chat.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *server) writeServiceError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.log.Error("request failed", "error", err, "status", code)
	}
	writeError(w, code, err)
}
