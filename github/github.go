// Package github turns a GitHub profile into problem statement
// recommendations: it fetches a user's public repositories, infers their
// tech stack, renders the profile as a synthetic query document, and runs
// it through semantic search.
//
// Analyzed profiles are cached for an hour so repeated recommendations for
// the same user cost one GitHub API round instead of dozens.
package github

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/anurag-bit/sih-tj/catalog"
)

const (
	profileCacheSize = 100
	profileCacheTTL  = time.Hour

	recommendLimit = 20
)

// Searcher is the slice of the search engine the recommender needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error)
}

// Config configures the recommendation service.
type Config struct {
	Client   *Client
	Searcher Searcher
	Logger   *slog.Logger
}

// Service produces recommendations from GitHub profiles. Safe for
// concurrent use.
type Service struct {
	client   *Client
	searcher Searcher
	cache    *expirable.LRU[string, catalog.GitHubProfile]
	log      *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		client:   cfg.Client,
		searcher: cfg.Searcher,
		cache:    expirable.NewLRU[string, catalog.GitHubProfile](profileCacheSize, nil, profileCacheTTL),
		log:      log,
	}
}

// Profile returns the analyzed profile for a username, serving from cache
// when a fresh entry exists.
func (s *Service) Profile(ctx context.Context, username string) (catalog.GitHubProfile, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	profile, err := s.client.FetchProfile(ctx, key)
	if err != nil {
		return catalog.GitHubProfile{}, err
	}
	s.cache.Add(key, profile)
	s.log.Info("github profile analyzed",
		"username", key,
		"repositories", len(profile.Repositories),
		"tech_stack", len(profile.TechStack))
	return profile, nil
}

// Recommend returns the problem statements most similar to a user's GitHub
// footprint. A profile with nothing to analyze yields ErrInsufficientData.
func (s *Service) Recommend(ctx context.Context, username string) ([]catalog.SearchResult, error) {
	profile, err := s.Profile(ctx, username)
	if err != nil {
		return nil, err
	}

	doc := BuildProfileDocument(profile)
	if strings.TrimSpace(doc) == "" {
		return nil, ErrInsufficientData
	}
	return s.searcher.Search(ctx, doc, recommendLimit)
}

// Health describes the recommender's view of the GitHub API.
type Health struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	CachedUsers   int    `json:"cached_users"`
	Error         string `json:"error,omitempty"`
}

// HealthCheck probes the GitHub API. It never returns an error.
func (s *Service) HealthCheck(ctx context.Context) Health {
	h := Health{
		Status:        "healthy",
		Authenticated: s.client.token != "",
		CachedUsers:   s.cache.Len(),
	}
	if err := s.client.CheckReachable(ctx); err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
	}
	return h
}
