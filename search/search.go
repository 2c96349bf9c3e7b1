// Package search implements semantic search over the problem statement
// catalog: it embeds free-text queries and runs nearest-neighbor lookups
// against the vector store, returning typed results with similarity scores.
//
// The Service connects lazily. The first operation that needs the store
// resolves the collection; a failed attempt is remembered but retried on
// the next call, so a store that comes up late heals without a restart.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/anurag-bit/sih-tj/catalog"
	"github.com/anurag-bit/sih-tj/chromadb"
)

const (
	// DefaultLimit is used when the caller passes limit <= 0.
	DefaultLimit = 20

	// MaxLimit caps the number of results per query.
	MaxLimit = 100

	// statsSampleSize bounds the records scanned for CollectionStats.
	statsSampleSize = 1000
)

// Config configures the search service.
type Config struct {
	Store    *chromadb.Client
	Embedder Embedder
	Logger   *slog.Logger
}

// Embedder is the slice of the embedding client the service needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Service answers semantic search queries against the catalog collection.
// Safe for concurrent use.
type Service struct {
	store    *chromadb.Client
	embedder Embedder
	log      *slog.Logger

	mu  sync.Mutex
	col *chromadb.Collection // nil until the first successful connect
}

// New creates a Service. No network call happens until the first operation.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		log:      log,
	}
}

// collection returns the resolved collection handle, connecting on first
// use. Connection failures are returned wrapped in ErrUnavailable and do
// not poison the service: the next call tries again.
func (s *Service) collection(ctx context.Context) (*chromadb.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col != nil {
		return s.col, nil
	}

	col, err := s.store.Connect(ctx)
	if err != nil {
		s.log.Error("vector store connection failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.col = col
	return col, nil
}

// Search embeds the query and returns up to limit catalog entries ordered
// by ascending distance (most similar first). limit <= 0 selects
// DefaultLimit; anything above MaxLimit is capped.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInsufficientInput
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	col, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrQueryFailed, err)
	}

	res, err := col.Query(ctx, vec, limit, []string{
		chromadb.IncludeMetadatas, chromadb.IncludeDocuments, chromadb.IncludeDistances,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	results := make([]catalog.SearchResult, 0, len(res.IDs))
	for i, id := range res.IDs {
		var md chromadb.Metadata
		if i < len(res.Metadatas) {
			md = res.Metadatas[i]
		}
		var doc string
		if i < len(res.Documents) {
			doc = res.Documents[i]
		}
		distance := 1.0
		if i < len(res.Distances) {
			distance = res.Distances[i]
		}
		results = append(results, mapResult(id, md, doc, distance))
	}

	s.log.Info("search completed", "query_len", len(query), "limit", limit, "results", len(results))
	return results, nil
}

// GetByID returns one catalog entry by its exact ID, or (nil, nil) if no
// record with that ID exists.
func (s *Service) GetByID(ctx context.Context, id string) (*catalog.ProblemStatement, error) {
	col, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	res, err := col.Get(ctx, chromadb.GetParams{
		IDs:     []string{id},
		Include: []string{chromadb.IncludeMetadatas, chromadb.IncludeDocuments},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if len(res.IDs) == 0 {
		return nil, nil
	}

	var md chromadb.Metadata
	if len(res.Metadatas) > 0 {
		md = res.Metadatas[0]
	}
	var doc string
	if len(res.Documents) > 0 {
		doc = res.Documents[0]
	}
	mapped := mapResult(res.IDs[0], md, doc, 0)
	return &mapped.Problem, nil
}

// Stats summarizes the collection. Category and organization histograms are
// computed over a bounded sample of the collection; Sampled reports whether
// the sample was smaller than the total.
type Stats struct {
	TotalProblems int            `json:"total_problems"`
	Categories    map[string]int `json:"categories"`
	Organizations map[string]int `json:"organizations"`
	Sampled       bool           `json:"sampled"`
}

// CollectionStats returns the total record count plus category and
// organization histograms over up to statsSampleSize records.
func (s *Service) CollectionStats(ctx context.Context) (*Stats, error) {
	col, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	total, err := col.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	stats := &Stats{
		TotalProblems: total,
		Categories:    map[string]int{},
		Organizations: map[string]int{},
		Sampled:       total > statsSampleSize,
	}
	if total == 0 {
		return stats, nil
	}

	res, err := col.Get(ctx, chromadb.GetParams{
		Limit:   statsSampleSize,
		Include: []string{chromadb.IncludeMetadatas},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	for _, md := range res.Metadatas {
		stats.Categories[metaString(md, "category", "General")]++
		stats.Organizations[metaString(md, "organization", "Unknown")]++
	}
	return stats, nil
}

// Health describes the service's view of the vector store and embedder.
type Health struct {
	Status           string `json:"status"` // "healthy" or "unhealthy"
	StoreConnected   bool   `json:"store_connected"`
	ModelLoaded      bool   `json:"model_loaded"`
	Collection       string `json:"collection,omitempty"`
	Count            int    `json:"count,omitempty"`
	Model            string `json:"model,omitempty"`
	TestQueryResults int    `json:"test_query_results"`
	Error            string `json:"error,omitempty"`
}

// HealthCheck probes the store, counts the collection, and runs one smoke
// query end to end, so the embedding path is exercised and not just the
// store connection. It never returns an error: failures are carried in the
// Health value.
func (s *Service) HealthCheck(ctx context.Context) Health {
	h := Health{Model: s.embedder.Model()}

	col, err := s.collection(ctx)
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		return h
	}
	h.StoreConnected = true
	h.Collection = col.Name()

	count, err := col.Count(ctx)
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		return h
	}
	h.Count = count

	results, err := s.Search(ctx, "test", 1)
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		return h
	}
	h.ModelLoaded = true
	h.TestQueryResults = len(results)
	h.Status = "healthy"
	return h
}
