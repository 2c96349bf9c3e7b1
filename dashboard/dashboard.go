// Package dashboard computes aggregate analytics over the whole problem
// statement catalog: category and organization histograms plus a ranked
// keyword list extracted from titles, descriptions, and tech stacks.
//
// The full scan is expensive, so results are cached with a TTL and
// recomputation is single-flighted: concurrent cold reads share one scan.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anurag-bit/sih-tj/catalog"
	"github.com/anurag-bit/sih-tj/chromadb"
)

// ErrUnavailable is returned when the vector store is unreachable.
var ErrUnavailable = errors.New("dashboard: vector store unavailable")

// ErrScanFailed is returned when the catalog scan fails mid-way.
var ErrScanFailed = errors.New("dashboard: catalog scan failed")

const (
	// DefaultTTL is how long a computed snapshot stays fresh.
	DefaultTTL = 15 * time.Minute

	// scanPageSize is the Get page size for the full catalog scan.
	scanPageSize = 1000

	topKeywordCount      = 30
	topOrganizationCount = 10
)

// Config configures the analytics service.
type Config struct {
	Store  *chromadb.Client
	TTL    time.Duration // default: DefaultTTL
	Logger *slog.Logger
}

// Service computes and caches dashboard statistics. Safe for concurrent use.
type Service struct {
	store *chromadb.Client
	log   *slog.Logger

	mu  sync.Mutex
	col *chromadb.Collection

	cache statCache
	group singleflight.Group
}

// New creates a Service. No network call happens until the first operation.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store: cfg.Store,
		log:   log,
		cache: statCache{ttl: ttl},
	}
}

// statCache holds one snapshot with its computation time.
type statCache struct {
	mu    sync.Mutex
	value *catalog.DashboardStats
	stamp time.Time
	ttl   time.Duration
}

// get returns the cached snapshot, or nil if absent or expired.
func (c *statCache) get() *catalog.DashboardStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil || time.Since(c.stamp) > c.ttl {
		return nil
	}
	return c.value
}

func (c *statCache) set(v *catalog.DashboardStats) {
	c.mu.Lock()
	c.value = v
	c.stamp = time.Now()
	c.mu.Unlock()
}

func (c *statCache) clear() {
	c.mu.Lock()
	c.value = nil
	c.stamp = time.Time{}
	c.mu.Unlock()
}

func (c *statCache) valid() bool {
	return c.get() != nil
}

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

// Stats returns the dashboard snapshot, recomputing when the cache is stale
// or forceRefresh is set. Concurrent recomputations collapse into one scan.
func (s *Service) Stats(ctx context.Context, forceRefresh bool) (*catalog.DashboardStats, error) {
	if !forceRefresh {
		if v := s.cache.get(); v != nil {
			return v, nil
		}
	}

	// The scan context is detached: coalesced waiters must not inherit the
	// first caller's cancellation.
	scanCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("stats", func() (any, error) {
		stats, err := s.computeStats(scanCtx)
		if err != nil {
			return nil, err
		}
		s.cache.set(stats)
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.DashboardStats), nil
}

// computeStats scans the whole catalog in pages and aggregates.
func (s *Service) computeStats(ctx context.Context) (*catalog.DashboardStats, error) {
	col, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stats := &catalog.DashboardStats{
		Categories:       map[string]int{},
		TopKeywords:      []catalog.KeywordCount{},
		TopOrganizations: map[string]int{},
	}
	organizations := map[string]int{}
	keywords := newKeywordCounter()

	offset := 0
	for {
		page, err := col.Get(ctx, chromadb.GetParams{
			Limit:   scanPageSize,
			Offset:  offset,
			Include: []string{chromadb.IncludeMetadatas, chromadb.IncludeDocuments},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScanFailed, err)
		}
		if len(page.IDs) == 0 {
			break
		}

		for i := range page.IDs {
			var md chromadb.Metadata
			if i < len(page.Metadatas) {
				md = page.Metadatas[i]
			}
			var doc string
			if i < len(page.Documents) {
				doc = page.Documents[i]
			}
			s.aggregate(stats, organizations, keywords, md, doc)
		}

		stats.TotalProblems += len(page.IDs)
		if len(page.IDs) < scanPageSize {
			break
		}
		offset += len(page.IDs)
	}

	stats.TopOrganizations = topCounts(organizations, topOrganizationCount)
	stats.TopKeywords = keywords.top(topKeywordCount)

	s.log.Info("dashboard stats computed",
		"total", stats.TotalProblems,
		"categories", len(stats.Categories),
		"elapsed", time.Since(start))
	return stats, nil
}

// aggregate folds one record into the running histograms.
func (s *Service) aggregate(stats *catalog.DashboardStats, organizations map[string]int, keywords *keywordCounter, md chromadb.Metadata, doc string) {
	stats.Categories[metaField(md, "category", "Unknown")]++
	organizations[metaField(md, "organization", "Unknown")]++

	keywords.addText(metaField(md, "title", ""), 1)
	keywords.addText(descriptionOf(md, doc), 1)
	for _, tech := range parseTechList(metaField(md, "technology_stack", "")) {
		keywords.addTech(tech)
	}
}

// topCounts keeps the n highest-count entries of a histogram.
func topCounts(counts map[string]int, n int) map[string]int {
	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.key] = e.count
	}
	return out
}

// CategoryShare is one category's slice of the catalog.
type CategoryShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Breakdown is the per-category distribution.
type Breakdown struct {
	Categories map[string]CategoryShare `json:"categories"`
	Total      int                      `json:"total"`
}

// CategoryBreakdown returns per-category counts and percentages (one
// decimal). An empty catalog yields an empty breakdown, not an error.
func (s *Service) CategoryBreakdown(ctx context.Context) (*Breakdown, error) {
	stats, err := s.Stats(ctx, false)
	if err != nil {
		return nil, err
	}

	out := &Breakdown{Categories: map[string]CategoryShare{}, Total: stats.TotalProblems}
	if stats.TotalProblems == 0 {
		return out, nil
	}
	for cat, count := range stats.Categories {
		pct := 100 * float64(count) / float64(stats.TotalProblems)
		out.Categories[cat] = CategoryShare{
			Count:      count,
			Percentage: math.Round(pct*10) / 10,
		}
	}
	return out, nil
}

// Trends splits the ranked keywords into technology terms and domain terms.
type Trends struct {
	Technologies  []catalog.KeywordCount `json:"technologies"`
	Domains       []catalog.KeywordCount `json:"domains"`
	TotalKeywords int                    `json:"total_keywords"`
}

// TechnologyTrends classifies the cached top keywords by a fixed indicator
// set and returns up to 15 of each bucket.
func (s *Service) TechnologyTrends(ctx context.Context) (*Trends, error) {
	stats, err := s.Stats(ctx, false)
	if err != nil {
		return nil, err
	}

	const bucketCap = 15
	trends := &Trends{
		Technologies:  []catalog.KeywordCount{},
		Domains:       []catalog.KeywordCount{},
		TotalKeywords: len(stats.TopKeywords),
	}
	for _, kw := range stats.TopKeywords {
		if isTechKeyword(kw.Keyword) {
			if len(trends.Technologies) < bucketCap {
				trends.Technologies = append(trends.Technologies, kw)
			}
		} else if len(trends.Domains) < bucketCap {
			trends.Domains = append(trends.Domains, kw)
		}
	}
	return trends, nil
}

// ClearCache drops the cached snapshot; the next Stats call recomputes.
func (s *Service) ClearCache() {
	s.cache.clear()
	s.log.Info("dashboard cache cleared")
}

// Health describes the analytics service status.
type Health struct {
	Status         string `json:"status"`
	Initialized    bool   `json:"initialized"`
	StoreConnected bool   `json:"store_connected"`
	TotalProblems  int    `json:"total_problems"`
	Categories     int    `json:"categories"`
	Organizations  int    `json:"organizations"`
	Keywords       int    `json:"keywords"`
	CacheValid     bool   `json:"cache_valid"`
	Error          string `json:"error,omitempty"`
}

// HealthCheck reports status without ever returning an error. It serves
// from cache when possible and runs a scan otherwise.
func (s *Service) HealthCheck(ctx context.Context) Health {
	stats, err := s.Stats(ctx, false)
	if err != nil {
		return Health{
			Status:         "unhealthy",
			Initialized:    s.cache.valid(),
			StoreConnected: s.connected(),
			Error:          err.Error(),
		}
	}
	return Health{
		Status:         "healthy",
		Initialized:    true,
		StoreConnected: s.connected(),
		TotalProblems:  stats.TotalProblems,
		Categories:     len(stats.Categories),
		Organizations:  len(stats.TopOrganizations),
		Keywords:       len(stats.TopKeywords),
		CacheValid:     s.cache.valid(),
	}
}

// connected reports whether the collection handle has been resolved.
func (s *Service) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col != nil
}

// metaField reads a string metadata field with a fallback.
func metaField(md chromadb.Metadata, key, fallback string) string {
	if md == nil {
		return fallback
	}
	if s, ok := md[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
