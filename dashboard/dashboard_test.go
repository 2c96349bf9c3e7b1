package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anurag-bit/sih-tj/chromadb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type record struct {
	md  map[string]any
	doc string
}

// testService serves the given records through a fake Chroma API and counts
// scan pages so tests can assert cache behavior.
func testService(t *testing.T, records []record, ttl time.Duration, scans *atomic.Int64) *Service {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	})
	mux.HandleFunc("GET /api/v1/collections/problem_statements", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "problem_statements"})
	})
	mux.HandleFunc("POST /api/v1/collections/col-1/get", func(w http.ResponseWriter, r *http.Request) {
		if scans != nil {
			scans.Add(1)
		}
		var body struct {
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		end := body.Offset + body.Limit
		if end > len(records) {
			end = len(records)
		}
		ids := []string{}
		metadatas := []map[string]any{}
		documents := []string{}
		if body.Offset < len(records) {
			for i, rec := range records[body.Offset:end] {
				ids = append(ids, fmt.Sprintf("SIH%03d", body.Offset+i))
				metadatas = append(metadatas, rec.md)
				documents = append(documents, rec.doc)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ids": ids, "metadatas": metadatas, "documents": documents,
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	u, _ := url.Parse(ts.URL)
	port, _ := strconv.Atoi(u.Port())

	return New(Config{
		Store:  chromadb.New(chromadb.Config{Host: u.Hostname(), Port: port, Logger: discardLogger()}),
		TTL:    ttl,
		Logger: discardLogger(),
	})
}

func sampleRecords() []record {
	return []record{
		{
			md: map[string]any{
				"title":            "Crop Disease Detection",
				"category":         "Software",
				"organization":     "Ministry of Agriculture",
				"technology_stack": `["Python","TensorFlow"]`,
			},
			doc: "Crop Disease Detection\nClassify crop diseases from drone imagery.",
		},
		{
			md: map[string]any{
				"title":            "Traffic Signal Optimization",
				"category":         "Software",
				"organization":     "Ministry of Road Transport",
				"technology_stack": `["Python","IoT"]`,
			},
			doc: "Traffic Signal Optimization\nAdaptive signals from junction sensors.",
		},
		{
			md: map[string]any{
				"title":            "Portable Water Testing Kit",
				"category":         "Hardware",
				"organization":     "Ministry of Agriculture",
				"technology_stack": `["Arduino"]`,
			},
			doc: "Portable Water Testing Kit\nField testing of water contamination.",
		},
	}
}

func TestStats_Aggregates(t *testing.T) {
	svc := testService(t, sampleRecords(), time.Minute, nil)

	stats, err := svc.Stats(context.Background(), false)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalProblems != 3 {
		t.Errorf("TotalProblems = %d, want 3", stats.TotalProblems)
	}
	if stats.Categories["Software"] != 2 || stats.Categories["Hardware"] != 1 {
		t.Errorf("Categories = %v", stats.Categories)
	}
	if stats.TopOrganizations["Ministry of Agriculture"] != 2 {
		t.Errorf("TopOrganizations = %v", stats.TopOrganizations)
	}

	counts := map[string]int{}
	for _, kw := range stats.TopKeywords {
		counts[kw.Keyword] = kw.Count
	}
	// "python" appears in two tech stacks at double weight.
	if counts["python"] != 4 {
		t.Errorf("python count = %d, want 4", counts["python"])
	}
	if _, ok := counts["the"]; ok {
		t.Error("stop word leaked into keywords")
	}
}

func TestStats_MissingCategoryCountedAsUnknown(t *testing.T) {
	records := []record{
		{
			md:  map[string]any{"title": "Uncategorized Problem", "organization": "Org"},
			doc: "Uncategorized Problem\nNo category metadata at all.",
		},
	}
	svc := testService(t, records, time.Minute, nil)

	stats, err := svc.Stats(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Categories["Unknown"] != 1 {
		t.Errorf("Categories = %v, want Unknown:1", stats.Categories)
	}
	if _, ok := stats.Categories["General"]; ok {
		t.Error("absent category must fall back to Unknown, not General")
	}
}

func TestStats_SurvivesCallerCancellation(t *testing.T) {
	svc := testService(t, sampleRecords(), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := svc.Stats(ctx, false)
	if err != nil {
		t.Fatalf("scan must not inherit the caller's cancellation: %v", err)
	}
	if stats.TotalProblems != 3 {
		t.Errorf("TotalProblems = %d, want 3", stats.TotalProblems)
	}
}

func TestStats_CachedWithinTTL(t *testing.T) {
	var scans atomic.Int64
	svc := testService(t, sampleRecords(), time.Minute, &scans)

	first, err := svc.Stats(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Stats(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("within TTL the cached pointer must be returned")
	}
	if scans.Load() != 1 {
		t.Errorf("scan pages = %d, want 1", scans.Load())
	}
}

func TestStats_ForceRefresh(t *testing.T) {
	var scans atomic.Int64
	svc := testService(t, sampleRecords(), time.Minute, &scans)

	if _, err := svc.Stats(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Stats(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if scans.Load() != 2 {
		t.Errorf("scan pages = %d, want 2", scans.Load())
	}
}

func TestStats_ClearCacheForcesRescan(t *testing.T) {
	var scans atomic.Int64
	svc := testService(t, sampleRecords(), time.Minute, &scans)

	if _, err := svc.Stats(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	svc.ClearCache()
	if _, err := svc.Stats(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if scans.Load() != 2 {
		t.Errorf("scan pages = %d, want 2", scans.Load())
	}
}

func TestStats_Pagination(t *testing.T) {
	records := make([]record, scanPageSize+5)
	for i := range records {
		cat := "Software"
		if i%2 == 1 {
			cat = "Hardware"
		}
		records[i] = record{
			md:  map[string]any{"title": "Problem", "category": cat, "organization": "Org"},
			doc: "Problem\nDescription text.",
		}
	}
	var scans atomic.Int64
	svc := testService(t, records, time.Minute, &scans)

	stats, err := svc.Stats(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalProblems != scanPageSize+5 {
		t.Errorf("TotalProblems = %d, want %d", stats.TotalProblems, scanPageSize+5)
	}
	if scans.Load() != 2 {
		t.Errorf("scan pages = %d, want 2", scans.Load())
	}
}

func TestStats_EmptyCatalog(t *testing.T) {
	svc := testService(t, nil, time.Minute, nil)

	stats, err := svc.Stats(context.Background(), false)
	if err != nil {
		t.Fatalf("empty catalog must not error: %v", err)
	}
	if stats.TotalProblems != 0 || len(stats.Categories) != 0 || len(stats.TopKeywords) != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	svc := testService(t, sampleRecords(), time.Minute, nil)

	b, err := svc.CategoryBreakdown(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.Total != 3 {
		t.Errorf("Total = %d", b.Total)
	}
	sw := b.Categories["Software"]
	if sw.Count != 2 || sw.Percentage != 66.7 {
		t.Errorf("Software = %+v, want {2 66.7}", sw)
	}
	hw := b.Categories["Hardware"]
	if hw.Count != 1 || hw.Percentage != 33.3 {
		t.Errorf("Hardware = %+v, want {1 33.3}", hw)
	}
}

func TestCategoryBreakdown_Empty(t *testing.T) {
	svc := testService(t, nil, time.Minute, nil)

	b, err := svc.CategoryBreakdown(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.Total != 0 || len(b.Categories) != 0 {
		t.Errorf("breakdown = %+v", b)
	}
}

func TestTechnologyTrends(t *testing.T) {
	svc := testService(t, sampleRecords(), time.Minute, nil)

	trends, err := svc.TechnologyTrends(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, kw := range trends.Technologies {
		if kw.Keyword == "python" {
			found = true
		}
	}
	if !found {
		t.Errorf("python missing from technology bucket: %+v", trends.Technologies)
	}
	for _, kw := range trends.Domains {
		if isTechKeyword(kw.Keyword) {
			t.Errorf("tech keyword %q in domain bucket", kw.Keyword)
		}
	}
	if trends.TotalKeywords == 0 {
		t.Error("TotalKeywords = 0")
	}
}

func TestHealthCheck(t *testing.T) {
	svc := testService(t, sampleRecords(), time.Minute, nil)

	h := svc.HealthCheck(context.Background())
	if h.Status != "healthy" {
		t.Fatalf("Status = %q, Error = %q", h.Status, h.Error)
	}
	if h.TotalProblems != 3 || !h.CacheValid {
		t.Errorf("health = %+v", h)
	}
	if !h.Initialized || !h.StoreConnected {
		t.Errorf("flags = %+v", h)
	}
}

func TestHealthCheck_Unavailable(t *testing.T) {
	svc := New(Config{
		Store:  chromadb.New(chromadb.Config{Host: "127.0.0.1", Port: 1, Logger: discardLogger()}),
		Logger: discardLogger(),
	})

	h := svc.HealthCheck(context.Background())
	if h.Status != "unhealthy" || h.Error == "" {
		t.Fatalf("health = %+v", h)
	}
	if h.Initialized || h.StoreConnected {
		t.Errorf("flags must be false when the store is down: %+v", h)
	}
}
