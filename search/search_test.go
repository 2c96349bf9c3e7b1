package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/anurag-bit/sih-tj/chromadb"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}
func (s *stubEmbedder) Model() string { return "stub" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testStore serves a fake Chroma API and returns a client pointed at it.
func testStore(t *testing.T, handler http.Handler) *chromadb.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())
	return chromadb.New(chromadb.Config{
		Host:   u.Hostname(),
		Port:   port,
		Logger: discardLogger(),
	})
}

// fakeChroma builds a mux covering heartbeat and collection resolution,
// delegating record-level endpoints to the given handlers.
func fakeChroma(t *testing.T, handlers map[string]http.HandlerFunc) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	})
	mux.HandleFunc("GET /api/v1/collections/problem_statements", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "problem_statements"})
	})
	for pattern, h := range handlers {
		mux.HandleFunc(pattern, h)
	}
	return mux
}

func testService(t *testing.T, handlers map[string]http.HandlerFunc) *Service {
	t.Helper()
	store := testStore(t, fakeChroma(t, handlers))
	return New(Config{
		Store:    store,
		Embedder: &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}},
		Logger:   discardLogger(),
	})
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := New(Config{
		Store:    chromadb.New(chromadb.Config{Host: "127.0.0.1", Port: 1, Logger: discardLogger()}),
		Embedder: &stubEmbedder{},
		Logger:   discardLogger(),
	})

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := svc.Search(context.Background(), query, 10)
		if !errors.Is(err, ErrInsufficientInput) {
			t.Errorf("Search(%q): got %v, want ErrInsufficientInput", query, err)
		}
	}
}

func TestSearch_MapsResults(t *testing.T) {
	svc := testService(t, map[string]http.HandlerFunc{
		"POST /api/v1/collections/col-1/query": func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"ids": [][]string{{"SIH001", "SIH002"}},
				"metadatas": [][]map[string]any{{
					{
						"title":            "Crop Disease Detection",
						"organization":     "Ministry of Agriculture",
						"category":         "Software",
						"technology_stack": `["Python","TensorFlow"]`,
						"difficulty_level": "Hard",
					},
					{},
				}},
				"documents": [][]string{{
					"Crop Disease Detection\nDetect crop diseases from leaf images.\nTech Stack: Python, TensorFlow",
					"Untitled\nSecond problem description.",
				}},
				"distances": [][]float64{{0.2, 0.9}},
			})
		},
	})

	results, err := svc.Search(context.Background(), "machine learning agriculture", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}

	first := results[0]
	if first.Problem.ID != "SIH001" {
		t.Errorf("ID = %q, want SIH001", first.Problem.ID)
	}
	if first.Problem.Title != "Crop Disease Detection" {
		t.Errorf("Title = %q", first.Problem.Title)
	}
	if first.Problem.Description != "Detect crop diseases from leaf images." {
		t.Errorf("Description = %q", first.Problem.Description)
	}
	if got := first.SimilarityScore; got < 0.79 || got > 0.81 {
		t.Errorf("SimilarityScore = %v, want 0.8", got)
	}
	if len(first.Problem.TechnologyStack) != 2 || first.Problem.TechnologyStack[0] != "Python" {
		t.Errorf("TechnologyStack = %v", first.Problem.TechnologyStack)
	}

	// Sparse metadata falls back to defaults, never errors.
	second := results[1]
	if second.Problem.Organization != "Unknown" || second.Problem.Category != "General" {
		t.Errorf("defaults: org=%q category=%q", second.Problem.Organization, second.Problem.Category)
	}
	if second.Problem.Description != "Second problem description." {
		t.Errorf("fallback description = %q", second.Problem.Description)
	}
	if second.Problem.TechnologyStack == nil {
		t.Error("TechnologyStack must be empty, not nil")
	}
}

func TestSearch_LimitBounds(t *testing.T) {
	var gotN atomic.Int64
	svc := testService(t, map[string]http.HandlerFunc{
		"POST /api/v1/collections/col-1/query": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				NResults int `json:"n_results"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			gotN.Store(int64(body.NResults))
			json.NewEncoder(w).Encode(map[string]any{"ids": [][]string{{}}})
		},
	})

	cases := []struct {
		limit, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{7, 7},
		{500, MaxLimit},
	}
	for _, tc := range cases {
		if _, err := svc.Search(context.Background(), "query", tc.limit); err != nil {
			t.Fatalf("Search(limit=%d): %v", tc.limit, err)
		}
		if got := int(gotN.Load()); got != tc.want {
			t.Errorf("limit %d: sent n_results=%d, want %d", tc.limit, got, tc.want)
		}
	}
}

func TestSearch_RetriesAfterStoreRecovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	})
	mux.HandleFunc("GET /api/v1/collections/problem_statements", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "problem_statements"})
	})
	mux.HandleFunc("POST /api/v1/collections/col-1/query", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ids": [][]string{{}}})
	})

	store := testStore(t, mux)
	svc := New(Config{Store: store, Embedder: &stubEmbedder{vec: []float32{1}}, Logger: discardLogger()})

	_, err := svc.Search(context.Background(), "query", 5)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("while down: got %v, want ErrUnavailable", err)
	}

	failing.Store(false)
	if _, err := svc.Search(context.Background(), "query", 5); err != nil {
		t.Fatalf("after recovery: %v", err)
	}
}

func TestSearch_EmbedFailure(t *testing.T) {
	store := testStore(t, fakeChroma(t, nil))
	svc := New(Config{
		Store:    store,
		Embedder: &stubEmbedder{err: errors.New("model offline")},
		Logger:   discardLogger(),
	})

	_, err := svc.Search(context.Background(), "query", 5)
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("got %v, want ErrQueryFailed", err)
	}
}

func TestGetByID(t *testing.T) {
	svc := testService(t, map[string]http.HandlerFunc{
		"POST /api/v1/collections/col-1/get": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				IDs []string `json:"ids"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if len(body.IDs) == 1 && body.IDs[0] == "SIH042" {
				json.NewEncoder(w).Encode(map[string]any{
					"ids":       []string{"SIH042"},
					"metadatas": []map[string]any{{"title": "Smart Traffic", "category": "Software"}},
					"documents": []string{"Smart Traffic\nOptimize signals with sensors."},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"ids": []string{}})
		},
	})

	problem, err := svc.GetByID(context.Background(), "SIH042")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if problem == nil || problem.Title != "Smart Traffic" {
		t.Fatalf("problem = %+v", problem)
	}

	missing, err := svc.GetByID(context.Background(), "SIH999")
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing record: got %+v, want nil", missing)
	}
}

func TestCollectionStats(t *testing.T) {
	svc := testService(t, map[string]http.HandlerFunc{
		"GET /api/v1/collections/col-1/count": func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(3)
		},
		"POST /api/v1/collections/col-1/get": func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"ids": []string{"a", "b", "c"},
				"metadatas": []map[string]any{
					{"category": "Software", "organization": "ISRO"},
					{"category": "Software", "organization": "DRDO"},
					{"category": "Hardware", "organization": "ISRO"},
				},
			})
		},
	})

	stats, err := svc.CollectionStats(context.Background())
	if err != nil {
		t.Fatalf("CollectionStats: %v", err)
	}
	if stats.TotalProblems != 3 {
		t.Errorf("TotalProblems = %d, want 3", stats.TotalProblems)
	}
	if stats.Categories["Software"] != 2 || stats.Categories["Hardware"] != 1 {
		t.Errorf("Categories = %v", stats.Categories)
	}
	if stats.Organizations["ISRO"] != 2 {
		t.Errorf("Organizations = %v", stats.Organizations)
	}
	if stats.Sampled {
		t.Error("Sampled = true for a collection under the sample size")
	}
}

func TestCollectionStats_Empty(t *testing.T) {
	svc := testService(t, map[string]http.HandlerFunc{
		"GET /api/v1/collections/col-1/count": func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(0)
		},
		"POST /api/v1/collections/col-1/get": func(w http.ResponseWriter, _ *http.Request) {
			t.Error("get must not be called for an empty collection")
		},
	})

	stats, err := svc.CollectionStats(context.Background())
	if err != nil {
		t.Fatalf("CollectionStats: %v", err)
	}
	if stats.TotalProblems != 0 || len(stats.Categories) != 0 || len(stats.Organizations) != 0 {
		t.Fatalf("empty collection stats = %+v", stats)
	}
}

func TestHealthCheck(t *testing.T) {
	svc := testService(t, map[string]http.HandlerFunc{
		"GET /api/v1/collections/col-1/count": func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(42)
		},
		"POST /api/v1/collections/col-1/query": func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"ids":       [][]string{{"SIH001"}},
				"metadatas": [][]map[string]any{{{"title": "Anything"}}},
				"documents": [][]string{{"Anything\nDescription."}},
				"distances": [][]float64{{0.5}},
			})
		},
	})

	h := svc.HealthCheck(context.Background())
	if h.Status != "healthy" {
		t.Fatalf("Status = %q, Error = %q", h.Status, h.Error)
	}
	if h.Count != 42 || h.Collection != "problem_statements" {
		t.Errorf("health = %+v", h)
	}
	if !h.StoreConnected || !h.ModelLoaded {
		t.Errorf("flags = %+v", h)
	}
	if h.TestQueryResults != 1 {
		t.Errorf("TestQueryResults = %d, want 1", h.TestQueryResults)
	}
}

func TestHealthCheck_Unavailable(t *testing.T) {
	svc := New(Config{
		Store:    chromadb.New(chromadb.Config{Host: "127.0.0.1", Port: 1, Logger: discardLogger()}),
		Embedder: &stubEmbedder{},
		Logger:   discardLogger(),
	})

	h := svc.HealthCheck(context.Background())
	if h.Status != "unhealthy" {
		t.Fatalf("Status = %q, want unhealthy", h.Status)
	}
	if h.Error == "" {
		t.Error("Error must be populated on failure")
	}
	if h.StoreConnected || h.ModelLoaded {
		t.Errorf("flags must be false when the store is down: %+v", h)
	}
}

func TestHealthCheck_EmbedderDown(t *testing.T) {
	store := testStore(t, fakeChroma(t, map[string]http.HandlerFunc{
		"GET /api/v1/collections/col-1/count": func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(5)
		},
	}))
	svc := New(Config{
		Store:    store,
		Embedder: &stubEmbedder{err: errors.New("model offline")},
		Logger:   discardLogger(),
	})

	h := svc.HealthCheck(context.Background())
	if h.Status != "unhealthy" {
		t.Fatalf("Status = %q, want unhealthy", h.Status)
	}
	if !h.StoreConnected {
		t.Error("store is reachable, StoreConnected must be true")
	}
	if h.ModelLoaded {
		t.Error("embedding failed, ModelLoaded must be false")
	}
}
