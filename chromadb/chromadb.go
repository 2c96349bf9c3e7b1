// Package chromadb is a minimal HTTP client for a Chroma-compatible vector
// store, scoped to the single collection the catalog lives in.
//
// It decouples the search and analytics services from the store's REST
// surface: callers get Count/Get/Query/Add over typed parallel-array
// results and never touch raw HTTP.
//
// Usage:
//
//	store := chromadb.New(chromadb.Config{
//	    Host:       "chroma-db",
//	    Port:       8000,
//	    Collection: "problem_statements",
//	})
//	col, err := store.Connect(ctx)
//	res, err := col.Query(ctx, vec, 20, []string{"metadatas", "documents", "distances"})
package chromadb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Metadata is one record's flat metadata map. Values are strings or numbers;
// technology_stack is stored as a JSON-encoded string inside it.
type Metadata map[string]any

// Include flags for Get and Query.
const (
	IncludeMetadatas = "metadatas"
	IncludeDocuments = "documents"
	IncludeDistances = "distances"
)

// Config configures the store client.
type Config struct {
	// Host and Port of the Chroma HTTP server.
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`

	// Collection is the collection name holding the catalog.
	Collection string `json:"collection" yaml:"collection"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port <= 0 {
		c.Port = 8000
	}
	if c.Collection == "" {
		c.Collection = "problem_statements"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client talks to one Chroma server.
type Client struct {
	baseURL string
	cfg     Config
	client  *http.Client
}

// New creates a Client from config. No network call happens until Connect.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d/api/v1", cfg.Host, cfg.Port),
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Heartbeat verifies the server is reachable.
func (c *Client) Heartbeat(ctx context.Context) error {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/heartbeat", nil, &out); err != nil {
		return fmt.Errorf("chromadb heartbeat: %w", err)
	}
	return nil
}

// collectionInfo is the server's collection record; ID is what the
// record-level endpoints are keyed by.
type collectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Connect verifies liveness and resolves the configured collection.
// The collection must already exist — the query path never creates it.
func (c *Client) Connect(ctx context.Context) (*Collection, error) {
	if err := c.Heartbeat(ctx); err != nil {
		return nil, err
	}

	var info collectionInfo
	if err := c.do(ctx, http.MethodGet, "/collections/"+c.cfg.Collection, nil, &info); err != nil {
		return nil, fmt.Errorf("chromadb get collection %q: %w", c.cfg.Collection, err)
	}
	c.cfg.Logger.Info("connected to collection", "name", info.Name, "id", info.ID)
	return &Collection{client: c, id: info.ID, name: info.Name}, nil
}

// GetOrCreateCollection resolves the configured collection, creating it with
// cosine distance if absent. Only the ingestion path uses this.
func (c *Client) GetOrCreateCollection(ctx context.Context) (*Collection, error) {
	if err := c.Heartbeat(ctx); err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":          c.cfg.Collection,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
		"get_or_create": true,
	}
	var info collectionInfo
	if err := c.do(ctx, http.MethodPost, "/collections", body, &info); err != nil {
		return nil, fmt.Errorf("chromadb get-or-create collection %q: %w", c.cfg.Collection, err)
	}
	return &Collection{client: c, id: info.ID, name: info.Name}, nil
}

// Collection is a handle on one resolved collection.
type Collection struct {
	client *Client
	id     string
	name   string
}

// Name returns the collection name.
func (col *Collection) Name() string { return col.name }

// Count returns the number of stored records.
func (col *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := col.client.do(ctx, http.MethodGet, "/collections/"+col.id+"/count", nil, &n)
	if err != nil {
		return 0, fmt.Errorf("chromadb count: %w", err)
	}
	return n, nil
}

// GetParams selects records for Get: either exact IDs, or a Limit/Offset
// page over the whole collection.
type GetParams struct {
	IDs     []string
	Limit   int
	Offset  int
	Include []string
}

// GetResult holds parallel arrays: Metadatas[i] and Documents[i] belong to
// IDs[i]. Arrays not named in Include are nil.
type GetResult struct {
	IDs       []string   `json:"ids"`
	Metadatas []Metadata `json:"metadatas"`
	Documents []string   `json:"documents"`
}

// Get fetches records by exact ID or by page.
func (col *Collection) Get(ctx context.Context, p GetParams) (*GetResult, error) {
	body := map[string]any{}
	if len(p.IDs) > 0 {
		body["ids"] = p.IDs
	}
	if p.Limit > 0 {
		body["limit"] = p.Limit
	}
	if p.Offset > 0 {
		body["offset"] = p.Offset
	}
	if len(p.Include) > 0 {
		body["include"] = p.Include
	}

	var out GetResult
	if err := col.client.do(ctx, http.MethodPost, "/collections/"+col.id+"/get", body, &out); err != nil {
		return nil, fmt.Errorf("chromadb get: %w", err)
	}
	return &out, nil
}

// QueryResult holds the nearest neighbors of one query embedding as
// parallel arrays ordered by ascending distance (nearest first).
type QueryResult struct {
	IDs       []string
	Metadatas []Metadata
	Documents []string
	Distances []float64
}

// rawQueryResult mirrors the wire shape: one inner array per query
// embedding. This client always sends exactly one.
type rawQueryResult struct {
	IDs       [][]string   `json:"ids"`
	Metadatas [][]Metadata `json:"metadatas"`
	Documents [][]string   `json:"documents"`
	Distances [][]float64  `json:"distances"`
}

// Query returns up to nResults nearest neighbors of the embedding.
func (col *Collection) Query(ctx context.Context, embedding []float32, nResults int, include []string) (*QueryResult, error) {
	body := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        nResults,
	}
	if len(include) > 0 {
		body["include"] = include
	}

	var raw rawQueryResult
	if err := col.client.do(ctx, http.MethodPost, "/collections/"+col.id+"/query", body, &raw); err != nil {
		return nil, fmt.Errorf("chromadb query: %w", err)
	}

	out := &QueryResult{}
	if len(raw.IDs) > 0 {
		out.IDs = raw.IDs[0]
	}
	if len(raw.Metadatas) > 0 {
		out.Metadatas = raw.Metadatas[0]
	}
	if len(raw.Documents) > 0 {
		out.Documents = raw.Documents[0]
	}
	if len(raw.Distances) > 0 {
		out.Distances = raw.Distances[0]
	}
	return out, nil
}

// Add bulk-inserts records. All four slices must be the same length.
// Assumed to be called only from the offline ingestion path.
func (col *Collection) Add(ctx context.Context, ids []string, embeddings [][]float32, metadatas []Metadata, documents []string) error {
	if len(ids) != len(embeddings) || len(ids) != len(metadatas) || len(ids) != len(documents) {
		return fmt.Errorf("chromadb add: mismatched lengths (ids=%d embeddings=%d metadatas=%d documents=%d)",
			len(ids), len(embeddings), len(metadatas), len(documents))
	}
	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"metadatas":  metadatas,
		"documents":  documents,
	}
	if err := col.client.do(ctx, http.MethodPost, "/collections/"+col.id+"/add", body, nil); err != nil {
		return fmt.Errorf("chromadb add: %w", err)
	}
	return nil
}

// do issues one JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
