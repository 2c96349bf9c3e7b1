// Package ingest loads problem statements from a JSON dump, enriches them,
// embeds their text, and bulk-inserts them into the vector store. It is the
// only writer: the serving paths never create the collection or add records.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/schollz/progressbar/v3"

	"github.com/anurag-bit/sih-tj/catalog"
	"github.com/anurag-bit/sih-tj/chromadb"
	"github.com/anurag-bit/sih-tj/embedder"
)

const defaultBatchSize = 64

// RawRecord is one entry of the input dump. Only title and description are
// mandatory; everything else is derived when absent.
type RawRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title" validate:"required"`
	Organization string   `json:"organization"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	Description  string   `json:"description" validate:"required"`
	TechStack    []string `json:"technology_stack"`
}

// Config configures the pipeline.
type Config struct {
	Store    *chromadb.Client
	Embedder embedder.Embedder

	// BatchSize for embedding and insertion. Default: 64.
	BatchSize int

	// Progress draws a terminal progress bar during embedding.
	Progress bool

	Logger *slog.Logger
}

// Pipeline ingests a dump into the vector store.
type Pipeline struct {
	store     *chromadb.Client
	embedder  embedder.Embedder
	batchSize int
	progress  bool
	validate  *validator.Validate
	log       *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Pipeline{
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		batchSize: batch,
		progress:  cfg.Progress,
		validate:  validator.New(),
		log:       log,
	}
}

// Report summarizes one ingestion run.
type Report struct {
	Total           int `json:"total"`
	Ingested        int `json:"ingested"`
	Skipped         int `json:"skipped"`
	CollectionCount int `json:"collection_count"`
	SmokeResults    int `json:"smoke_results"`
}

// Run ingests the JSON dump at path and verifies the result.
func (p *Pipeline) Run(ctx context.Context, path string) (*Report, error) {
	raws, err := loadRecords(path)
	if err != nil {
		return nil, err
	}
	report := &Report{Total: len(raws)}

	problems := make([]catalog.ProblemStatement, 0, len(raws))
	for i, raw := range raws {
		problem, err := p.Normalize(raw)
		if err != nil {
			p.log.Warn("skipping record", "index", i, "id", raw.ID, "error", err)
			report.Skipped++
			continue
		}
		problems = append(problems, problem)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("ingest: no valid records in %s", path)
	}

	col, err := p.store.GetOrCreateCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	if err := p.insert(ctx, col, problems); err != nil {
		return nil, err
	}
	report.Ingested = len(problems)

	if err := p.verify(ctx, col, report); err != nil {
		return nil, err
	}

	p.log.Info("ingestion complete",
		"total", report.Total,
		"ingested", report.Ingested,
		"skipped", report.Skipped,
		"collection_count", report.CollectionCount)
	return report, nil
}

// Normalize turns one raw record into a stored problem statement, filling
// derived fields. Records without a usable title or description error out.
func (p *Pipeline) Normalize(raw RawRecord) (catalog.ProblemStatement, error) {
	raw.Title = strings.TrimSpace(raw.Title)
	raw.Description = strings.TrimSpace(raw.Description)
	if err := p.validate.Struct(raw); err != nil {
		return catalog.ProblemStatement{}, fmt.Errorf("invalid record: %w", err)
	}

	problem := catalog.ProblemStatement{
		ID:           strings.TrimSpace(raw.ID),
		Title:        raw.Title,
		Organization: strings.TrimSpace(raw.Organization),
		Category:     mergeCategory(raw.Category, raw.Subcategory),
		Description:  raw.Description,
	}
	if problem.ID == "" {
		problem.ID = fallbackID(raw.Title, raw.Description)
	}
	if problem.Organization == "" {
		problem.Organization = "Unknown"
	}
	if problem.Category == "" {
		problem.Category = "General"
	}

	problem.TechnologyStack = raw.TechStack
	if len(problem.TechnologyStack) == 0 {
		problem.TechnologyStack = inferTechStack(raw.Title + " " + raw.Description)
	}
	if problem.TechnologyStack == nil {
		problem.TechnologyStack = []string{}
	}

	problem.DifficultyLevel = estimateDifficulty(raw.Title+" "+raw.Description, problem.TechnologyStack)

	now := time.Now().UTC()
	problem.CreatedAt = &now
	return problem, nil
}

// fallbackID derives a stable ID from record content, so re-running the
// pipeline over the same dump produces the same IDs.
func fallbackID(title, description string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + description))
	return "sih_" + hex.EncodeToString(sum[:])[:8]
}

// mergeCategory joins category and subcategory when both carry information.
func mergeCategory(category, subcategory string) string {
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	switch {
	case category == "":
		return subcategory
	case subcategory == "" || strings.EqualFold(category, subcategory):
		return category
	default:
		return category + " - " + subcategory
	}
}

// Document renders the stored document text for one problem.
func Document(p catalog.ProblemStatement) string {
	return p.Title + "\n" + p.Description + "\nTech Stack: " + strings.Join(p.TechnologyStack, ", ")
}

// embeddingInput is the text actually embedded; richer than the stored
// document so the vector carries the tech stack signal.
func embeddingInput(p catalog.ProblemStatement) string {
	return p.Title + " " + p.Description + " " + strings.Join(p.TechnologyStack, " ")
}

func metadataFor(p catalog.ProblemStatement) chromadb.Metadata {
	techJSON, _ := json.Marshal(p.TechnologyStack)
	md := chromadb.Metadata{
		"title":            p.Title,
		"organization":     p.Organization,
		"category":         p.Category,
		"description":      p.Description,
		"technology_stack": string(techJSON),
		"difficulty_level": p.DifficultyLevel,
	}
	if p.CreatedAt != nil {
		md["created_at"] = p.CreatedAt.Format(time.RFC3339)
	}
	return md
}

// insert embeds and adds problems in batches.
func (p *Pipeline) insert(ctx context.Context, col *chromadb.Collection, problems []catalog.ProblemStatement) error {
	var bar *progressbar.ProgressBar
	if p.progress {
		bar = progressbar.Default(int64(len(problems)), "embedding")
	}

	for start := 0; start < len(problems); start += p.batchSize {
		end := start + p.batchSize
		if end > len(problems) {
			end = len(problems)
		}
		batch := problems[start:end]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		metadatas := make([]chromadb.Metadata, len(batch))
		documents := make([]string, len(batch))
		for i, problem := range batch {
			texts[i] = embeddingInput(problem)
			ids[i] = problem.ID
			metadatas[i] = metadataFor(problem)
			documents[i] = Document(problem)
		}

		embeddings, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("ingest: embed batch [%d:%d]: %w", start, end, err)
		}
		if err := col.Add(ctx, ids, embeddings, metadatas, documents); err != nil {
			return fmt.Errorf("ingest: add batch [%d:%d]: %w", start, end, err)
		}
		if bar != nil {
			_ = bar.Add(len(batch))
		}
	}
	return nil
}

// verify counts the collection and runs one smoke query.
func (p *Pipeline) verify(ctx context.Context, col *chromadb.Collection, report *Report) error {
	count, err := col.Count(ctx)
	if err != nil {
		return fmt.Errorf("ingest: verify count: %w", err)
	}
	report.CollectionCount = count

	vec, err := p.embedder.Embed(ctx, "machine learning for agriculture")
	if err != nil {
		return fmt.Errorf("ingest: smoke embed: %w", err)
	}
	res, err := col.Query(ctx, vec, 1, []string{chromadb.IncludeDistances})
	if err != nil {
		return fmt.Errorf("ingest: smoke query: %w", err)
	}
	report.SmokeResults = len(res.IDs)
	if report.SmokeResults == 0 {
		return fmt.Errorf("ingest: smoke query returned no results")
	}
	return nil
}

// loadRecords reads and decodes the JSON dump.
func loadRecords(path string) ([]RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	var raws []RawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("ingest: parse %s: %w", path, err)
	}
	return raws, nil
}
