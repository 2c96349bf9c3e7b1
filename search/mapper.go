package search

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/anurag-bit/sih-tj/catalog"
	"github.com/anurag-bit/sih-tj/chromadb"
)

// mapResult converts one raw store hit into a typed SearchResult.
//
// Extraction is tolerant by construction: missing or malformed metadata
// fields fall back to defaults so a single bad record never aborts a batch.
// Description precedence: metadata field, then the second line of the
// document (format "<title>\n<description>\nTech Stack: ..."), then empty.
func mapResult(id string, md chromadb.Metadata, document string, distance float64) catalog.SearchResult {
	problem := catalog.ProblemStatement{
		ID:              id,
		Title:           metaString(md, "title", ""),
		Organization:    metaString(md, "organization", "Unknown"),
		Category:        metaString(md, "category", "General"),
		DifficultyLevel: metaString(md, "difficulty_level", catalog.DifficultyMedium),
		TechnologyStack: parseTechStack(metaString(md, "technology_stack", "")),
	}

	problem.Description = metaString(md, "description", "")
	if problem.Description == "" && document != "" {
		if lines := strings.Split(document, "\n"); len(lines) >= 2 {
			problem.Description = lines[1]
		}
	}

	if raw := metaString(md, "created_at", ""); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			problem.CreatedAt = &ts
		}
	}

	return catalog.SearchResult{
		Problem:         problem,
		SimilarityScore: similarity(distance),
	}
}

// similarity converts cosine distance (range [0,2]) to a score in [0,1].
func similarity(distance float64) float64 {
	s := 1.0 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// parseTechStack decodes the JSON-encoded tech stack metadata field.
// Parse failure or absence yields an empty list, never an error.
func parseTechStack(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var stack []string
	if err := json.Unmarshal([]byte(raw), &stack); err != nil {
		return []string{}
	}
	if stack == nil {
		return []string{}
	}
	return stack
}

// metaString reads a string field from metadata, tolerating absence and
// non-string values.
func metaString(md chromadb.Metadata, key, fallback string) string {
	if md == nil {
		return fallback
	}
	v, ok := md[key]
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
