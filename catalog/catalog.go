// Package catalog defines the domain types shared by the search,
// recommendation, and analytics services: problem statements as stored in
// the vector collection, scored search results, GitHub profiles, and the
// dashboard aggregate snapshot.
package catalog

import "time"

// Difficulty levels assigned at ingestion.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// ProblemStatement is one catalog entry. It is owned by the vector store;
// readers reconstruct it from stored metadata plus the document text and
// must never mutate it outside re-ingestion.
type ProblemStatement struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Organization    string     `json:"organization"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	TechnologyStack []string   `json:"technology_stack"`
	DifficultyLevel string     `json:"difficulty_level"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

// SearchResult pairs a problem with its similarity to the query.
// SimilarityScore is max(0, 1 - cosine distance), so it is always in [0,1].
type SearchResult struct {
	Problem         ProblemStatement `json:"problem"`
	SimilarityScore float64          `json:"similarity_score"`
}

// Repository is one public GitHub repository of a profile.
// ReadmeContent is an excerpt, capped at 500 characters at fetch time.
type Repository struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Topics        []string `json:"topics"`
	ReadmeContent string   `json:"readme_content,omitempty"`
	Language      string   `json:"language,omitempty"`
}

// GitHubProfile is the analyzed view of a user: repositories ordered by
// last update (most recent first) and the inferred tech stack, deduplicated
// and frequency-ranked, capped at 20 entries.
type GitHubProfile struct {
	Username     string       `json:"username"`
	Repositories []Repository `json:"repositories"`
	TechStack    []string     `json:"tech_stack"`
}

// KeywordCount is one entry of the ranked keyword list. A slice of these
// preserves rank order, which a plain map would lose.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// DashboardStats is the aggregate snapshot computed from a full catalog
// scan. Categories is the complete histogram; TopOrganizations and
// TopKeywords are capped after full counting.
type DashboardStats struct {
	Categories       map[string]int `json:"categories"`
	TopKeywords      []KeywordCount `json:"top_keywords"`
	TopOrganizations map[string]int `json:"top_organizations"`
	TotalProblems    int            `json:"total_problems"`
}
