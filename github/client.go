package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/anurag-bit/sih-tj/catalog"
)

const (
	defaultBaseURL = "https://api.github.com"

	// readmeFetchCap bounds per-profile API calls: READMEs are fetched only
	// for the most recently updated repositories.
	readmeFetchCap = 10

	readmeExcerptLen = 500
)

// ClientConfig configures the GitHub REST client.
type ClientConfig struct {
	// Token is an optional personal access token. Unauthenticated requests
	// work but hit the 60/hour quota quickly.
	Token string `json:"-" yaml:"token"`

	// BaseURL overrides the API base, for tests. Default: api.github.com.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout per HTTP request. Default: 15s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *ClientConfig) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client talks to the GitHub REST v3 API.
type Client struct {
	baseURL   string
	token     string
	http      *http.Client
	log       *slog.Logger
	sanitizer *bluemonday.Policy
}

// NewClient creates a Client from config.
func NewClient(cfg ClientConfig) *Client {
	cfg.defaults()
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		http:      &http.Client{Timeout: cfg.Timeout},
		log:       cfg.Logger,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// repoRecord mirrors the fields we read from the repository listing.
type repoRecord struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
	Language    string   `json:"language"`
	Fork        bool     `json:"fork"`
}

// FetchProfile retrieves a user's public repositories and infers their tech
// stack. Forks are skipped; READMEs are fetched for the first readmeFetchCap
// non-fork repositories only.
func (c *Client) FetchProfile(ctx context.Context, username string) (catalog.GitHubProfile, error) {
	profile := catalog.GitHubProfile{Username: username, Repositories: []catalog.Repository{}, TechStack: []string{}}

	if err := c.get(ctx, "/users/"+username, nil); err != nil {
		return profile, err
	}

	var records []repoRecord
	path := fmt.Sprintf("/users/%s/repos?type=public&sort=updated&per_page=50", username)
	if err := c.get(ctx, path, &records); err != nil {
		return profile, err
	}

	for _, rec := range records {
		if rec.Fork {
			continue
		}
		repo := catalog.Repository{
			Name:        rec.Name,
			Description: rec.Description,
			Topics:      rec.Topics,
			Language:    rec.Language,
		}
		if repo.Topics == nil {
			repo.Topics = []string{}
		}
		if len(profile.Repositories) < readmeFetchCap {
			readme, err := c.fetchReadme(ctx, username, rec.Name)
			if err != nil {
				// A missing or unreadable README is not fatal for the profile.
				c.log.Debug("readme fetch failed", "repo", rec.Name, "error", err)
			} else {
				repo.ReadmeContent = readme
			}
		}
		profile.Repositories = append(profile.Repositories, repo)
	}

	profile.TechStack = analyzeTechStack(profile.Repositories)
	return profile, nil
}

// fetchReadme returns the repository README as plain text, truncated to
// readmeExcerptLen characters.
func (c *Client) fetchReadme(ctx context.Context, owner, repo string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/readme", owner, repo), &out); err != nil {
		return "", err
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode readme: %w", err)
	}

	text := c.sanitizer.Sanitize(string(decoded))
	text = strings.TrimSpace(text)
	if len(text) > readmeExcerptLen {
		// Back off to a rune boundary so the cut never splits a
		// multi-byte sequence.
		cut := readmeExcerptLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text, nil
}

// CheckReachable probes the API root, reporting connectivity only.
func (c *Client) CheckReachable(ctx context.Context) error {
	return c.get(ctx, "/rate_limit", nil)
}

// get issues one API request and decodes the response into out (if non-nil).
func (c *Client) get(ctx context.Context, path string, out any) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode == http.StatusForbidden:
		return ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d from %s: %s", ErrUpstream, resp.StatusCode, url, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response from %s: %v", ErrUpstream, url, err)
	}
	return nil
}
