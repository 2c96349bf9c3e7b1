// Package chat answers questions about a specific problem statement through
// the Gemini API. The problem context travels with every request as a
// system instruction; the service keeps no conversation state.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidContext is returned when the supplied problem context is too
// short or does not look like a problem statement.
var ErrInvalidContext = errors.New("chat: invalid problem context")

// ErrUpstream is returned when the Gemini API call fails.
var ErrUpstream = errors.New("chat: upstream error")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash"

	minContextLen = 50
)

// contextIndicators are terms a real problem context is expected to carry.
// At least two distinct ones must be present.
var contextIndicators = []string{"problem", "solution", "technology", "develop", "implement"}

const systemPrompt = `You are a mentor helping hackathon participants understand a problem statement.
Answer only questions about the problem statement below. Be concrete and practical.
If the question is unrelated, say so briefly.

Problem statement:
%s`

// Config configures the chat service.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string `json:"-" yaml:"api_key"`

	// Model is the Gemini model name. Default: gemini-1.5-flash.
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the API base, for tests.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout per request. Default: 60s. Streams are exempt: they live
	// until closed or drained.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Service calls the Gemini API. Safe for concurrent use.
type Service struct {
	cfg    Config
	http   *http.Client
	stream *http.Client // no global timeout; streams outlive it
	log    *slog.Logger
}

// New creates a Service from config.
func New(cfg Config) *Service {
	cfg.defaults()
	return &Service{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		stream: &http.Client{},
		log:    cfg.Logger,
	}
}

// ValidateContext checks that the problem context is substantial enough to
// anchor a conversation.
func ValidateContext(problemContext string) error {
	trimmed := strings.TrimSpace(problemContext)
	if len(trimmed) < minContextLen {
		return fmt.Errorf("%w: shorter than %d characters", ErrInvalidContext, minContextLen)
	}
	lower := strings.ToLower(trimmed)
	hits := 0
	for _, ind := range contextIndicators {
		if strings.Contains(lower, ind) {
			hits++
		}
	}
	if hits < 2 {
		return fmt.Errorf("%w: does not look like a problem statement", ErrInvalidContext)
	}
	return nil
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse covers both unary and streamed chunks.
type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r *geminiResponse) text() string {
	var b strings.Builder
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func (s *Service) requestBody(problemContext, question string) ([]byte, error) {
	return json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: fmt.Sprintf(systemPrompt, problemContext)}},
		},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: question}}},
		},
	})
}

func (s *Service) endpoint(method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Model, method)
}

// Respond answers one question about the problem context in a single
// round trip.
func (s *Service) Respond(ctx context.Context, problemContext, question string) (string, error) {
	if err := ValidateContext(problemContext); err != nil {
		return "", err
	}

	body, err := s.requestBody(problemContext, question)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := s.endpoint("generateContent") + "?key=" + s.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	answer := out.text()
	if answer == "" {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return answer, nil
}

// Model returns the configured model name.
func (s *Service) Model() string { return s.cfg.Model }

// Configured reports whether an API key is present.
func (s *Service) Configured() bool { return s.cfg.APIKey != "" }

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// Models returns the selectable models. The list is fixed; the service
// itself always uses the configured model.
func (s *Service) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Default: s.cfg.Model == "gemini-1.5-flash"},
		{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Default: s.cfg.Model == "gemini-1.5-pro"},
	}
}

// SuggestedQuestions returns starter questions for the chat UI.
func SuggestedQuestions() []string {
	return []string{
		"What technologies would be best suited for this problem?",
		"How should I approach building a prototype?",
		"What are the main challenges I should expect?",
		"Can you break this problem into smaller milestones?",
		"What existing solutions should I study first?",
	}
}
