package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// handleChatStream relays Gemini chunks as a plain text stream, flushing
// after every chunk so the browser renders incrementally.
func (s *server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	stream, err := s.cfg.Chat.Stream(r.Context(), req.ProblemContext, req.Question)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Headers are gone; the truncated stream is the error signal.
			s.log.Error("chat stream aborted", "error", err)
			return
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// docgenProxy forwards /api/docgen/* to the document generation sidecar.
// Pure pass-through; an unreachable sidecar surfaces as 502.
func (s *server) docgenProxy() http.Handler {
	target, err := url.Parse(s.cfg.DocgenURL)
	if err != nil {
		s.log.Error("invalid docgen URL", "url", s.cfg.DocgenURL, "error", err)
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusServiceUnavailable, fmt.Errorf("docgen misconfigured"))
		})
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
		s.log.Error("docgen proxy", "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("docgen unreachable: %w", err))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.TrimPrefix(r.URL.Path, "/api/docgen")
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}
		proxy.ServeHTTP(w, r)
	})
}
