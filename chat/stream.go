package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Stream is a lazy sequence of answer chunks. It is not restartable: once
// Next returns io.EOF or an error, the stream is done. Close tears down the
// upstream connection and is safe to call at any point, including after an
// early stop.
type Stream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	closed  bool
}

// Stream answers one question as a sequence of text chunks. The caller must
// Close the stream, even when draining it fully.
func (s *Service) Stream(ctx context.Context, problemContext, question string) (*Stream, error) {
	if err := ValidateContext(problemContext); err != nil {
		return nil, err
	}

	body, err := s.requestBody(problemContext, question)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := s.endpoint("streamGenerateContent") + "?alt=sse&key=" + s.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{resp: resp, scanner: scanner}, nil
}

// Next returns the next non-empty text chunk, or io.EOF when the upstream
// stream ends.
func (st *Stream) Next() (string, error) {
	if st.closed {
		return "", io.EOF
	}
	for st.scanner.Scan() {
		line := strings.TrimSpace(st.scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("%w: decode stream chunk: %v", ErrUpstream, err)
		}
		if text := chunk.text(); text != "" {
			return text, nil
		}
	}
	if err := st.scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read stream: %v", ErrUpstream, err)
	}
	return "", io.EOF
}

// Close tears down the upstream connection. Idempotent.
func (st *Stream) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	return st.resp.Body.Close()
}

// Collect drains the stream into one string, closing it afterwards.
func (st *Stream) Collect() (string, error) {
	defer st.Close()
	var b strings.Builder
	for {
		chunk, err := st.Next()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
}
