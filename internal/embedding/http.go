package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPOption configures HTTPEmbedder
type HTTPOption func(*HTTPEmbedder)

// HTTPEmbedder calls a sentence-embedding server speaking the
// text-embeddings-inference protocol: POST {"inputs": [...]} returns one
// vector per input.
type HTTPEmbedder struct {
	url       string
	model     string
	dimension int
	timeout   time.Duration
	client    *http.Client
}

type embedRequest struct {
	Inputs    []string `json:"inputs"`
	Model     string   `json:"model,omitempty"`
	Normalize bool     `json:"normalize"`
}

// NewHTTPEmbedder creates a client for the server at url
func NewHTTPEmbedder(url string, dimension int, opts ...HTTPOption) (*HTTPEmbedder, error) {
	if url == "" {
		return nil, fmt.Errorf("embedding url is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	e := &HTTPEmbedder{
		url:       url,
		dimension: dimension,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.client = &http.Client{Timeout: e.timeout}
	return e, nil
}

// WithModel names the model sent with each request
func WithModel(model string) HTTPOption {
	return func(e *HTTPEmbedder) {
		e.model = model
	}
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(e *HTTPEmbedder) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// Dimension returns the configured vector length
func (e *HTTPEmbedder) Dimension() int {
	return e.dimension
}

// Embed sends all texts in one request
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Inputs: texts, Model: e.model, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding server returned status %d: %s", resp.StatusCode, msg)
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding server returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), e.dimension)
		}
	}
	return vectors, nil
}
