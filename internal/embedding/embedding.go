// Package embedding turns short texts into fixed-dimension vectors for the
// price store's similarity index.
package embedding

import (
	"context"
	"fmt"

	"github.com/fuelcast/fuelcast/internal/config"
)

// Embedder computes one vector per input text. Vectors are comparable by
// cosine similarity and all have length Dimension().
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// New creates an embedder from configuration
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Type {
	case "http", "":
		return NewHTTPEmbedder(cfg.URL, cfg.Dimension,
			WithModel(cfg.Model),
			WithTimeout(cfg.Timeout))
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding type: %s", cfg.Type)
	}
}

// EmbedOne embeds a single text
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}
