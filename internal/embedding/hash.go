package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashEmbedder maps text to a vector by feature hashing of word tokens and
// character trigrams. It needs no model server and is deterministic, so texts
// sharing tokens land close together. Used for tests and offline runs.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hashing embedder
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{dimension: dimension}
}

// Dimension returns the vector length
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

// Embed computes an L2-normalized vector per text
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	vec := make([]float64, e.dimension)
	add := func(feature string, weight float64) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dimension))
		// top bit selects the sign
		if h>>63 == 1 {
			weight = -weight
		}
		vec[idx] += weight
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	for _, tok := range tokens {
		add("w:"+tok, 1)
		runes := []rune(tok)
		for i := 0; i+3 <= len(runes); i++ {
			add("c:"+string(runes[i:i+3]), 0.5)
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
