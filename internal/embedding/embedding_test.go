package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelcast/fuelcast/internal/config"
)

func cosine(a, b []float32) float64 {
	dot, na, nb := 0.0, 0.0, 0.0
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / math.Sqrt(na*nb)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(384)
	ctx := context.Background()

	a, err := EmbedOne(ctx, e, "วันที่ 2024-01-01, ดีเซล 29.94 บาท")
	require.NoError(t, err)
	b, err := EmbedOne(ctx, e, "วันที่ 2024-01-01, ดีเซล 29.94 บาท")
	require.NoError(t, err)

	assert.Len(t, a, 384)
	assert.Equal(t, a, b)

	norm := 0.0
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedder_SharedTokensAreCloser(t *testing.T) {
	e := NewHashEmbedder(384)
	vectors, err := e.Embed(context.Background(), []string{
		"Model for diesel, trained on 2024-03-01, type SeasonalARIMA",
		"Model for diesel, trained on 2024-03-02, type SeasonalARIMA",
		"วันที่ 2019-07-14, แก๊สโซฮอล์ 91 35.10 บาท",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	assert.Greater(t, cosine(vectors[0], vectors[1]), cosine(vectors[0], vectors[2]))
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	vectors, err := NewHashEmbedder(8).Embed(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vectors[0])
}

func TestHashEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashEmbedder(8).Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	var got embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		out := make([][]float32, len(got.Inputs))
		for i := range out {
			out[i] = []float32{float32(i), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	e, err := NewHTTPEmbedder(server.URL, 3, WithModel("mini"), WithTimeout(time.Second))
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, got.Inputs)
	assert.Equal(t, "mini", got.Model)
	assert.True(t, got.Normalize)
	assert.Equal(t, [][]float32{{0, 1, 0}, {1, 1, 0}}, vectors)
}

func TestHTTPEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
		},
		{
			name: "wrong dimension",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[[1, 2]]`))
			},
		},
		{
			name: "wrong count",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error"`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			e, err := NewHTTPEmbedder(server.URL, 3)
			require.NoError(t, err)

			_, err = e.Embed(context.Background(), []string{"a"})
			assert.Error(t, err)
		})
	}
}

func TestHTTPEmbedder_EmptyInput(t *testing.T) {
	e, err := NewHTTPEmbedder("http://127.0.0.1:1", 3)
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Type: "hash", Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension())

	e, err = New(config.EmbeddingConfig{Type: "http", URL: "http://localhost:8080/embed", Dimension: 384})
	require.NoError(t, err)
	assert.IsType(t, &HTTPEmbedder{}, e)

	_, err = New(config.EmbeddingConfig{Type: "http", Dimension: 384})
	assert.Error(t, err)

	_, err = New(config.EmbeddingConfig{Type: "onnx", Dimension: 384})
	assert.Error(t, err)
}
