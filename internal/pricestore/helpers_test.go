package pricestore

import (
	"context"
	"errors"
	"time"

	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestStore(opts Options) *MemoryStore {
	return NewMemoryStore(opts, embedding.NewHashEmbedder(384), logging.NewNop())
}

// dieselRows builds one observation per price on consecutive days
func dieselRows(prices ...float64) []models.PriceObservation {
	rows := make([]models.PriceObservation, len(prices))
	for i, p := range prices {
		rows[i] = models.PriceObservation{
			Date:   day0.AddDate(0, 0, i),
			Prices: map[models.FuelType]float64{models.FuelDiesel: p},
		}
	}
	return rows
}

// failingEmbedder fails every call after the first ok calls
type failingEmbedder struct {
	embedding.Embedder
	ok    int
	calls int
}

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls > f.ok {
		return nil, errors.New("embedding server unavailable")
	}
	return f.Embedder.Embed(ctx, texts)
}
