package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/fuelcast/fuelcast/internal/analytics"
	"github.com/fuelcast/fuelcast/internal/analytics/forecast"
	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/pricestore"
)

// Common test data and helpers for all service tests

var testDay0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// generateDieselSeries creates a daily diesel series with drift, weekly seasonality and noise
func generateDieselSeries(n int, seed int64) models.Series {
	rng := rand.New(rand.NewSource(seed))
	data := make(analytics.TimeSeriesData, n)
	for i := 0; i < n; i++ {
		data[i] = analytics.TimeSeriesPoint{
			Time:  testDay0.AddDate(0, 0, i),
			Value: 30 + 0.02*float64(i) + 0.4*math.Sin(2*math.Pi*float64(i%7)/7) + rng.NormFloat64()*0.3,
		}
	}
	return models.Series{FuelType: models.FuelDiesel, Data: data}
}

// constantSeries creates a flat daily series
func constantSeries(ft models.FuelType, n int, value float64) models.Series {
	data := make(analytics.TimeSeriesData, n)
	for i := range data {
		data[i] = analytics.TimeSeriesPoint{Time: testDay0.AddDate(0, 0, i), Value: value}
	}
	return models.Series{FuelType: ft, Data: data}
}

// seriesRows converts a series to stored observations
func seriesRows(s models.Series) []models.PriceObservation {
	rows := make([]models.PriceObservation, len(s.Data))
	for i, p := range s.Data {
		rows[i] = models.PriceObservation{
			Date:   p.Time,
			Prices: map[models.FuelType]float64{s.FuelType: p.Value},
		}
	}
	return rows
}

func newTestMemoryStore() *pricestore.MemoryStore {
	return pricestore.NewMemoryStore(pricestore.Options{Collection: "test_prices"}, embedding.NewHashEmbedder(384), logging.NewNop())
}

func newTestForecastService(t *testing.T, store pricestore.Store) (*ForecastService, *ModelRepository) {
	t.Helper()
	repo := NewModelRepository(t.TempDir())
	svc := NewForecastService(logging.NewNop(), store, repo, ForecastOptions{
		Config:     forecast.DefaultForecastConfig(),
		Confidence: 0.95,
	})
	return svc, repo
}

// metadataFailingStore rejects every model metadata write
type metadataFailingStore struct {
	pricestore.Store
}

func (s *metadataFailingStore) StoreModelMetadata(context.Context, pricestore.ModelMetadata) (string, error) {
	return "", errors.New("metadata collection unavailable")
}

// assertDailyPredictions checks dates and interval ordering of a formatted forecast
func assertDailyPredictions(t *testing.T, preds []models.PredictionPoint, last time.Time, horizon int) {
	t.Helper()

	if len(preds) != horizon {
		t.Fatalf("Expected %d predictions, got %d", horizon, len(preds))
	}
	for i, p := range preds {
		if p.Day != i+1 {
			t.Errorf("prediction %d: expected day %d, got %d", i, i+1, p.Day)
		}
		if want := last.AddDate(0, 0, i+1).Format(time.DateOnly); p.Date != want {
			t.Errorf("prediction %d: expected date %s, got %s", i, want, p.Date)
		}
		if !(p.LowerBound <= p.PredictedPrice && p.PredictedPrice <= p.UpperBound) {
			t.Errorf("prediction %d: bounds out of order: %v <= %v <= %v", i, p.LowerBound, p.PredictedPrice, p.UpperBound)
		}
	}
}
