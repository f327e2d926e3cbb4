package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/pricestore"
)

func newTestPriceService() (*PriceService, *pricestore.MemoryStore) {
	store := newTestMemoryStore()
	return NewPriceService(logging.NewNop(), store, 0, nil), store
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestPriceService_Upload(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestPriceService()

	csv := "วันที่,ดีเซล,ก๊าซ LPG\n" +
		"2024-01-02,30.10,-\n" +
		"2024-01-01,\"1,030.00\",22.60\n" +
		"2024-01-03,30.20,22.80\n"

	resp, err := svc.Upload(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Records != 3 || store.Len() != 3 {
		t.Errorf("Expected 3 records, got %d (stored %d)", resp.Records, store.Len())
	}
	if resp.StartDate != "2024-01-01" || resp.EndDate != "2024-01-03" {
		t.Errorf("Unexpected date range %s..%s", resp.StartDate, resp.EndDate)
	}
	if len(resp.FuelTypes) != 2 {
		t.Errorf("Expected 2 fuel types, got %v", resp.FuelTypes)
	}

	latest, err := svc.LatestPrices(ctx)
	if err != nil {
		t.Fatalf("LatestPrices failed: %v", err)
	}
	if got := latest.Prices["lpg"]; got.Date != "2024-01-03" || got.Price != 22.8 {
		t.Errorf("Unexpected latest lpg: %+v", got)
	}
	if _, ok := latest.Prices["gasohol_95"]; ok {
		t.Error("Fuel types without data must be absent")
	}

	// The forward-filled gap on 2024-01-02 is stored
	series, err := store.GetSeries(ctx, models.FuelLPG, 10)
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if series.Len() != 3 || series.Data[1].Value != 22.6 {
		t.Errorf("Expected filled lpg series, got %+v", series.Data)
	}
}

func TestPriceService_Upload_Errors(t *testing.T) {
	svc, store := newTestPriceService()

	_, err := svc.Upload(context.Background(), strings.NewReader("Date,Notes\n2024-01-01,x\n"))
	if !errors.Is(err, models.ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("Nothing should be stored on failure")
	}
	if se := ToServiceError(err); se.Code != CodeColumnNotFound {
		t.Errorf("Expected %s, got %s", CodeColumnNotFound, se.Code)
	}
}

func TestPriceService_GenerateSample(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestPriceService()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	resp, err := svc.GenerateSample(ctx, start, start.AddDate(0, 0, 59), 42)
	if err != nil {
		t.Fatalf("GenerateSample failed: %v", err)
	}
	if resp.Records != 60 || store.Len() != 60 {
		t.Errorf("Expected 60 records, got %d (stored %d)", resp.Records, store.Len())
	}

	if _, err := svc.GenerateSample(ctx, start, start.AddDate(0, 0, -1), 42); !errors.Is(err, ErrInvalidObservation) {
		t.Errorf("Expected ErrInvalidObservation for reversed range, got %v", err)
	}
}

func TestPriceService_AddObservation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestPriceService()

	resp, err := svc.AddObservation(ctx, &models.PriceRequest{Date: "2024-03-01", Diesel: floatPtr(31.94), LPG: floatPtr(22.6)})
	if err != nil {
		t.Fatalf("AddObservation failed: %v", err)
	}
	if resp.Date != "2024-03-01" || store.Len() != 1 {
		t.Errorf("Unexpected response %+v, stored %d", resp, store.Len())
	}

	tests := []struct {
		name string
		req  *models.PriceRequest
	}{
		{"bad date", &models.PriceRequest{Date: "01/03/2024", Diesel: floatPtr(30)}},
		{"no prices", &models.PriceRequest{Date: "2024-03-02"}},
		{"negative price", &models.PriceRequest{Date: "2024-03-02", Diesel: floatPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddObservation(ctx, tt.req); !errors.Is(err, ErrInvalidObservation) {
				t.Errorf("Expected ErrInvalidObservation, got %v", err)
			}
		})
	}
	if store.Len() != 1 {
		t.Errorf("Rejected observations must not be stored, have %d", store.Len())
	}
}

func TestPriceService_Search(t *testing.T) {
	ctx := context.Background()
	store := pricestore.NewMemoryStore(pricestore.Options{Collection: "test_prices", MaxDifference: 5}, embedding.NewHashEmbedder(384), logging.NewNop())
	svc := NewPriceService(logging.NewNop(), store, 0, nil)

	rows := make([]models.PriceObservation, 0, 5)
	for i, p := range []float64{30, 31, 32, 33, 40} {
		rows = append(rows, models.PriceObservation{
			Date:   testDay0.AddDate(0, 0, i),
			Prices: map[models.FuelType]float64{models.FuelDiesel: p},
		})
	}
	if _, err := store.Upsert(ctx, rows); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	resp, err := svc.Search(ctx, 32.5, models.FuelDiesel, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(resp.Results))
	}

	wantPrices := []float64{32, 33, 31, 30}
	wantScores := []float64{0.6667, 0.6667, 0.4, 0.2857}
	for i, r := range resp.Results {
		if r.Price != wantPrices[i] {
			t.Errorf("result %d: expected price %v, got %v", i, wantPrices[i], r.Price)
		}
		if r.SimilarityScore != wantScores[i] {
			t.Errorf("result %d: expected score %v, got %v", i, wantScores[i], r.SimilarityScore)
		}
	}
	if resp.Results[0].Date != "2024-01-03" {
		t.Errorf("Expected closest date 2024-01-03, got %s", resp.Results[0].Date)
	}
}

func TestPriceService_Ping(t *testing.T) {
	svc, _ := newTestPriceService()

	if err := svc.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Ping(ctx); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
