package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/metrics"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/normalize"
	"github.com/fuelcast/fuelcast/internal/pricestore"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// PriceService ingests price tables and answers price queries
type PriceService struct {
	logger     *logging.Logger
	store      pricestore.Store
	normalizer *normalize.Normalizer
	scanLimit  int
	metrics    *metrics.Recorder
}

// NewPriceService creates a new PriceService
func NewPriceService(logger *logging.Logger, store pricestore.Store, scanLimit int, recorder *metrics.Recorder) *PriceService {
	if scanLimit <= 0 {
		scanLimit = 10000
	}
	return &PriceService{
		logger:     logger,
		store:      store,
		normalizer: normalize.New(logger),
		scanLimit:  scanLimit,
		metrics:    recorder,
	}
}

// Upload normalizes a raw CSV table and stores every row
func (s *PriceService) Upload(ctx context.Context, r io.Reader) (*models.UploadResponse, error) {
	table, err := s.normalizer.NormalizeReader(r)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, table, "Data uploaded successfully")
}

// GenerateSample stores a synthetic daily table between start and end
func (s *PriceService) GenerateSample(ctx context.Context, start, end time.Time, seed int64) (*models.UploadResponse, error) {
	table, err := normalize.SampleSeries(start, end, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidObservation, err)
	}
	return s.Ingest(ctx, table, "Sample data generated successfully")
}

// Ingest upserts a normalized table. When a batch fails, the rows of earlier
// batches stay stored and the error reports how many were written.
func (s *PriceService) Ingest(ctx context.Context, table *models.PriceTable, message string) (*models.UploadResponse, error) {
	start := time.Now()
	defer s.metrics.RecordLatency("ingest", start)

	n, err := s.store.Upsert(ctx, table.Rows)
	s.metrics.RecordStored(n)
	if err != nil {
		s.metrics.RecordError("store_upsert")
		return nil, fmt.Errorf("stored %d of %d records: %w", n, len(table.Rows), err)
	}

	fuelTypes := make([]string, len(table.FuelTypes))
	for i, ft := range table.FuelTypes {
		fuelTypes[i] = string(ft)
	}

	resp := &models.UploadResponse{
		Message:   message,
		Records:   n,
		FuelTypes: fuelTypes,
	}
	if len(table.Rows) > 0 {
		first, last := table.DateRange()
		resp.StartDate = first.Format(time.DateOnly)
		resp.EndDate = last.Format(time.DateOnly)
		for _, ft := range table.FuelTypes {
			if p, ok := table.Rows[len(table.Rows)-1].Price(ft); ok {
				s.metrics.RecordLastPrice(string(ft), p)
			}
		}
	}

	s.logger.Info("Stored price table",
		"records", n,
		"fuel_types", fuelTypes,
		"from", resp.StartDate,
		"to", resp.EndDate)
	return resp, nil
}

// AddObservation stores a single dated row of prices
func (s *PriceService) AddObservation(ctx context.Context, req *models.PriceRequest) (*models.PriceWriteResponse, error) {
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidObservation, req.Date)
	}

	prices := req.Prices()
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: at least one price is required", ErrInvalidObservation)
	}
	for ft, p := range prices {
		if p < 0 || !utils.IsFinite(p) {
			return nil, fmt.Errorf("%w: %s price %v", ErrInvalidObservation, ft, p)
		}
	}

	obs := models.PriceObservation{Date: date, Prices: prices}
	if _, err := s.store.Upsert(ctx, []models.PriceObservation{obs}); err != nil {
		s.metrics.RecordError("store_upsert")
		return nil, fmt.Errorf("storing observation: %w", err)
	}
	s.metrics.RecordStored(1)

	return &models.PriceWriteResponse{
		Message: "Price data added successfully",
		Date:    date.Format(time.DateOnly),
	}, nil
}

// LatestPrices returns the most recent stored price of every fuel type that has one
func (s *PriceService) LatestPrices(ctx context.Context) (*models.LatestPricesResponse, error) {
	resp := &models.LatestPricesResponse{Prices: make(map[string]models.LatestPrice)}

	for _, ft := range models.AllFuelTypes {
		series, err := s.store.GetSeries(ctx, ft, s.scanLimit)
		if err != nil {
			return nil, fmt.Errorf("reading %s series: %w", ft, err)
		}
		if series.Len() == 0 {
			continue
		}

		last := series.Data[series.Len()-1]
		resp.Prices[string(ft)] = models.LatestPrice{
			Date:  last.Time.Format(time.DateOnly),
			Price: utils.RoundPrice(last.Value),
		}
	}
	return resp, nil
}

// Search returns stored dates whose ft price is closest to price
func (s *PriceService) Search(ctx context.Context, price float64, ft models.FuelType, limit int) (*models.SearchResponse, error) {
	start := time.Now()
	defer s.metrics.RecordLatency("search", start)

	hits, err := s.store.FindSimilar(ctx, price, ft, limit)
	if err != nil {
		s.metrics.RecordError("store_search")
		return nil, fmt.Errorf("searching %s prices: %w", ft, err)
	}

	results := make([]models.SimilarPrice, len(hits))
	for i, h := range hits {
		results[i] = models.SimilarPrice{
			Date:            h.Date.Format(time.DateOnly),
			Price:           utils.RoundPrice(h.Price),
			Difference:      utils.RoundPrice(h.Difference),
			SimilarityScore: utils.Round(h.Score, 4),
		}
	}

	return &models.SearchResponse{
		FuelType:    string(ft),
		TargetPrice: price,
		Results:     results,
	}, nil
}

// Ping checks the price store connection
func (s *PriceService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
