// Package pricestore keeps price observations in a vector-indexed collection
// and answers series and similar-price queries over them.
package pricestore

import (
	"context"
	"fmt"
	"time"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
)

// Store is the durable record of price observations plus the model training
// audit trail. Implementations provision their collections on first use.
type Store interface {
	// EnsureCollection creates the price collection if it does not exist
	EnsureCollection(ctx context.Context) error

	// Upsert writes observations in batches and returns how many were written.
	// Batches already written stay written when a later batch fails.
	Upsert(ctx context.Context, rows []models.PriceObservation) (int, error)

	// GetSeries returns up to limit observations with a price for ft, ascending by date
	GetSeries(ctx context.Context, ft models.FuelType, limit int) (models.Series, error)

	// FindSimilar returns up to limit stored prices of ft closest to price
	FindSimilar(ctx context.Context, price float64, ft models.FuelType, limit int) ([]SimilarPrice, error)

	// StoreModelMetadata appends a training record and returns its id
	StoreModelMetadata(ctx context.Context, meta ModelMetadata) (string, error)

	// ModelHistory returns up to limit training records for ft, newest first
	ModelHistory(ctx context.Context, ft models.FuelType, limit int) ([]ModelMetadata, error)

	// Ping checks connectivity to the backend
	Ping(ctx context.Context) error

	Close() error
}

// SimilarPrice is one result of a similar-price search
type SimilarPrice struct {
	Date       time.Time
	Price      float64
	Difference float64
	Score      float64
}

// ModelMetadata describes one training run
type ModelMetadata struct {
	FuelType      models.FuelType
	ModelKind     string
	LastTrainDate time.Time
	CreatedAt     time.Time
	Samples       int
	Metrics       map[string]float64
}

// Options holds settings shared by all backends
type Options struct {
	Collection       string
	BatchSize        int
	ScanLimit        int
	SimilarScanLimit int
	MaxDifference    float64 // Widest price gap still reported as similar
}

// OptionsFromConfig extracts backend-independent settings
func OptionsFromConfig(cfg config.StoreConfig) Options {
	return Options{
		Collection:       cfg.Collection,
		BatchSize:        cfg.BatchSize,
		ScanLimit:        cfg.ScanLimit,
		SimilarScanLimit: cfg.SimilarScanLimit,
		MaxDifference:    cfg.SimilarMaxDifference,
	}
}

func (o Options) withDefaults() Options {
	if o.Collection == "" {
		o.Collection = "oil_prices_eppo"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.ScanLimit <= 0 {
		o.ScanLimit = 10000
	}
	if o.SimilarScanLimit <= 0 {
		o.SimilarScanLimit = 1000
	}
	return o
}

// MetadataCollection returns the collection holding training records
func (o Options) MetadataCollection() string {
	return o.Collection + "_models"
}

// New creates a store from configuration
func New(cfg config.StoreConfig, embedder embedding.Embedder, logger *logging.Logger) (Store, error) {
	if embedder.Dimension() != cfg.VectorSize {
		return nil, fmt.Errorf("embedder dimension %d does not match vector size %d", embedder.Dimension(), cfg.VectorSize)
	}

	switch cfg.Type {
	case "qdrant", "":
		return NewQdrantStore(cfg, embedder, logger)
	case "memory":
		return NewMemoryStore(OptionsFromConfig(cfg), embedder, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
