package pricestore

import (
	"context"
	"sync"

	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
)

type memoryEntry struct {
	vector []float32
	obs    models.PriceObservation
}

type memoryRecord struct {
	vector []float32
	meta   ModelMetadata
}

// MemoryStore keeps everything in process memory. Scans visit points in
// first-insertion order, like a scroll over a collection.
type MemoryStore struct {
	opts     Options
	embedder embedding.Embedder
	logger   *logging.Logger

	mu          sync.RWMutex
	provisioned map[string]bool
	order       []string
	entries     map[string]memoryEntry
	records     map[string]memoryRecord
	recordOrder []string
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(opts Options, embedder embedding.Embedder, logger *logging.Logger) *MemoryStore {
	if logger == nil {
		logger = logging.Global()
	}
	return &MemoryStore{
		opts:        opts.withDefaults(),
		embedder:    embedder,
		logger:      logger,
		provisioned: make(map[string]bool),
		entries:     make(map[string]memoryEntry),
		records:     make(map[string]memoryRecord),
	}
}

// EnsureCollection marks the price collection as provisioned
func (s *MemoryStore) EnsureCollection(ctx context.Context) error {
	s.ensure(s.opts.Collection)
	return nil
}

func (s *MemoryStore) ensure(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.provisioned[name] {
		s.provisioned[name] = true
		s.logger.Info("Created collection", "collection", name)
	}
}

// Provisioned reports whether a collection has been created
func (s *MemoryStore) Provisioned(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provisioned[name]
}

// Upsert embeds and stores observations batch by batch
func (s *MemoryStore) Upsert(ctx context.Context, rows []models.PriceObservation) (int, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	n, err := embedBatches(ctx, s.opts.Collection, rows, s.opts.BatchSize, s.embedder, func(ctx context.Context, batch []point) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, p := range batch {
			if _, exists := s.entries[p.ID]; !exists {
				s.order = append(s.order, p.ID)
			}
			s.entries[p.ID] = memoryEntry{vector: p.Vector, obs: p.Obs}
		}
		return nil
	})
	if err != nil {
		return n, err
	}

	s.logger.Info("Added records to price store", "count", n, "collection", s.opts.Collection)
	return n, nil
}

// scan returns up to limit observations matching keep, in insertion order
func (s *MemoryStore) scan(limit int, keep func(models.PriceObservation) bool) []models.PriceObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PriceObservation, 0)
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		obs := s.entries[id].obs
		if keep(obs) {
			out = append(out, obs)
		}
	}
	return out
}

// GetSeries returns the stored series of ft
func (s *MemoryStore) GetSeries(ctx context.Context, ft models.FuelType, limit int) (models.Series, error) {
	if limit <= 0 {
		limit = s.opts.ScanLimit
	}
	records := s.scan(limit, func(o models.PriceObservation) bool {
		_, ok := o.Price(ft)
		return ok
	})
	return buildSeries(records, ft), nil
}

// FindSimilar ranks stored prices of ft by distance to price
func (s *MemoryStore) FindSimilar(ctx context.Context, price float64, ft models.FuelType, limit int) ([]SimilarPrice, error) {
	records := s.scan(s.opts.SimilarScanLimit, func(o models.PriceObservation) bool {
		_, ok := o.Price(ft)
		return ok
	})
	return rankSimilar(records, price, ft, limit, s.opts.MaxDifference), nil
}

// StoreModelMetadata appends a training record
func (s *MemoryStore) StoreModelMetadata(ctx context.Context, meta ModelMetadata) (string, error) {
	collection := s.opts.MetadataCollection()
	s.ensure(collection)

	vector, err := embedding.EmbedOne(ctx, s.embedder, describeModel(meta))
	if err != nil {
		return "", err
	}

	id := MetadataID(meta)
	s.mu.Lock()
	if _, exists := s.records[id]; !exists {
		s.recordOrder = append(s.recordOrder, id)
	}
	s.records[id] = memoryRecord{vector: vector, meta: meta}
	s.mu.Unlock()

	s.logger.Info("Stored model metadata", "fuel_type", meta.FuelType, "point_id", id)
	return id, nil
}

// ModelHistory returns training records for ft
func (s *MemoryStore) ModelHistory(ctx context.Context, ft models.FuelType, limit int) ([]ModelMetadata, error) {
	s.mu.RLock()
	out := make([]ModelMetadata, 0)
	for _, id := range s.recordOrder {
		if r := s.records[id]; r.meta.FuelType == ft {
			out = append(out, r.meta)
		}
	}
	s.mu.RUnlock()
	return sortHistory(out, limit), nil
}

// Len returns the number of stored observations
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
