package pricestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
)

// maxRecvMsgSize bounds scroll responses; a full series scan carries one
// payload per stored day.
const maxRecvMsgSize = 32 << 20

// QdrantStore is the Qdrant-backed price store
type QdrantStore struct {
	client     *qdrant.Client
	opts       Options
	vectorSize int
	embedder   embedding.Embedder
	logger     *logging.Logger

	mu          sync.Mutex
	provisioned map[string]bool
}

// NewQdrantStore connects to Qdrant over gRPC. The connection is established lazily.
func NewQdrantStore(cfg config.StoreConfig, embedder embedding.Embedder, logger *logging.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = logging.Global()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Qdrant.Host,
		Port:                   cfg.Qdrant.Port,
		APIKey:                 cfg.Qdrant.APIKey,
		UseTLS:                 cfg.Qdrant.UseTLS,
		SkipCompatibilityCheck: true,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvMsgSize)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client for %s: %w", cfg.GetQdrantAddress(), err)
	}

	return &QdrantStore{
		client:      client,
		opts:        OptionsFromConfig(cfg).withDefaults(),
		vectorSize:  cfg.VectorSize,
		embedder:    embedder,
		logger:      logger.With("component", "pricestore", "backend", "qdrant", "address", cfg.GetQdrantAddress()),
		provisioned: make(map[string]bool),
	}, nil
}

// EnsureCollection creates the price collection on first use
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	return s.ensure(ctx, s.opts.Collection)
}

func (s *QdrantStore) ensure(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provisioned[name] {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}

	if exists {
		s.logger.Debug("Collection already exists", "collection", name)
	} else {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		s.logger.Info("Created collection", "collection", name, "vector_size", s.vectorSize)
	}

	s.provisioned[name] = true
	return nil
}

// Upsert embeds and writes observations, one request per batch
func (s *QdrantStore) Upsert(ctx context.Context, rows []models.PriceObservation) (int, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	n, err := embedBatches(ctx, s.opts.Collection, rows, s.opts.BatchSize, s.embedder, func(ctx context.Context, batch []point) error {
		points := make([]*qdrant.PointStruct, len(batch))
		for i, p := range batch {
			payload, err := qdrant.TryValueMap(observationPayload(p.Obs))
			if err != nil {
				return err
			}
			points[i] = &qdrant.PointStruct{
				Id:      qdrant.NewID(p.ID),
				Vectors: qdrant.NewVectorsDense(p.Vector),
				Payload: payload,
			}
		}
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.opts.Collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
	if err != nil {
		s.logger.Error("Upsert failed", "written", n, "total", len(rows), "error", err)
		return n, err
	}

	s.logger.Info("Added records to price store", "count", n, "collection", s.opts.Collection)
	return n, nil
}

// scrollPrices reads up to limit points that carry a price for ft
func (s *QdrantStore) scrollPrices(ctx context.Context, ft models.FuelType, limit int) ([]models.PriceObservation, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.opts.Collection,
		Filter: &qdrant.Filter{
			MustNot: []*qdrant.Condition{qdrant.NewIsEmpty(string(ft))},
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll %s: %w", s.opts.Collection, err)
	}

	out := make([]models.PriceObservation, 0, len(points))
	for _, p := range points {
		obs, err := decodeObservation(p.GetPayload())
		if err != nil {
			s.logger.Warn("Skipping malformed point", "id", p.GetId().GetUuid(), "error", err)
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

// GetSeries returns the stored series of ft
func (s *QdrantStore) GetSeries(ctx context.Context, ft models.FuelType, limit int) (models.Series, error) {
	if limit <= 0 {
		limit = s.opts.ScanLimit
	}
	records, err := s.scrollPrices(ctx, ft, limit)
	if err != nil {
		return models.Series{}, err
	}
	return buildSeries(records, ft), nil
}

// FindSimilar ranks stored prices of ft by distance to price
func (s *QdrantStore) FindSimilar(ctx context.Context, price float64, ft models.FuelType, limit int) ([]SimilarPrice, error) {
	records, err := s.scrollPrices(ctx, ft, s.opts.SimilarScanLimit)
	if err != nil {
		return nil, err
	}
	return rankSimilar(records, price, ft, limit, s.opts.MaxDifference), nil
}

// StoreModelMetadata appends a training record to the metadata collection
func (s *QdrantStore) StoreModelMetadata(ctx context.Context, meta ModelMetadata) (string, error) {
	collection := s.opts.MetadataCollection()
	if err := s.ensure(ctx, collection); err != nil {
		return "", err
	}

	vector, err := embedding.EmbedOne(ctx, s.embedder, describeModel(meta))
	if err != nil {
		return "", err
	}
	payload, err := qdrant.TryValueMap(metadataPayload(meta))
	if err != nil {
		return "", err
	}

	id := MetadataID(meta)
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectorsDense(vector),
			Payload: payload,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to store model metadata: %w", err)
	}

	s.logger.Info("Stored model metadata", "fuel_type", meta.FuelType, "point_id", id)
	return id, nil
}

// ModelHistory returns training records for ft
func (s *QdrantStore) ModelHistory(ctx context.Context, ft models.FuelType, limit int) ([]ModelMetadata, error) {
	collection := s.opts.MetadataCollection()
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %s: %w", collection, err)
	}
	if !exists {
		return nil, nil
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeyword(fieldFuelType, string(ft))},
		},
		Limit:       qdrant.PtrOf(uint32(s.opts.ScanLimit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll %s: %w", collection, err)
	}

	out := make([]ModelMetadata, 0, len(points))
	for _, p := range points {
		meta, err := decodeMetadata(p.GetPayload())
		if err != nil {
			s.logger.Warn("Skipping malformed metadata point", "id", p.GetId().GetUuid(), "error", err)
			continue
		}
		out = append(out, meta)
	}
	return sortHistory(out, limit), nil
}

// Ping runs a health check against the server
func (s *QdrantStore) Ping(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

// Close closes the gRPC connections
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// numberValue reads a numeric payload value; null or missing reports false
func numberValue(v *qdrant.Value) (float64, bool) {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue, true
	case *qdrant.Value_IntegerValue:
		return float64(k.IntegerValue), true
	default:
		return 0, false
	}
}

func decodeObservation(payload map[string]*qdrant.Value) (models.PriceObservation, error) {
	date, err := parseDate(payload[fieldDate].GetStringValue())
	if err != nil {
		return models.PriceObservation{}, err
	}

	obs := models.PriceObservation{Date: date, Prices: make(map[models.FuelType]float64)}
	for _, ft := range models.AllFuelTypes {
		if p, ok := numberValue(payload[string(ft)]); ok {
			obs.Prices[ft] = p
		}
	}
	return obs, nil
}

func decodeMetadata(payload map[string]*qdrant.Value) (ModelMetadata, error) {
	ft, err := models.ParseFuelType(payload[fieldFuelType].GetStringValue())
	if err != nil {
		return ModelMetadata{}, err
	}
	lastTrain, err := parseDate(payload[fieldLastTrainDate].GetStringValue())
	if err != nil {
		return ModelMetadata{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, payload[fieldCreatedAt].GetStringValue())
	if err != nil {
		return ModelMetadata{}, fmt.Errorf("invalid created_at: %w", err)
	}

	meta := ModelMetadata{
		FuelType:      ft,
		ModelKind:     payload[fieldModelType].GetStringValue(),
		LastTrainDate: lastTrain,
		CreatedAt:     createdAt,
		Metrics:       make(map[string]float64),
	}
	if n, ok := numberValue(payload[fieldSamples]); ok {
		meta.Samples = int(n)
	}
	for k, v := range payload[fieldMetrics].GetStructValue().GetFields() {
		if f, ok := numberValue(v); ok {
			meta.Metrics[k] = f
		}
	}
	return meta, nil
}
