package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fuelcast/fuelcast/internal/analytics/forecast"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/metrics"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/pricestore"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// Training statuses reported to callers
const (
	StatusTrained     = "trained"
	StatusModelExists = "model_exists"
)

// ForecastOptions configures a ForecastService
type ForecastOptions struct {
	Config     forecast.ForecastConfig
	Strategy   forecast.Strategy
	Confidence float64
	ScanLimit  int // Observations read from the store per training run
	Metrics    *metrics.Recorder
}

// ForecastService trains, persists and serves one model per fuel type.
// Loaded models are kept in an explicit handle table; Load and Evict manage it.
// Training runs for the same fuel type are serialized.
type ForecastService struct {
	logger     *logging.Logger
	store      pricestore.Store
	repo       *ModelRepository
	config     forecast.ForecastConfig
	strategy   forecast.Strategy
	confidence float64
	scanLimit  int
	metrics    *metrics.Recorder
	now        func() time.Time

	mu      sync.RWMutex
	handles map[models.FuelType]*ModelHandle

	locksMu sync.Mutex
	locks   map[models.FuelType]*sync.Mutex
}

// NewForecastService creates a new ForecastService
func NewForecastService(
	logger *logging.Logger,
	store pricestore.Store,
	repo *ModelRepository,
	opts ForecastOptions,
) *ForecastService {
	if opts.Strategy.Primary == nil {
		opts.Strategy = forecast.DefaultStrategy()
	}
	if opts.Config.MinDataPoints <= 0 {
		opts.Config = forecast.DefaultForecastConfig()
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		opts.Confidence = 0.95
	}
	if opts.ScanLimit <= 0 {
		opts.ScanLimit = 10000
	}

	return &ForecastService{
		logger:     logger,
		store:      store,
		repo:       repo,
		config:     opts.Config,
		strategy:   opts.Strategy,
		confidence: opts.Confidence,
		scanLimit:  opts.ScanLimit,
		metrics:    opts.Metrics,
		now:        time.Now,
		handles:    make(map[models.FuelType]*ModelHandle),
		locks:      make(map[models.FuelType]*sync.Mutex),
	}
}

// lockFor returns the training mutex of ft
func (s *ForecastService) lockFor(ft models.FuelType) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[ft]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ft] = l
	}
	return l
}

// Train fits a model to series, persists it and makes it the loaded handle
// of the series' fuel type.
func (s *ForecastService) Train(ctx context.Context, series models.Series) (*ModelHandle, error) {
	l := s.lockFor(series.FuelType)
	l.Lock()
	defer l.Unlock()

	return s.train(ctx, series)
}

func (s *ForecastService) train(ctx context.Context, series models.Series) (*ModelHandle, error) {
	start := time.Now()
	defer s.metrics.RecordLatency("train", start)

	data := usableObservations(series)
	if len(data) < s.config.MinDataPoints {
		s.metrics.RecordTraining(string(series.FuelType), "", metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %s has %d observations, need at least %d",
			ErrInsufficientData, series.FuelType, len(data), s.config.MinDataPoints)
	}

	logger := s.logger.With("fuel_type", string(series.FuelType))
	logger.Info("Training model",
		"observations", len(data),
		"from", data[0].Time.Format(time.DateOnly),
		"to", data[len(data)-1].Time.Format(time.DateOnly),
		"order", s.config.Order.String(),
		"seasonal_order", s.config.SeasonalOrder.String())

	outcome, err := s.strategy.Fit(data, s.config)
	if err != nil {
		s.metrics.RecordTraining(string(series.FuelType), "", metrics.OutcomeFailed)
		s.metrics.RecordError("training")
		return nil, fmt.Errorf("training %s: %w", series.FuelType, err)
	}

	handle := &ModelHandle{
		FuelType:  series.FuelType,
		Model:     outcome.Model,
		Samples:   len(data),
		TrainedAt: s.now().UTC(),
	}

	outcomeLabel := metrics.OutcomeTrained
	if outcome.PrimaryFailure != nil {
		handle.FallbackReason = outcome.PrimaryFailure.Error()
		outcomeLabel = metrics.OutcomeFallback
		logger.Warn("Primary model failed, using fallback",
			"primary", string(outcome.PrimaryFailure.Model),
			"fallback", string(handle.Kind()),
			"reason", outcome.PrimaryFailure.Reason)
	}

	if err := s.saveModel(ctx, handle); err != nil {
		s.metrics.RecordError("model_save")
		return nil, err
	}

	s.mu.Lock()
	s.handles[handle.FuelType] = handle
	s.mu.Unlock()

	s.metrics.RecordTraining(string(series.FuelType), string(handle.Kind()), outcomeLabel)
	logger.Info("Model trained",
		"model_kind", string(handle.Kind()),
		"last_train_date", handle.LastTrainDate().Format(time.DateOnly),
		"metrics", handle.Metrics(),
		"duration", time.Since(start))

	return handle, nil
}

// saveModel records the training run in the store and writes the model file.
// A failed metadata write is logged and does not fail the save.
func (s *ForecastService) saveModel(ctx context.Context, h *ModelHandle) error {
	meta := pricestore.ModelMetadata{
		FuelType:      h.FuelType,
		ModelKind:     string(h.Kind()),
		LastTrainDate: h.LastTrainDate(),
		CreatedAt:     h.TrainedAt,
		Samples:       h.Samples,
		Metrics:       h.Metrics(),
	}
	if id, err := s.store.StoreModelMetadata(ctx, meta); err != nil {
		s.metrics.RecordError("model_metadata")
		s.logger.Warn("Failed to store model metadata",
			"fuel_type", string(h.FuelType),
			"error", err)
	} else {
		s.logger.Debug("Stored model metadata", "fuel_type", string(h.FuelType), "id", id)
	}

	if err := s.repo.Save(h); err != nil {
		return fmt.Errorf("saving %s model: %w", h.FuelType, err)
	}
	return nil
}

// usableObservations returns the finite points of series, ascending by date
func usableObservations(series models.Series) []forecast.DataPoint {
	return series.Sorted().Data.Finite()
}

// Handle returns the loaded model of ft
func (s *ForecastService) Handle(ft models.FuelType) (*ModelHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.handles[ft]
	return h, ok
}

// Load reads the persisted model of ft and makes it the loaded handle,
// replacing any handle already loaded.
func (s *ForecastService) Load(ft models.FuelType) (*ModelHandle, error) {
	h, err := s.repo.Load(ft)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.handles[ft] = h
	s.mu.Unlock()

	s.logger.Debug("Loaded model", "fuel_type", string(ft), "model_kind", string(h.Kind()))
	return h, nil
}

// Evict discards the loaded model of ft. The persisted file is kept.
func (s *ForecastService) Evict(ft models.FuelType) {
	s.mu.Lock()
	delete(s.handles, ft)
	s.mu.Unlock()
}

// ModelExists reports whether a model is persisted for ft
func (s *ForecastService) ModelExists(ft models.FuelType) bool {
	return s.repo.Exists(ft)
}

// Predict forecasts horizon days after the last training date of the loaded
// model of ft. It fails with ErrModelNotTrained when no model is loaded.
func (s *ForecastService) Predict(ft models.FuelType, horizon int) ([]forecast.ForecastPoint, *ModelHandle, error) {
	h, ok := s.Handle(ft)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrModelNotTrained, ft)
	}

	points, err := h.Model.Predict(horizon, s.confidence)
	if err != nil {
		return nil, nil, fmt.Errorf("predicting %s: %w", ft, err)
	}
	return points, h, nil
}

// TrainFuel trains ft on its stored series. Unless retrain is set, an
// existing persisted model is kept and reported with status model_exists.
func (s *ForecastService) TrainFuel(ctx context.Context, ft models.FuelType, retrain bool) (*models.TrainingResponse, error) {
	l := s.lockFor(ft)
	l.Lock()
	defer l.Unlock()

	if !retrain && s.repo.Exists(ft) {
		s.metrics.RecordTraining(string(ft), "", metrics.OutcomeSkipped)
		return &models.TrainingResponse{
			Status:   StatusModelExists,
			Message:  "Model already exists. Set retrain=true to retrain.",
			FuelType: string(ft),
		}, nil
	}

	series, err := s.store.GetSeries(ctx, ft, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("reading %s series: %w", ft, err)
	}

	h, err := s.train(ctx, series)
	if err != nil {
		return nil, err
	}

	return &models.TrainingResponse{
		Status:        StatusTrained,
		Message:       "Model trained successfully",
		FuelType:      string(ft),
		Samples:       h.Samples,
		ModelKind:     string(h.Kind()),
		Metrics:       h.Metrics(),
		LastTrainDate: h.LastTrainDate().Format(time.DateOnly),
	}, nil
}

// PredictFuel forecasts horizon days for ft, loading the persisted model when
// none is loaded. Prices are rounded to two decimals.
func (s *ForecastService) PredictFuel(ctx context.Context, ft models.FuelType, horizon int) (*models.PredictionResponse, error) {
	start := time.Now()
	defer s.metrics.RecordLatency("predict", start)

	if horizon < 1 || horizon > utils.MaxForecastHorizon {
		return nil, fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidHorizon, horizon, utils.MaxForecastHorizon)
	}

	if _, ok := s.Handle(ft); !ok {
		if _, err := s.Load(ft); err != nil {
			return nil, err
		}
	}

	points, h, err := s.Predict(ft, horizon)
	if err != nil {
		return nil, err
	}

	predictions := make([]models.PredictionPoint, len(points))
	for i, p := range points {
		predictions[i] = models.PredictionPoint{
			Day:            i + 1,
			Date:           p.Time.Format(time.DateOnly),
			PredictedPrice: utils.RoundPrice(p.Value),
			LowerBound:     utils.RoundPrice(p.LowerBound),
			UpperBound:     utils.RoundPrice(p.UpperBound),
		}
	}

	return &models.PredictionResponse{
		FuelType:     string(ft),
		CurrentPrice: s.currentPrice(ctx, ft),
		Predictions:  predictions,
		ModelInfo:    modelInfoView(h),
	}, nil
}

// currentPrice returns the latest stored price of ft, or nil when it cannot be read
func (s *ForecastService) currentPrice(ctx context.Context, ft models.FuelType) *float64 {
	series, err := s.store.GetSeries(ctx, ft, s.scanLimit)
	if err != nil {
		s.logger.Warn("Failed to read current price", "fuel_type", string(ft), "error", err)
		return nil
	}
	if series.Len() == 0 {
		return nil
	}
	price := utils.RoundPrice(series.Data[series.Len()-1].Value)
	return &price
}

// ModelDetails describes the persisted model of ft and its recent training history
func (s *ForecastService) ModelDetails(ctx context.Context, ft models.FuelType) (*models.ModelDetailsResponse, error) {
	resp := &models.ModelDetailsResponse{
		FuelType: string(ft),
		History:  []models.ModelHistoryEntry{},
	}

	h, ok := s.Handle(ft)
	if !ok && s.repo.Exists(ft) {
		var err error
		if h, err = s.Load(ft); err != nil {
			return nil, err
		}
		ok = true
	}
	if ok {
		info := modelInfoView(h)
		resp.Trained = true
		resp.ModelInfo = &info
	}

	history, err := s.store.ModelHistory(ctx, ft, utils.ModelHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("reading %s model history: %w", ft, err)
	}
	for _, m := range history {
		resp.History = append(resp.History, models.ModelHistoryEntry{
			ModelKind:     m.ModelKind,
			LastTrainDate: m.LastTrainDate.Format(time.DateOnly),
			CreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
			Samples:       m.Samples,
			Metrics:       m.Metrics,
		})
	}
	return resp, nil
}

func modelInfoView(h *ModelHandle) models.ModelInfoView {
	return models.ModelInfoView{
		ModelKind:     string(h.Kind()),
		LastTrainDate: h.LastTrainDate().Format(time.DateOnly),
		TrainedAt:     h.TrainedAt.UTC().Format(time.RFC3339),
		Metrics:       h.Metrics(),
	}
}
