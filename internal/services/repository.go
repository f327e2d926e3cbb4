package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"

	"github.com/fuelcast/fuelcast/internal/analytics/forecast"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// ModelHandle is a fitted model together with what is known about its training run.
type ModelHandle struct {
	FuelType  models.FuelType
	Model     forecast.Model
	Samples   int
	TrainedAt time.Time

	// FallbackReason is set when the primary family failed and Model is the fallback
	FallbackReason string
}

// Kind returns the model family
func (h *ModelHandle) Kind() forecast.Kind {
	return h.Model.Kind()
}

// LastTrainDate returns the latest date the model was trained on
func (h *ModelHandle) LastTrainDate() time.Time {
	return h.Model.LastObserved()
}

// Metrics returns the finite training metrics
func (h *ModelHandle) Metrics() map[string]float64 {
	return utils.FiniteValues(h.Model.Metrics())
}

// modelBundle is the on-disk layout of a persisted model
type modelBundle struct {
	FuelType       models.FuelType    `json:"fuel_type"`
	Kind           forecast.Kind      `json:"kind"`
	LastTrainDate  string             `json:"last_train_date"`
	TrainedAt      time.Time          `json:"trained_at"`
	Samples        int                `json:"samples"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	FallbackReason string             `json:"fallback_reason,omitempty"`
	Model          json.RawMessage    `json:"model"`
}

// ModelRepository persists one model per fuel type as a snappy-compressed
// JSON bundle. Saving replaces the previous file for that fuel type.
type ModelRepository struct {
	dir string
}

// NewModelRepository creates a repository rooted at dir
func NewModelRepository(dir string) *ModelRepository {
	return &ModelRepository{dir: dir}
}

// Path returns the file holding the model of ft
func (r *ModelRepository) Path(ft models.FuelType) string {
	return filepath.Join(r.dir, string(ft)+"_model.snappy")
}

// Exists reports whether a model is persisted for ft
func (r *ModelRepository) Exists(ft models.FuelType) bool {
	info, err := os.Stat(r.Path(ft))
	return err == nil && info.Mode().IsRegular()
}

// Save writes h, replacing any previous model of the same fuel type. The file
// is written next to its destination and renamed into place.
func (r *ModelRepository) Save(h *ModelHandle) error {
	state, err := forecast.MarshalModel(h.Model)
	if err != nil {
		return err
	}

	data, err := json.Marshal(modelBundle{
		FuelType:       h.FuelType,
		Kind:           h.Kind(),
		LastTrainDate:  h.LastTrainDate().Format(time.DateOnly),
		TrainedAt:      h.TrainedAt.UTC(),
		Samples:        h.Samples,
		Metrics:        h.Metrics(),
		FallbackReason: h.FallbackReason,
		Model:          state,
	})
	if err != nil {
		return fmt.Errorf("failed to encode model bundle: %w", err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models dir: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, string(h.FuelType)+"_model.*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(snappy.Encode(nil, data)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close model file: %w", err)
	}

	if err := os.Rename(tmpPath, r.Path(h.FuelType)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// Load reads the persisted model of ft. It returns ErrModelNotFound when none exists.
func (r *ModelRepository) Load(ft models.FuelType) (*ModelHandle, error) {
	compressed, err := os.ReadFile(r.Path(ft))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, ft)
		}
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}

	var bundle modelBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode model bundle: %w", err)
	}
	if bundle.FuelType != ft {
		return nil, fmt.Errorf("model file for %s holds %s", ft, bundle.FuelType)
	}

	model, err := forecast.UnmarshalModel(bundle.Model)
	if err != nil {
		return nil, err
	}

	return &ModelHandle{
		FuelType:       bundle.FuelType,
		Model:          model,
		Samples:        bundle.Samples,
		TrainedAt:      bundle.TrainedAt,
		FallbackReason: bundle.FallbackReason,
	}, nil
}
