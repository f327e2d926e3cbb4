package pricestore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fuelcast/fuelcast/internal/analytics"
	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/models"
)

// Payload keys
const (
	fieldDate      = "date"
	fieldDayOfWeek = "day_of_week"
	fieldMonth     = "month"
	fieldYear      = "year"

	fieldFuelType      = "fuel_type"
	fieldModelType     = "model_type"
	fieldLastTrainDate = "last_train_date"
	fieldCreatedAt     = "created_at"
	fieldSamples       = "samples"
	fieldMetrics       = "metrics"
)

// point is one observation ready to be written
type point struct {
	ID     string
	Vector []float32
	Obs    models.PriceObservation
}

// Describe renders an observation as the text that gets embedded, e.g.
// "วันที่ 2024-01-01, ดีเซล 29.94 บาท, แก๊สโซฮอล์ 95 37.85 บาท".
func Describe(obs models.PriceObservation) string {
	parts := []string{"วันที่ " + obs.Date.Format(time.DateOnly)}
	for _, ft := range models.AllFuelTypes {
		if p, ok := obs.Price(ft); ok {
			parts = append(parts, fmt.Sprintf("%s %.2f บาท", ft.LocalName(), p))
		}
	}
	return strings.Join(parts, ", ")
}

// ObservationID is stable per collection and date so re-uploads overwrite
func ObservationID(collection string, date time.Time) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(collection+"|"+date.Format(time.DateOnly))).String()
}

// MetadataID is derived from the fuel type and creation time
func MetadataID(meta ModelMetadata) string {
	key := string(meta.FuelType) + "_" + meta.CreatedAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// describeModel is the embedded text of a training record
func describeModel(meta ModelMetadata) string {
	return fmt.Sprintf("Model for %s, trained on %s, type %s",
		meta.FuelType, meta.LastTrainDate.Format(time.DateOnly), meta.ModelKind)
}

// observationPayload holds the observation fields plus derived calendar fields.
// Fuels without a price are stored as null.
func observationPayload(obs models.PriceObservation) map[string]any {
	date := models.DateOnly(obs.Date)
	payload := map[string]any{
		fieldDate:      date.Format(time.DateOnly),
		fieldDayOfWeek: (int(date.Weekday()) + 6) % 7,
		fieldMonth:     int(date.Month()),
		fieldYear:      date.Year(),
	}
	for _, ft := range models.AllFuelTypes {
		if p, ok := obs.Price(ft); ok {
			payload[string(ft)] = p
		} else {
			payload[string(ft)] = nil
		}
	}
	return payload
}

func metadataPayload(meta ModelMetadata) map[string]any {
	metrics := make(map[string]any, len(meta.Metrics))
	for k, v := range meta.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		metrics[k] = v
	}
	return map[string]any{
		fieldFuelType:      string(meta.FuelType),
		fieldModelType:     meta.ModelKind,
		fieldLastTrainDate: meta.LastTrainDate.Format(time.DateOnly),
		fieldCreatedAt:     meta.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldSamples:       meta.Samples,
		fieldMetrics:       metrics,
	}
}

// parseDate accepts the stored date-only form and full timestamps
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, "2006-01-02T15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid stored date: %q", s)
}

// embedBatches embeds and writes rows batch by batch. It returns the number
// of rows in batches that were written before any failure.
func embedBatches(ctx context.Context, collection string, rows []models.PriceObservation, batchSize int,
	embedder embedding.Embedder, write func(ctx context.Context, batch []point) error) (int, error) {
	written := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		texts := make([]string, len(batch))
		for i, obs := range batch {
			texts[i] = Describe(obs)
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed batch at row %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return written, fmt.Errorf("embedder returned %d vectors for %d rows", len(vectors), len(batch))
		}

		points := make([]point, len(batch))
		for i, obs := range batch {
			points[i] = point{
				ID:     ObservationID(collection, obs.Date),
				Vector: vectors[i],
				Obs:    obs,
			}
		}
		if err := write(ctx, points); err != nil {
			return written, fmt.Errorf("write batch at row %d: %w", start, err)
		}
		written += len(batch)
	}
	return written, nil
}

// buildSeries keeps records with a price for ft and orders them by date
func buildSeries(records []models.PriceObservation, ft models.FuelType) models.Series {
	data := make(analytics.TimeSeriesData, 0, len(records))
	for _, r := range records {
		if p, ok := r.Price(ft); ok {
			data = append(data, analytics.TimeSeriesPoint{Time: r.Date, Value: p})
		}
	}
	sort.SliceStable(data, func(i, j int) bool { return data[i].Time.Before(data[j].Time) })
	return models.Series{FuelType: ft, Data: data}
}

// rankSimilar orders records by absolute price difference from target.
// Score is 1/(1+difference). Records further than maxDiff from target are
// left out; maxDiff <= 0 keeps everything.
func rankSimilar(records []models.PriceObservation, target float64, ft models.FuelType, limit int, maxDiff float64) []SimilarPrice {
	results := make([]SimilarPrice, 0, len(records))
	for _, r := range records {
		p, ok := r.Price(ft)
		if !ok {
			continue
		}
		diff := math.Abs(p - target)
		if maxDiff > 0 && diff > maxDiff {
			continue
		}
		results = append(results, SimilarPrice{
			Date:       r.Date,
			Price:      p,
			Difference: diff,
			Score:      1 / (1 + diff),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Difference != results[j].Difference {
			return results[i].Difference < results[j].Difference
		}
		return results[i].Date.Before(results[j].Date)
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// sortHistory orders training records newest first and applies limit
func sortHistory(records []ModelMetadata, limit int) []ModelMetadata {
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}
