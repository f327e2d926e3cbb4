package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/fuelcast/fuelcast/internal/analytics"
)

// DataPoint is an alias to the shared analytics.TimeSeriesPoint type.
type DataPoint = analytics.TimeSeriesPoint

// Kind names a model family. The value is persisted with the model.
type Kind string

const (
	KindSeasonalARIMA        Kind = "SeasonalARIMA"
	KindExponentialSmoothing Kind = "ExponentialSmoothing"
)

// Metric keys reported by trained models
const (
	MetricMAE  = "mae"
	MetricRMSE = "rmse"
	MetricMAPE = "mape"
	MetricAIC  = "aic"
	MetricBIC  = "bic"
)

// ForecastPoint represents a single forecast prediction
type ForecastPoint struct {
	Time       time.Time
	Value      float64
	LowerBound float64
	UpperBound float64
}

// Order is the non-seasonal (p,d,q) order of an ARIMA model
type Order struct {
	P int `json:"p" mapstructure:"p"`
	D int `json:"d" mapstructure:"d"`
	Q int `json:"q" mapstructure:"q"`
}

// SeasonalOrder is the seasonal (P,D,Q,s) order of a seasonal ARIMA model
type SeasonalOrder struct {
	P      int `json:"P" mapstructure:"p"`
	D      int `json:"D" mapstructure:"d"`
	Q      int `json:"Q" mapstructure:"q"`
	Period int `json:"s" mapstructure:"period"`
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

func (o SeasonalOrder) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", o.P, o.D, o.Q, o.Period)
}

// ForecastConfig holds configuration for fitting
type ForecastConfig struct {
	Order          Order         // Non-seasonal ARIMA order
	SeasonalOrder  SeasonalOrder // Seasonal ARIMA order
	SeasonalPeriod int           // Period of the smoothing fallback
	MaxIterations  int           // Optimizer iteration cap
	MinDataPoints  int           // Minimum data points required
}

// DefaultForecastConfig returns the weekly-seasonal daily configuration
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		Order:          Order{P: 1, D: 1, Q: 1},
		SeasonalOrder:  SeasonalOrder{P: 1, D: 1, Q: 1, Period: 7},
		SeasonalPeriod: 7,
		MaxIterations:  200,
		MinDataPoints:  30,
	}
}

// Model is a fitted forecasting model. Models are immutable once fitted.
type Model interface {
	// Kind returns the model family
	Kind() Kind
	// LastObserved returns the date of the last training observation
	LastObserved() time.Time
	// Metrics returns the in-sample training metrics
	Metrics() map[string]float64
	// Predict produces daily forecasts following LastObserved
	Predict(horizon int, confidence float64) ([]ForecastPoint, error)
}

// Trainer fits one model family
type Trainer interface {
	// Kind returns the family produced by Fit
	Kind() Kind
	// Fit trains a model on data ordered ascending by time
	Fit(data []DataPoint, config ForecastConfig) (Model, error)
}

// FitError reports that a model family could not be fitted to a series.
type FitError struct {
	Model  Kind
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fit failed: %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s fit failed: %s", e.Model, e.Reason)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// Registry holds available trainers
var trainerRegistry = make(map[Kind]Trainer)

// RegisterTrainer adds a trainer to the registry
func RegisterTrainer(trainer Trainer) {
	trainerRegistry[trainer.Kind()] = trainer
}

// GetTrainer returns a trainer by kind
func GetTrainer(kind Kind) (Trainer, error) {
	if trainer, ok := trainerRegistry[kind]; ok {
		return trainer, nil
	}
	return nil, fmt.Errorf("unknown model kind: %s", kind)
}

// ListTrainers returns the registered kinds in sorted order
func ListTrainers() []Kind {
	kinds := make([]Kind, 0, len(trainerRegistry))
	for kind := range trainerRegistry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Outcome is the result of a two-stage fit
type Outcome struct {
	Model Model
	// PrimaryFailure is set when the primary family failed and the fallback produced Model
	PrimaryFailure *FitError
}

// Strategy fits Primary and, if that fails for any reason, Fallback.
type Strategy struct {
	Primary  Trainer
	Fallback Trainer
}

// DefaultStrategy is seasonal ARIMA with exponential smoothing as fallback
func DefaultStrategy() Strategy {
	return Strategy{
		Primary:  NewSARIMATrainer(),
		Fallback: NewHoltWintersTrainer(),
	}
}

// StrategyFor builds a strategy from registered trainers. An empty fallback
// kind leaves the strategy without a fallback.
func StrategyFor(primary, fallback Kind) (Strategy, error) {
	p, err := GetTrainer(primary)
	if err != nil {
		return Strategy{}, err
	}
	s := Strategy{Primary: p}
	if fallback != "" {
		if s.Fallback, err = GetTrainer(fallback); err != nil {
			return Strategy{}, err
		}
	}
	return s, nil
}

// Fit runs the strategy. An error is returned only when the fallback fails as well.
func (s Strategy) Fit(data []DataPoint, config ForecastConfig) (*Outcome, error) {
	model, err := safeFit(s.Primary, data, config)
	if err == nil {
		return &Outcome{Model: model}, nil
	}

	var fitErr *FitError
	if !errors.As(err, &fitErr) {
		fitErr = &FitError{Model: s.Primary.Kind(), Reason: "unexpected failure", Err: err}
	}
	if s.Fallback == nil {
		return nil, fitErr
	}

	model, err = safeFit(s.Fallback, data, config)
	if err != nil {
		return nil, fmt.Errorf("fallback after %v: %w", fitErr, err)
	}
	return &Outcome{Model: model, PrimaryFailure: fitErr}, nil
}

// safeFit converts a panic inside a numerical routine into a FitError
func safeFit(trainer Trainer, data []DataPoint, config ForecastConfig) (model Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = &FitError{Model: trainer.Kind(), Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return trainer.Fit(data, config)
}

// CalculateMAPE calculates Mean Absolute Percentage Error
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] != 0 {
			sum += math.Abs((actual[i] - predicted[i]) / actual[i])
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return (sum / float64(count)) * 100
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// zScore returns the two-sided standard normal quantile for a confidence level
func zScore(confidence float64) float64 {
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	return distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
}

// calculatePredictionInterval calculates prediction interval bounds
func calculatePredictionInterval(value, stdError, confidence float64) (lower, upper float64) {
	margin := zScore(confidence) * stdError
	return value - margin, value + margin
}

// nextDay returns the calendar day h days after t
func nextDay(t time.Time, h int) time.Time {
	return t.AddDate(0, 0, h)
}

func validateHorizon(horizon int) error {
	if horizon < 1 {
		return fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	return nil
}

func valuesOf(data []DataPoint) []float64 {
	values := make([]float64, len(data))
	for i, dp := range data {
		values[i] = dp.Value
	}
	return values
}

func init() {
	RegisterTrainer(NewSARIMATrainer())
	RegisterTrainer(NewHoltWintersTrainer())
}
