package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// heuristicBand is the relative half-width of the exponential smoothing
// interval. It is a fixed band, not a statistical interval.
const heuristicBand = 0.02

// HoltWintersTrainer fits additive-trend, additive-seasonal exponential smoothing
type HoltWintersTrainer struct{}

// NewHoltWintersTrainer creates a new Holt-Winters trainer
func NewHoltWintersTrainer() *HoltWintersTrainer {
	return &HoltWintersTrainer{}
}

// Kind returns the model family
func (t *HoltWintersTrainer) Kind() Kind {
	return KindExponentialSmoothing
}

// HoltWintersModel is a fitted additive Holt-Winters model. Season holds the
// seasonal components in forecast order: Season[0] applies to the first
// forecast step.
type HoltWintersModel struct {
	Alpha  float64            `json:"alpha"`
	Beta   float64            `json:"beta"`
	Gamma  float64            `json:"gamma"`
	Period int                `json:"period"`
	Level  float64            `json:"level"`
	Trend  float64            `json:"trend"`
	Season []float64          `json:"season"`
	Last   time.Time          `json:"last_observed"`
	Stats  map[string]float64 `json:"metrics"`
}

// hwState is the result of one smoothing pass
type hwState struct {
	level, trend float64
	season       []float64
	fitted       []float64
	sse          float64
}

// Fit estimates smoothing parameters by minimizing in-sample squared error
func (t *HoltWintersTrainer) Fit(data []DataPoint, config ForecastConfig) (Model, error) {
	period := config.SeasonalPeriod
	if period <= 0 {
		period = 7
	}
	if len(data) < 2*period {
		return nil, &FitError{
			Model:  KindExponentialSmoothing,
			Reason: fmt.Sprintf("need two full seasons: %d points, have %d", 2*period, len(data)),
		}
	}

	values := valuesOf(data)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			state := smooth(values, period, logistic(x[0]), logistic(x[1]), logistic(x[2]))
			if math.IsNaN(state.sse) {
				return math.Inf(1)
			}
			return state.sse
		},
	}

	maxIter := config.MaxIterations
	if maxIter <= 0 {
		maxIter = 200
	}
	x0 := []float64{logit(0.5), logit(0.1), logit(0.1)}
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{MajorIterations: maxIter}, &optimize.NelderMead{})
	if err != nil {
		return nil, &FitError{Model: KindExponentialSmoothing, Reason: "optimizer failed", Err: err}
	}

	alpha, beta, gamma := logistic(result.X[0]), logistic(result.X[1]), logistic(result.X[2])
	state := smooth(values, period, alpha, beta, gamma)
	if math.IsNaN(state.sse) || math.IsInf(state.sse, 0) {
		return nil, &FitError{Model: KindExponentialSmoothing, Reason: "non-finite smoothing error"}
	}

	n := len(values)
	season := make([]float64, period)
	for k := range season {
		season[k] = state.season[(n+k)%period]
	}

	return &HoltWintersModel{
		Alpha:  alpha,
		Beta:   beta,
		Gamma:  gamma,
		Period: period,
		Level:  state.level,
		Trend:  state.trend,
		Season: season,
		Last:   data[n-1].Time,
		Stats: map[string]float64{
			MetricMAE: CalculateMAE(values, state.fitted),
		},
	}, nil
}

// smooth runs the additive recursions. season is indexed by t mod period and
// holds the latest component for each phase.
func smooth(values []float64, period int, alpha, beta, gamma float64) hwState {
	first := stat.Mean(values[:period], nil)
	second := stat.Mean(values[period:2*period], nil)

	level := first
	trend := (second - first) / float64(period)
	season := make([]float64, period)
	for i := 0; i < period; i++ {
		season[i] = values[i] - first
	}

	fitted := make([]float64, len(values))
	sse := 0.0
	for t, y := range values {
		phase := t % period
		prevSeason := season[phase]
		fitted[t] = level + trend + prevSeason

		prevLevel := level
		level = alpha*(y-prevSeason) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		season[phase] = gamma*(y-level) + (1-gamma)*prevSeason

		diff := y - fitted[t]
		sse += diff * diff
	}

	return hwState{level: level, trend: trend, season: season, fitted: fitted, sse: sse}
}

// Kind returns the model family
func (m *HoltWintersModel) Kind() Kind {
	return KindExponentialSmoothing
}

// LastObserved returns the date of the last training observation
func (m *HoltWintersModel) LastObserved() time.Time {
	return m.Last
}

// Metrics returns mae only
func (m *HoltWintersModel) Metrics() map[string]float64 {
	out := make(map[string]float64, len(m.Stats))
	for k, v := range m.Stats {
		out[k] = v
	}
	return out
}

// Predict produces point forecasts with a fixed ±2% band. confidence is
// accepted for interface parity and does not affect the band.
func (m *HoltWintersModel) Predict(horizon int, _ float64) ([]ForecastPoint, error) {
	if err := validateHorizon(horizon); err != nil {
		return nil, err
	}
	if m.Period <= 0 || len(m.Season) != m.Period {
		return nil, fmt.Errorf("invalid seasonal state: period %d with %d components", m.Period, len(m.Season))
	}

	predictions := make([]ForecastPoint, horizon)
	for h := 1; h <= horizon; h++ {
		value := m.Level + float64(h)*m.Trend + m.Season[(h-1)%m.Period]
		lower, upper := value*(1-heuristicBand), value*(1+heuristicBand)
		if lower > upper {
			lower, upper = upper, lower
		}
		predictions[h-1] = ForecastPoint{
			Time:       nextDay(m.Last, h),
			Value:      value,
			LowerBound: lower,
			UpperBound: upper,
		}
	}
	return predictions, nil
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
