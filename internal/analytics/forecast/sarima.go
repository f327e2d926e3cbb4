package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// SARIMATrainer fits seasonal ARIMA(p,d,q)(P,D,Q,s) models by conditional sum
// of squares. Stationarity and invertibility are not enforced on the estimates.
type SARIMATrainer struct{}

// NewSARIMATrainer creates a new seasonal ARIMA trainer
func NewSARIMATrainer() *SARIMATrainer {
	return &SARIMATrainer{}
}

// Kind returns the model family
func (t *SARIMATrainer) Kind() Kind {
	return KindSeasonalARIMA
}

// SARIMAModel is a fitted seasonal ARIMA model. History and Errors hold the
// tail of the training series and its residuals, enough to seed forecasts.
type SARIMAModel struct {
	Order         Order              `json:"order"`
	SeasonalOrder SeasonalOrder      `json:"seasonal_order"`
	AR            []float64          `json:"ar"`
	MA            []float64          `json:"ma"`
	SAR           []float64          `json:"sar"`
	SMA           []float64          `json:"sma"`
	Intercept     float64            `json:"intercept"`
	Sigma2        float64            `json:"sigma2"`
	History       []float64          `json:"history"`
	Errors        []float64          `json:"errors"`
	Last          time.Time          `json:"last_observed"`
	Stats         map[string]float64 `json:"metrics"`
}

// Fit estimates the model on data ordered ascending by time
func (t *SARIMATrainer) Fit(data []DataPoint, config ForecastConfig) (Model, error) {
	order := config.Order
	seasonal := config.SeasonalOrder
	if seasonal.Period <= 0 {
		seasonal.Period = 1
		seasonal.P, seasonal.D, seasonal.Q = 0, 0, 0
	}

	if len(data) < config.MinDataPoints {
		return nil, t.fail(fmt.Sprintf("insufficient data points: need %d, have %d", config.MinDataPoints, len(data)), nil)
	}

	values := valuesOf(data)
	diff := differencePoly(order.D, seasonal.D, seasonal.Period)
	w := applyPoly(diff, values)
	if len(w) < 2 {
		return nil, t.fail("series too short after differencing", nil)
	}

	wMean := stat.Mean(w, nil)
	if stat.Variance(w, nil) <= 1e-12*math.Max(1, wMean*wMean) {
		return nil, t.fail("differenced series has zero variance", nil)
	}

	withIntercept := order.D+seasonal.D == 0
	nParams := order.P + order.Q + seasonal.P + seasonal.Q
	if withIntercept {
		nParams++
	}

	arDegree := order.P + seasonal.P*seasonal.Period
	nEff := len(w) - arDegree
	if nEff <= nParams+1 {
		return nil, t.fail(fmt.Sprintf("too few effective observations: %d for %d parameters", nEff, nParams+1), nil)
	}

	x0 := make([]float64, nParams)
	if withIntercept {
		x0[nParams-1] = wMean
	}

	layout := paramLayout{order: order, seasonal: seasonal, intercept: withIntercept}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			css := layout.css(w, x)
			if math.IsNaN(css) || math.IsInf(css, 0) {
				return math.Inf(1)
			}
			return css
		},
	}

	maxIter := config.MaxIterations
	if maxIter <= 0 {
		maxIter = 200
	}
	settings := &optimize.Settings{MajorIterations: maxIter}

	estimate := x0
	if nParams > 0 {
		result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if err != nil {
			return nil, t.fail("optimizer failed", err)
		}
		estimate = result.X
	}
	if hasNonFinite(estimate) {
		return nil, t.fail("non-finite parameter estimates", nil)
	}

	model := layout.unpack(estimate)
	a := model.arPoly()
	m := model.maPoly()
	e := residuals(w, a, m, model.Intercept)

	css := 0.0
	for _, v := range e[arDegree:] {
		css += v * v
	}
	sigma2 := css / float64(nEff)
	if math.IsNaN(sigma2) || math.IsInf(sigma2, 0) || sigma2 <= 0 {
		return nil, t.fail("degenerate residual variance", nil)
	}
	model.Sigma2 = sigma2

	// Align residuals with the original series and score the conditioned region.
	offset := len(diff) - 1
	errs := make([]float64, len(values))
	copy(errs[offset:], e)

	start := offset + arDegree
	actual := values[start:]
	fitted := make([]float64, len(actual))
	for i := range actual {
		fitted[i] = actual[i] - errs[start+i]
	}

	k := float64(nParams + 1)
	logLik := -float64(nEff) / 2 * (math.Log(2*math.Pi*sigma2) + 1)
	model.Stats = map[string]float64{
		MetricMAE:  CalculateMAE(actual, fitted),
		MetricRMSE: CalculateRMSE(actual, fitted),
		MetricMAPE: CalculateMAPE(actual, fitted),
		MetricAIC:  -2*logLik + 2*k,
		MetricBIC:  -2*logLik + k*math.Log(float64(nEff)),
	}

	tail := (len(a) - 1) + offset
	if deg := len(m) - 1; deg > tail {
		tail = deg
	}
	if tail > len(values) {
		tail = len(values)
	}
	model.History = append([]float64(nil), values[len(values)-tail:]...)
	model.Errors = append([]float64(nil), errs[len(errs)-tail:]...)
	model.Last = data[len(data)-1].Time

	return model, nil
}

func (t *SARIMATrainer) fail(reason string, err error) error {
	return &FitError{Model: KindSeasonalARIMA, Reason: reason, Err: err}
}

// Kind returns the model family
func (m *SARIMAModel) Kind() Kind {
	return KindSeasonalARIMA
}

// LastObserved returns the date of the last training observation
func (m *SARIMAModel) LastObserved() time.Time {
	return m.Last
}

// Metrics returns mae, rmse, mape, aic and bic
func (m *SARIMAModel) Metrics() map[string]float64 {
	out := make(map[string]float64, len(m.Stats))
	for k, v := range m.Stats {
		out[k] = v
	}
	return out
}

// Predict produces horizon daily forecasts with intervals derived from the
// psi-weight representation of the fitted model.
func (m *SARIMAModel) Predict(horizon int, confidence float64) ([]ForecastPoint, error) {
	if err := validateHorizon(horizon); err != nil {
		return nil, err
	}

	a := m.arPoly()
	full := polyMul(a, differencePoly(m.Order.D, m.SeasonalOrder.D, m.SeasonalOrder.Period))
	ma := m.maPoly()
	constant := floats.Sum(a) * m.Intercept

	y := append([]float64(nil), m.History...)
	e := append([]float64(nil), m.Errors...)
	for h := 0; h < horizon; h++ {
		t := len(y)
		v := constant
		for i := 1; i < len(full); i++ {
			if t-i >= 0 {
				v -= full[i] * y[t-i]
			}
		}
		for j := 1; j < len(ma); j++ {
			if t-j >= 0 {
				v += ma[j] * e[t-j]
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("forecast diverged at step %d", h+1)
		}
		y = append(y, v)
		e = append(e, 0)
	}

	psi := psiWeights(full, ma, horizon)
	predictions := make([]ForecastPoint, horizon)
	variance := 0.0
	for h := 0; h < horizon; h++ {
		variance += psi[h] * psi[h]
		value := y[len(m.History)+h]
		lower, upper := calculatePredictionInterval(value, math.Sqrt(m.Sigma2*variance), confidence)
		predictions[h] = ForecastPoint{
			Time:       nextDay(m.Last, h+1),
			Value:      value,
			LowerBound: lower,
			UpperBound: upper,
		}
	}
	return predictions, nil
}

// arPoly returns phi(B)Phi(B^s) as coefficients of B^0..B^k
func (m *SARIMAModel) arPoly() []float64 {
	return polyMul(lagPoly(m.AR, 1, -1), lagPoly(m.SAR, m.SeasonalOrder.Period, -1))
}

// maPoly returns theta(B)Theta(B^s) as coefficients of B^0..B^k
func (m *SARIMAModel) maPoly() []float64 {
	return polyMul(lagPoly(m.MA, 1, 1), lagPoly(m.SMA, m.SeasonalOrder.Period, 1))
}

// paramLayout maps the optimizer vector to model coefficients
type paramLayout struct {
	order     Order
	seasonal  SeasonalOrder
	intercept bool
}

func (l paramLayout) unpack(x []float64) *SARIMAModel {
	next := func(n int) []float64 {
		out := append([]float64(nil), x[:n]...)
		x = x[n:]
		return out
	}
	m := &SARIMAModel{
		Order:         l.order,
		SeasonalOrder: l.seasonal,
		AR:            next(l.order.P),
		MA:            next(l.order.Q),
		SAR:           next(l.seasonal.P),
		SMA:           next(l.seasonal.Q),
	}
	if l.intercept {
		m.Intercept = x[0]
	}
	return m
}

func (l paramLayout) css(w, x []float64) float64 {
	m := l.unpack(x)
	a := m.arPoly()
	e := residuals(w, a, m.maPoly(), m.Intercept)
	sum := 0.0
	for _, v := range e[len(a)-1:] {
		sum += v * v
	}
	return sum
}

// residuals computes e_t = a(B)(w_t - mu) - sum m_j e_{t-j}, conditioned on
// zero errors before the first full AR window.
func residuals(w, a, ma []float64, mu float64) []float64 {
	e := make([]float64, len(w))
	for t := len(a) - 1; t < len(w); t++ {
		v := 0.0
		for i := range a {
			v += a[i] * (w[t-i] - mu)
		}
		for j := 1; j < len(ma) && t-j >= 0; j++ {
			v -= ma[j] * e[t-j]
		}
		e[t] = v
	}
	return e
}

// psiWeights expands ma(B)/ar(B) into its first n coefficients
func psiWeights(ar, ma []float64, n int) []float64 {
	psi := make([]float64, n)
	for j := 0; j < n; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i <= j && i < len(ar); i++ {
			v -= ar[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// lagPoly builds 1 + sign*c1*B^step + sign*c2*B^(2*step) + ...
func lagPoly(coeffs []float64, step int, sign float64) []float64 {
	poly := make([]float64, len(coeffs)*step+1)
	poly[0] = 1
	for i, c := range coeffs {
		poly[(i+1)*step] = sign * c
	}
	return poly
}

// differencePoly returns (1-B)^d (1-B^s)^D
func differencePoly(d, seasonalD, period int) []float64 {
	poly := []float64{1}
	for i := 0; i < d; i++ {
		poly = polyMul(poly, []float64{1, -1})
	}
	for i := 0; i < seasonalD; i++ {
		poly = polyMul(poly, lagPoly([]float64{1}, period, -1))
	}
	return poly
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// applyPoly filters values through poly, dropping the warm-up samples
func applyPoly(poly, values []float64) []float64 {
	deg := len(poly) - 1
	if len(values) <= deg {
		return nil
	}
	out := make([]float64, len(values)-deg)
	for t := deg; t < len(values); t++ {
		v := 0.0
		for i, c := range poly {
			v += c * values[t-i]
		}
		out[t-deg] = v
	}
	return out
}

func hasNonFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
