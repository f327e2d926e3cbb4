package forecast

import (
	"errors"
	"math"
	"testing"
)

func TestSARIMATrainer_Kind(t *testing.T) {
	if NewSARIMATrainer().Kind() != KindSeasonalARIMA {
		t.Errorf("Expected kind %s", KindSeasonalARIMA)
	}
}

func TestSARIMATrainer_FitAndPredict(t *testing.T) {
	data := generateDailyPrices(180, 11)

	model, err := NewSARIMATrainer().Fit(data, DefaultForecastConfig())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	metrics := model.Metrics()
	for _, key := range []string{MetricMAE, MetricRMSE, MetricMAPE, MetricAIC, MetricBIC} {
		v, ok := metrics[key]
		if !ok {
			t.Errorf("missing metric %s", key)
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("metric %s is not finite: %v", key, v)
		}
	}
	if metrics[MetricMAE] <= 0 || metrics[MetricMAE] > 2 {
		t.Errorf("unexpected in-sample MAE %v", metrics[MetricMAE])
	}

	preds, err := model.Predict(7, 0.95)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	assertDailyForecast(t, preds, data[len(data)-1].Time, 7)

	for i := 1; i < len(preds); i++ {
		prevWidth := preds[i-1].UpperBound - preds[i-1].LowerBound
		width := preds[i].UpperBound - preds[i].LowerBound
		if width+1e-9 < prevWidth {
			t.Errorf("interval narrowed at step %d: %v < %v", i, width, prevWidth)
		}
	}

	last := data[len(data)-1].Value
	for _, p := range preds {
		if math.Abs(p.Value-last) > 5 {
			t.Errorf("forecast %v too far from last observation %v", p.Value, last)
		}
	}
}

func TestSARIMATrainer_WiderAtHigherConfidence(t *testing.T) {
	model, err := NewSARIMATrainer().Fit(generateDailyPrices(120, 5), DefaultForecastConfig())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	p90, _ := model.Predict(3, 0.90)
	p99, _ := model.Predict(3, 0.99)
	for i := range p90 {
		if p99[i].UpperBound-p99[i].LowerBound <= p90[i].UpperBound-p90[i].LowerBound {
			t.Errorf("step %d: 99%% interval not wider than 90%%", i)
		}
		if p99[i].Value != p90[i].Value {
			t.Errorf("step %d: point forecast depends on confidence", i)
		}
	}
}

func TestSARIMATrainer_ConstantSeriesFails(t *testing.T) {
	_, err := NewSARIMATrainer().Fit(generateConstantPrices(60, 31.5), DefaultForecastConfig())

	var fitErr *FitError
	if !errors.As(err, &fitErr) {
		t.Fatalf("Expected FitError, got %v", err)
	}
	if fitErr.Model != KindSeasonalARIMA {
		t.Errorf("Expected model %s, got %s", KindSeasonalARIMA, fitErr.Model)
	}
}

func TestSARIMATrainer_InsufficientData(t *testing.T) {
	_, err := NewSARIMATrainer().Fit(generateDailyPrices(29, 1), DefaultForecastConfig())

	var fitErr *FitError
	if !errors.As(err, &fitErr) {
		t.Fatalf("Expected FitError, got %v", err)
	}
}

func TestSARIMATrainer_MinimumSeries(t *testing.T) {
	data := generateDailyPrices(30, 2)

	model, err := NewSARIMATrainer().Fit(data, DefaultForecastConfig())
	if err != nil {
		t.Fatalf("Fit on 30 observations failed: %v", err)
	}
	preds, err := model.Predict(7, 0.95)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	assertDailyForecast(t, preds, data[len(data)-1].Time, 7)
}

func TestSARIMATrainer_NonSeasonalWithIntercept(t *testing.T) {
	config := DefaultForecastConfig()
	config.Order = Order{P: 1, D: 0, Q: 0}
	config.SeasonalOrder = SeasonalOrder{}

	model, err := NewSARIMATrainer().Fit(generateDailyPrices(100, 9), config)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	sm := model.(*SARIMAModel)
	if sm.Intercept == 0 {
		t.Error("Expected a non-zero intercept for an undifferenced model")
	}
	if len(sm.AR) != 1 || len(sm.SAR) != 0 {
		t.Errorf("unexpected coefficient shapes: ar=%v sar=%v", sm.AR, sm.SAR)
	}

	preds, err := model.Predict(5, 0.95)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for _, p := range preds {
		if p.Value < 25 || p.Value > 40 {
			t.Errorf("forecast %v outside plausible range", p.Value)
		}
	}
}

func TestSARIMAModel_PredictInvalidHorizon(t *testing.T) {
	model, err := NewSARIMATrainer().Fit(generateDailyPrices(60, 4), DefaultForecastConfig())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := model.Predict(0, 0.95); err == nil {
		t.Error("Expected error for zero horizon")
	}
}

func TestDifferencePoly(t *testing.T) {
	got := differencePoly(1, 1, 7)
	want := []float64{1, -1, 0, 0, 0, 0, 0, -1, 1}
	if len(got) != len(want) {
		t.Fatalf("expected %d coefficients, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("coefficient %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestApplyPoly(t *testing.T) {
	got := applyPoly([]float64{1, -1}, []float64{1, 3, 6, 10})
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("diff %d = %v, want %v", i, got[i], want[i])
		}
	}
	if applyPoly([]float64{1, 0, -1}, []float64{1, 2}) != nil {
		t.Error("expected nil for series shorter than the filter")
	}
}

func TestPsiWeights_AR1(t *testing.T) {
	psi := psiWeights([]float64{1, -0.5}, []float64{1}, 4)
	want := []float64{1, 0.5, 0.25, 0.125}
	for i := range want {
		if math.Abs(psi[i]-want[i]) > 1e-12 {
			t.Errorf("psi[%d] = %v, want %v", i, psi[i], want[i])
		}
	}
}

func TestPsiWeights_RandomWalk(t *testing.T) {
	psi := psiWeights([]float64{1, -1}, []float64{1}, 3)
	for i, v := range psi {
		if v != 1 {
			t.Errorf("psi[%d] = %v, want 1", i, v)
		}
	}
}

func TestResiduals_WhiteNoiseModel(t *testing.T) {
	w := []float64{1, 2, 3}
	e := residuals(w, []float64{1}, []float64{1}, 0)
	for i := range w {
		if e[i] != w[i] {
			t.Errorf("e[%d] = %v, want %v", i, e[i], w[i])
		}
	}
}
