package utils

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		decimals int
		expected float64
	}{
		{"two decimals", 29.944, 2, 29.94},
		{"half rounds away from zero", 30.125, 2, 30.13},
		{"negative", -1.005, 1, -1.0},
		{"zero decimals", 31.6, 0, 32},
		{"already rounded", 22.6, 2, 22.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Round(tt.input, tt.decimals); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Round(%v, %d) = %v, expected %v", tt.input, tt.decimals, got, tt.expected)
			}
		})
	}

	if !math.IsNaN(Round(math.NaN(), 2)) {
		t.Error("NaN should pass through")
	}
	if !math.IsInf(Round(math.Inf(1), 2), 1) {
		t.Error("+Inf should pass through")
	}
	if got := RoundPrice(35.4567); got != 35.46 {
		t.Errorf("RoundPrice = %v", got)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1.5) {
		t.Error("1.5 is finite")
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if IsFinite(v) {
			t.Errorf("%v should not be finite", v)
		}
	}
}

func TestFiniteValues(t *testing.T) {
	in := map[string]float64{"mae": 0.2, "aic": math.Inf(-1), "mape": math.NaN()}
	out := FiniteValues(in)

	if len(out) != 1 || out["mae"] != 0.2 {
		t.Errorf("unexpected result %v", out)
	}
	if len(in) != 3 {
		t.Error("input must not be modified")
	}
	if FiniteValues(map[string]float64{"aic": math.NaN()}) != nil {
		t.Error("expected nil when nothing is finite")
	}
	if FiniteValues(nil) != nil {
		t.Error("expected nil for nil input")
	}
}
