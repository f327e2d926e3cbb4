package utils

import "math"

// Round rounds v half away from zero to the given number of decimals.
// Non-finite values are returned unchanged.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// RoundPrice rounds v to PriceDecimals
func RoundPrice(v float64) float64 {
	return Round(v, PriceDecimals)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteValues returns a copy of m without NaN or infinite entries.
// Returns nil for an empty result.
func FiniteValues(m map[string]float64) map[string]float64 {
	var out map[string]float64
	for k, v := range m {
		if !IsFinite(v) {
			continue
		}
		if out == nil {
			out = make(map[string]float64, len(m))
		}
		out[k] = v
	}
	return out
}
