// Package analytics holds the daily price series type shared by the model
// families and the price domain.
package analytics

import (
	"math"
	"time"
)

// TimeSeriesPoint is one dated observation
type TimeSeriesPoint struct {
	Time  time.Time
	Value float64
}

// TimeSeriesData is a sequence of observations, ascending by time where it feeds a model
type TimeSeriesData []TimeSeriesPoint

// Values extracts just the values from the time series
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, len(ts))
	for i, p := range ts {
		values[i] = p.Value
	}
	return values
}

// Len returns the number of data points
func (ts TimeSeriesData) Len() int {
	return len(ts)
}

// Finite returns the points whose value is neither NaN nor infinite, in order
func (ts TimeSeriesData) Finite() TimeSeriesData {
	out := make(TimeSeriesData, 0, len(ts))
	for _, p := range ts {
		if !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
			out = append(out, p)
		}
	}
	return out
}

// Span returns the first and last observation times, zero for an empty series
func (ts TimeSeriesData) Span() (time.Time, time.Time) {
	if len(ts) == 0 {
		return time.Time{}, time.Time{}
	}
	return ts[0].Time, ts[len(ts)-1].Time
}
