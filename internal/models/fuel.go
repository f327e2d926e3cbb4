package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fuelcast/fuelcast/internal/analytics"
)

// ErrColumnNotFound is returned when a required fuel-type column is absent from a table.
var ErrColumnNotFound = errors.New("column not found")

// ErrUnknownFuelType is returned for a fuel type key outside the enumerated set.
var ErrUnknownFuelType = errors.New("unknown fuel type")

// FuelType identifies one tracked commodity.
type FuelType string

const (
	FuelDiesel     FuelType = "diesel"
	FuelGasohol95  FuelType = "gasohol_95"
	FuelGasohol91  FuelType = "gasohol_91"
	FuelGasoholE20 FuelType = "gasohol_e20"
	FuelDieselB7   FuelType = "diesel_b7"
	FuelLPG        FuelType = "lpg"
)

// AllFuelTypes lists every fuel type in canonical column order.
var AllFuelTypes = []FuelType{
	FuelDiesel,
	FuelGasohol95,
	FuelGasohol91,
	FuelGasoholE20,
	FuelDieselB7,
	FuelLPG,
}

// localNames are the Thai labels used when rendering observations as text.
var localNames = map[FuelType]string{
	FuelDiesel:     "ดีเซล",
	FuelGasohol95:  "แก๊สโซฮอล์ 95",
	FuelGasohol91:  "แก๊สโซฮอล์ 91",
	FuelGasoholE20: "แก๊สโซฮอล์ E20",
	FuelDieselB7:   "ดีเซล B7",
	FuelLPG:        "ก๊าซ LPG",
}

// ParseFuelType validates a fuel type key.
func ParseFuelType(s string) (FuelType, error) {
	ft := FuelType(s)
	if ft.Valid() {
		return ft, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFuelType, s)
}

// Valid reports whether ft is one of the enumerated fuel types.
func (ft FuelType) Valid() bool {
	_, ok := localNames[ft]
	return ok
}

// LocalName returns the Thai label of the fuel type.
func (ft FuelType) LocalName() string {
	return localNames[ft]
}

func (ft FuelType) String() string {
	return string(ft)
}

// PriceObservation is one dated row of prices. A fuel without a known price
// on that date has no entry in Prices.
type PriceObservation struct {
	Date   time.Time
	Prices map[FuelType]float64
}

// Price returns the price of ft on this date, if known.
func (o PriceObservation) Price(ft FuelType) (float64, bool) {
	p, ok := o.Prices[ft]
	if !ok || math.IsNaN(p) {
		return 0, false
	}
	return p, true
}

// Series is the ordered price history of a single fuel type.
type Series struct {
	FuelType FuelType
	Data     analytics.TimeSeriesData
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Data)
}

// Values returns the prices in date order.
func (s Series) Values() []float64 {
	return s.Data.Values()
}

// LastDate returns the latest observation date, or the zero time for an empty series.
func (s Series) LastDate() time.Time {
	if len(s.Data) == 0 {
		return time.Time{}
	}
	return s.Data[len(s.Data)-1].Time
}

// Sorted returns a copy ordered ascending by date. Later duplicates of a date win.
func (s Series) Sorted() Series {
	byDate := make(map[time.Time]float64, len(s.Data))
	for _, p := range s.Data {
		byDate[DateOnly(p.Time)] = p.Value
	}

	data := make(analytics.TimeSeriesData, 0, len(byDate))
	for d, v := range byDate {
		data = append(data, analytics.TimeSeriesPoint{Time: d, Value: v})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Time.Before(data[j].Time) })

	return Series{FuelType: s.FuelType, Data: data}
}

// PriceTable is the normalized multi-fuel output of the series normalizer:
// rows ascending by date and the fuel types present in every row.
type PriceTable struct {
	Rows      []PriceObservation
	FuelTypes []FuelType
}

// Has reports whether the table carries a column for ft.
func (t *PriceTable) Has(ft FuelType) bool {
	for _, f := range t.FuelTypes {
		if f == ft {
			return true
		}
	}
	return false
}

// Series extracts the single-fuel series for ft.
func (t *PriceTable) Series(ft FuelType) (Series, error) {
	if !t.Has(ft) {
		return Series{}, fmt.Errorf("%w: %s", ErrColumnNotFound, ft)
	}

	data := make(analytics.TimeSeriesData, 0, len(t.Rows))
	for _, row := range t.Rows {
		if p, ok := row.Price(ft); ok {
			data = append(data, analytics.TimeSeriesPoint{Time: row.Date, Value: p})
		}
	}
	return Series{FuelType: ft, Data: data}, nil
}

// DateRange returns the first and last row dates.
func (t *PriceTable) DateRange() (time.Time, time.Time) {
	if len(t.Rows) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.Rows[0].Date, t.Rows[len(t.Rows)-1].Date
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
