// Package features derives calendar, lag and rolling-window features from a
// normalized price table for regression-style models.
package features

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/fuelcast/fuelcast/internal/models"
)

// Options selects the lag offsets and rolling windows to compute
type Options struct {
	Lags    []int
	Windows []int
}

// DefaultOptions returns the canonical feature set
func DefaultOptions() Options {
	return Options{
		Lags:    []int{1, 2, 3, 7, 14, 30},
		Windows: []int{3, 7, 14, 30},
	}
}

// warmup returns how many leading rows cannot have every feature defined
func (o Options) warmup() int {
	w := 1 // pct_change and diff
	for _, l := range o.Lags {
		if l > w {
			w = l
		}
	}
	for _, win := range o.Windows {
		if win-1 > w {
			w = win - 1
		}
	}
	return w
}

// calendarColumns are computed from each row's date
var calendarColumns = []string{"day_of_week", "month", "quarter", "year", "day_of_month", "week_of_year"}

// Table is a dense feature matrix: one row per date, one value per column.
type Table struct {
	Target  models.FuelType
	Columns []string
	Dates   []time.Time
	Rows    [][]float64
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the values of a named column
func (t *Table) Column(name string) ([]float64, error) {
	for j, c := range t.Columns {
		if c == name {
			out := make([]float64, len(t.Rows))
			for i, row := range t.Rows {
				out[i] = row[j]
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrColumnNotFound, name)
}

// Derive computes features for target using the default options
func Derive(table *models.PriceTable, target models.FuelType) (*Table, error) {
	return DeriveWithOptions(table, target, DefaultOptions())
}

// DeriveWithOptions computes features for target. Rows whose lags or windows
// reach before the start of the table are dropped, as are rows whose
// percentage change is undefined.
func DeriveWithOptions(table *models.PriceTable, target models.FuelType, opts Options) (*Table, error) {
	if !table.Has(target) {
		return nil, fmt.Errorf("%w: %s", models.ErrColumnNotFound, target)
	}
	for _, l := range opts.Lags {
		if l < 1 {
			return nil, fmt.Errorf("lag must be positive, got %d", l)
		}
	}
	for _, w := range opts.Windows {
		if w < 2 {
			return nil, fmt.Errorf("window must cover at least 2 rows, got %d", w)
		}
	}

	n := len(table.Rows)
	values := make(map[models.FuelType][]float64, len(table.FuelTypes))
	for _, ft := range table.FuelTypes {
		col := make([]float64, n)
		for i, row := range table.Rows {
			v, ok := row.Price(ft)
			if !ok {
				return nil, fmt.Errorf("%s has no price on %s", ft, row.Date.Format(time.DateOnly))
			}
			col[i] = v
		}
		values[ft] = col
	}
	y := values[target]

	columns := make([]string, 0, len(table.FuelTypes)+len(calendarColumns)+len(opts.Lags)+4*len(opts.Windows)+2)
	for _, ft := range table.FuelTypes {
		columns = append(columns, string(ft))
	}
	columns = append(columns, calendarColumns...)
	for _, l := range opts.Lags {
		columns = append(columns, fmt.Sprintf("%s_lag_%d", target, l))
	}
	for _, w := range opts.Windows {
		columns = append(columns,
			fmt.Sprintf("%s_ma_%d", target, w),
			fmt.Sprintf("%s_std_%d", target, w),
			fmt.Sprintf("%s_min_%d", target, w),
			fmt.Sprintf("%s_max_%d", target, w))
	}
	columns = append(columns, fmt.Sprintf("%s_pct_change", target), fmt.Sprintf("%s_diff", target))

	out := &Table{Target: target, Columns: columns}
	for i := opts.warmup(); i < n; i++ {
		if y[i-1] == 0 {
			continue
		}

		row := make([]float64, 0, len(columns))
		for _, ft := range table.FuelTypes {
			row = append(row, values[ft][i])
		}

		date := table.Rows[i].Date
		row = append(row, calendar(date)...)

		for _, l := range opts.Lags {
			row = append(row, y[i-l])
		}
		for _, w := range opts.Windows {
			window := y[i-w+1 : i+1]
			row = append(row,
				stat.Mean(window, nil),
				stat.StdDev(window, nil),
				floats.Min(window),
				floats.Max(window))
		}
		row = append(row, y[i]/y[i-1]-1, y[i]-y[i-1])

		out.Dates = append(out.Dates, date)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// calendar returns the calendar feature values for date, Monday as day 0
func calendar(date time.Time) []float64 {
	_, week := date.ISOWeek()
	month := int(date.Month())
	return []float64{
		float64((int(date.Weekday()) + 6) % 7),
		float64(month),
		float64((month-1)/3 + 1),
		float64(date.Year()),
		float64(date.Day()),
		float64(week),
	}
}
