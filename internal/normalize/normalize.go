// Package normalize turns raw tabular price files into canonical per-fuel series.
package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
)

// Normalizer parses raw CSV price tables
type Normalizer struct {
	logger *logging.Logger
}

// New creates a normalizer
func New(logger *logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Global()
	}
	return &Normalizer{logger: logger}
}

// row is one parsed input line before gap filling
type row struct {
	date   time.Time
	prices map[models.FuelType]float64
}

// NormalizeReader reads all of r and normalizes it
func (n *Normalizer) NormalizeReader(r io.Reader) (*models.PriceTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return n.Normalize(raw)
}

// Normalize decodes, parses and gap-fills a raw CSV table. The result is
// ascending by date with one row per date, and every fuel column it lists is
// populated on every row.
func (n *Normalizer) Normalize(raw []byte) (*models.PriceTable, error) {
	text, encoding, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	n.logger.Debug("Decoded input", "encoding", encoding, "bytes", len(raw))

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input has no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	body := records[1:]

	dateIdx, dateHeader := findDateColumn(header)
	priceCols := findPriceColumns(header)
	if len(priceCols) == 0 {
		return nil, fmt.Errorf("%w: no recognized price column in %v", models.ErrColumnNotFound, header)
	}

	if dateIdx < 0 {
		n.logger.Warn("No date column found, synthesizing daily dates", "epoch", Epoch.Format(time.DateOnly))
	}

	rows := make([]row, 0, len(body))
	dropped := 0
	for i, rec := range body {
		var date time.Time
		if dateIdx >= 0 {
			d, ok := parseDate(cell(rec, dateIdx), dayFirstHeaders[dateHeader])
			if !ok {
				dropped++
				continue
			}
			date = d
		} else {
			date = Epoch.AddDate(0, 0, i)
		}

		prices := make(map[models.FuelType]float64, len(priceCols))
		for ft, idx := range priceCols {
			if v, ok := parsePrice(cell(rec, idx)); ok {
				prices[ft] = v
			}
		}
		rows = append(rows, row{date: date, prices: prices})
	}
	if dropped > 0 {
		n.logger.Warn("Dropped rows with unparseable dates", "count", dropped)
	}

	rows = sortAndDedupe(rows)
	fuelTypes := fill(rows, priceCols)

	table := &models.PriceTable{
		Rows:      make([]models.PriceObservation, len(rows)),
		FuelTypes: fuelTypes,
	}
	for i, r := range rows {
		table.Rows[i] = models.PriceObservation{Date: r.date, Prices: r.prices}
	}

	if len(rows) > 0 {
		first, last := table.DateRange()
		n.logger.Info("Normalized price table",
			"records", len(rows),
			"fuel_types", fuelTypes,
			"from", first.Format(time.DateOnly),
			"to", last.Format(time.DateOnly))
	}
	return table, nil
}

func cell(rec []string, idx int) string {
	if idx < len(rec) {
		return rec[idx]
	}
	return ""
}

// findDateColumn returns the index and name of the highest-priority date header
func findDateColumn(header []string) (int, string) {
	for _, name := range dateHeaders {
		for i, h := range header {
			if h == name {
				return i, name
			}
		}
	}
	return -1, ""
}

// findPriceColumns maps each recognized fuel type to its first matching column
func findPriceColumns(header []string) map[models.FuelType]int {
	cols := make(map[models.FuelType]int)
	for i, h := range header {
		ft, ok := resolveFuelType(h)
		if !ok {
			continue
		}
		if _, seen := cols[ft]; !seen {
			cols[ft] = i
		}
	}
	return cols
}

// sortAndDedupe orders rows by date and merges repeated dates, later values winning
func sortAndDedupe(rows []row) []row {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	out := rows[:0]
	for _, r := range rows {
		if len(out) > 0 && out[len(out)-1].date.Equal(r.date) {
			for ft, v := range r.prices {
				out[len(out)-1].prices[ft] = v
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// fill forward-fills then backward-fills each fuel column and returns the
// fuel types that ended up populated, in canonical order. Columns with no
// value at all are removed.
func fill(rows []row, cols map[models.FuelType]int) []models.FuelType {
	var present []models.FuelType
	for _, ft := range models.AllFuelTypes {
		if _, ok := cols[ft]; !ok {
			continue
		}

		var last float64
		seen := false
		for _, r := range rows {
			if v, ok := r.prices[ft]; ok {
				last, seen = v, true
			} else if seen {
				r.prices[ft] = last
			}
		}
		if !seen {
			continue
		}

		var next float64
		for i := len(rows) - 1; i >= 0; i-- {
			if v, ok := rows[i].prices[ft]; ok {
				next = v
			} else {
				rows[i].prices[ft] = next
			}
		}
		present = append(present, ft)
	}
	return present
}
