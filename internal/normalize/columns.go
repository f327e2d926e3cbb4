package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fuelcast/fuelcast/internal/models"
)

// dateHeaders are the recognized date column names in priority order
var dateHeaders = []string{"date", "Date", "วันที่", "ว/ด/ป"}

// dayFirstHeaders use day/month/year ordering for slash dates
var dayFirstHeaders = map[string]bool{"ว/ด/ป": true}

// priceHeaders maps recognized column names to fuel types
var priceHeaders = map[string]models.FuelType{
	"ดีเซล":          models.FuelDiesel,
	"Diesel":         models.FuelDiesel,
	"แก๊สโซฮอล์ 95":  models.FuelGasohol95,
	"Gasohol 95":     models.FuelGasohol95,
	"แก๊สโซฮอล์ 91":  models.FuelGasohol91,
	"Gasohol 91":     models.FuelGasohol91,
	"E20":            models.FuelGasoholE20,
	"แก๊สโซฮอล์ E20": models.FuelGasoholE20,
	"ดีเซล B7":       models.FuelDieselB7,
	"Diesel B7":      models.FuelDieselB7,
	"ก๊าซ LPG":       models.FuelLPG,
	"LPG":            models.FuelLPG,
}

// Epoch is the first synthesized date when the input has no date column.
var Epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
}

var dayFirstLayouts = []string{"02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006", "02/01/06", "2/1/06"}

var monthFirstLayouts = []string{"01/02/2006", "1/2/2006", "01-02-2006", "1-2-2006", "01/02/06", "1/2/06", "Jan 2, 2006", "2 Jan 2006"}

// resolveFuelType maps a header to a fuel type. Canonical keys are accepted as-is.
func resolveFuelType(header string) (models.FuelType, bool) {
	if ft, ok := priceHeaders[header]; ok {
		return ft, true
	}
	if ft := models.FuelType(header); ft.Valid() {
		return ft, true
	}
	return "", false
}

// parseDate parses a date cell. Buddhist-era years are converted to the
// Gregorian calendar.
func parseDate(s string, dayFirst bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	layouts := isoLayouts
	if dayFirst {
		layouts = append(append([]string{}, layouts...), dayFirstLayouts...)
	} else {
		layouts = append(append([]string{}, layouts...), monthFirstLayouts...)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > 2400 {
				t = t.AddDate(-543, 0, 0)
			}
			return models.DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// parsePrice strips thousands separators and dash placeholders. Tokens that
// still fail to parse are reported as missing.
func parsePrice(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "-", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
