package normalize

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/fuelcast/fuelcast/internal/models"
)

// SampleSeries generates a synthetic daily table between start and end
// inclusive: a linear 30→35 trend, a yearly sine wave and Gaussian noise for
// diesel, with gasohol grades offset from diesel and an independent LPG series.
func SampleSeries(start, end time.Time, seed int64) (*models.PriceTable, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	n := int(end.Sub(start).Hours()/24) + 1
	rng := rand.New(rand.NewSource(seed))

	diesel := make([]float64, n)
	for i := range diesel {
		trend := 30.0
		if n > 1 {
			trend += 5 * float64(i) / float64(n-1)
		}
		seasonal := 2 * math.Sin(float64(i)*2*math.Pi/365)
		diesel[i] = trend + seasonal + rng.NormFloat64()*0.5
	}

	table := &models.PriceTable{
		Rows:      make([]models.PriceObservation, n),
		FuelTypes: []models.FuelType{models.FuelDiesel, models.FuelGasohol95, models.FuelGasohol91, models.FuelLPG},
	}
	for i := range table.Rows {
		table.Rows[i] = models.PriceObservation{
			Date: start.AddDate(0, 0, i),
			Prices: map[models.FuelType]float64{
				models.FuelDiesel:    diesel[i],
				models.FuelGasohol95: diesel[i] + 8 + rng.NormFloat64()*0.3,
				models.FuelGasohol91: diesel[i] + 6 + rng.NormFloat64()*0.3,
				models.FuelLPG:       20 + rng.NormFloat64()*0.5,
			},
		}
	}
	return table, nil
}
