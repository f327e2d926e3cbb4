package models

// PriceRequest represents a single observation write request
type PriceRequest struct {
	Date       string   `json:"date" validate:"required"`
	Diesel     *float64 `json:"diesel,omitempty" validate:"omitempty,gte=0"`
	Gasohol95  *float64 `json:"gasohol_95,omitempty" validate:"omitempty,gte=0"`
	Gasohol91  *float64 `json:"gasohol_91,omitempty" validate:"omitempty,gte=0"`
	GasoholE20 *float64 `json:"gasohol_e20,omitempty" validate:"omitempty,gte=0"`
	DieselB7   *float64 `json:"diesel_b7,omitempty" validate:"omitempty,gte=0"`
	LPG        *float64 `json:"lpg,omitempty" validate:"omitempty,gte=0"`
}

// Prices collects the set fields of the request keyed by fuel type
func (r *PriceRequest) Prices() map[FuelType]float64 {
	prices := make(map[FuelType]float64)
	for ft, v := range map[FuelType]*float64{
		FuelDiesel:     r.Diesel,
		FuelGasohol95:  r.Gasohol95,
		FuelGasohol91:  r.Gasohol91,
		FuelGasoholE20: r.GasoholE20,
		FuelDieselB7:   r.DieselB7,
		FuelLPG:        r.LPG,
	} {
		if v != nil {
			prices[ft] = *v
		}
	}
	return prices
}

// TrainingRequest represents a model training request
type TrainingRequest struct {
	FuelType string `json:"fuel_type" default:"diesel" validate:"required"`
	Retrain  bool   `json:"retrain"`
	Async    bool   `json:"async"`
}

// PredictionRequest represents a forecast request
type PredictionRequest struct {
	FuelType string `json:"fuel_type" default:"diesel" validate:"required"`
	Days     int    `json:"days" default:"7" validate:"min=1,max=30"`
}

// SampleDataRequest represents a synthetic data generation request
type SampleDataRequest struct {
	StartDate string `json:"start_date" default:"2024-01-01"`
	EndDate   string `json:"end_date" default:"2026-02-17"`
	Seed      int64  `json:"seed" default:"42"`
}

// SearchQuery represents similarity search query parameters
type SearchQuery struct {
	Price    float64 `query:"price" validate:"gt=0"`
	FuelType string  `query:"fuel_type" default:"diesel"`
	Limit    int     `query:"limit" default:"10" validate:"min=1,max=100"`
}
