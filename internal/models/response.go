package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string `json:"status"`
	VectorStore string `json:"vector_store"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
}

// UploadResponse represents the result of a CSV upload or sample generation
type UploadResponse struct {
	Message   string   `json:"message"`
	Records   int      `json:"records"`
	FuelTypes []string `json:"fuel_types"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
}

// PriceWriteResponse represents a single observation write response
type PriceWriteResponse struct {
	Message string `json:"message"`
	Date    string `json:"date"`
}

// TrainingResponse represents a synchronous training result
type TrainingResponse struct {
	Status        string             `json:"status"`
	Message       string             `json:"message"`
	FuelType      string             `json:"fuel_type"`
	Samples       int                `json:"samples,omitempty"`
	ModelKind     string             `json:"model_kind,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
	LastTrainDate string             `json:"last_train_date,omitempty"`
}

// TrainingJobResponse represents an accepted asynchronous training job
type TrainingJobResponse struct {
	Status   string `json:"status"`
	JobID    string `json:"job_id"`
	FuelType string `json:"fuel_type"`
}

// PredictionPoint is one day of a forecast
type PredictionPoint struct {
	Day            int     `json:"day"`
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predicted_price"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}

// ModelInfoView describes the model that produced a forecast
type ModelInfoView struct {
	ModelKind     string             `json:"model_kind"`
	LastTrainDate string             `json:"last_train_date"`
	TrainedAt     string             `json:"trained_at,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// PredictionResponse represents a forecast response
type PredictionResponse struct {
	FuelType     string            `json:"fuel_type"`
	CurrentPrice *float64          `json:"current_price"`
	Predictions  []PredictionPoint `json:"predictions"`
	ModelInfo    ModelInfoView     `json:"model_info"`
}

// SimilarPrice is one similarity search hit
type SimilarPrice struct {
	Date            string  `json:"date"`
	Price           float64 `json:"price"`
	Difference      float64 `json:"difference"`
	SimilarityScore float64 `json:"similarity_score"`
}

// SearchResponse represents similarity search response
type SearchResponse struct {
	FuelType    string         `json:"fuel_type"`
	TargetPrice float64        `json:"target_price"`
	Results     []SimilarPrice `json:"results"`
}

// LatestPrice is the most recent stored price of one fuel type
type LatestPrice struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// LatestPricesResponse represents latest prices response
type LatestPricesResponse struct {
	Prices map[string]LatestPrice `json:"prices"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ModelHistoryEntry is one recorded training run
type ModelHistoryEntry struct {
	ModelKind     string             `json:"model_kind"`
	LastTrainDate string             `json:"last_train_date"`
	CreatedAt     string             `json:"created_at"`
	Samples       int                `json:"samples"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// ModelDetailsResponse describes the persisted model of a fuel type and its training history
type ModelDetailsResponse struct {
	FuelType  string              `json:"fuel_type"`
	Trained   bool                `json:"trained"`
	ModelInfo *ModelInfoView      `json:"model_info,omitempty"`
	History   []ModelHistoryEntry `json:"history"`
	LastJob   *TrainingJobStatus  `json:"last_job,omitempty"`
}

// TrainingJobStatus is the outcome of the last background training job of a fuel type
type TrainingJobStatus struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	FinishedAt string `json:"finished_at"`
}
