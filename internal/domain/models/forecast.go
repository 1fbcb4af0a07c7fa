package models

import "time"

// ForecastPoint is one predicted value for a segment at a future timestamp.
// Quantiles holds the prediction-interval levels keyed by quantile, empty
// when intervals were not requested.
type ForecastPoint struct {
	Segment   string
	Timestamp time.Time
	Value     float64
	Quantiles map[float64]float64
}

// ForecastBatch represents one completed forecast run across segments.
// Note: no transport (json/http) concerns here.
type ForecastBatch struct {
	RunID     string
	Model     string
	Horizon   int
	CreatedAt time.Time
	Points    []ForecastPoint
}
