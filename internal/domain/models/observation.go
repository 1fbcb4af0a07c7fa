package models

import "time"

// Observation is one measured value of a segment's series at a timestamp.
type Observation struct {
	Segment   string
	Timestamp time.Time
	Value     float64
}

// OutlierRecord marks an observation that fell outside a model's
// confidence band over its segment's history.
type OutlierRecord struct {
	Segment    string
	Timestamp  time.Time
	Value      float64
	Model      string
	Width      float64 // interval mass the point escaped, e.g. 0.95
	DetectedAt time.Time
}
