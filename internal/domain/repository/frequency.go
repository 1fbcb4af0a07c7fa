package repository

import "time"

// Frequency represents the resampling resolution of an observation series.
type Frequency string

const (
	FreqMinute Frequency = "1m"
	FreqHour   Frequency = "1h"
	FreqDay    Frequency = "1d"
)

// Duration returns the bucket width of the frequency.
func (f Frequency) Duration() time.Duration {
	switch f {
	case FreqMinute:
		return time.Minute
	case FreqHour:
		return time.Hour
	case FreqDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// IsValidFrequency returns true if f is a supported frequency.
func IsValidFrequency(f Frequency) bool {
	switch f {
	case FreqMinute, FreqHour, FreqDay:
		return true
	default:
		return false
	}
}

// DefaultFrequency returns the default frequency.
func DefaultFrequency() Frequency { return FreqHour }

// NormalizeFrequency converts raw string to a valid frequency (or default).
func NormalizeFrequency(s string) Frequency {
	if s == "" {
		return DefaultFrequency()
	}
	f := Frequency(s)
	if IsValidFrequency(f) {
		return f
	}
	return DefaultFrequency()
}
