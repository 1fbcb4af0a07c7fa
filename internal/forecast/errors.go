package forecast

import "fmt"

// NotFittedError is returned when Forecast or Models is called on an adapter
// or pipeline that has not been fitted yet.
type NotFittedError struct {
	Entity string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s is not fitted, call Fit first", e.Entity)
}

// ConfigurationError is returned for invalid static configuration: bad
// ensemble composition, mismatched horizons, missing required transforms.
// It is raised eagerly at construction or fit time, never deferred to forecast.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// CapabilityError is returned when a wrapped model cannot satisfy a requested
// capability such as in-sample re-prediction or prediction intervals. The
// request fails instead of silently leaving cells unset.
type CapabilityError struct {
	Model      string
	Capability string
	Segment    string
}

func (e *CapabilityError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("model %q does not support %s (segment %q)", e.Model, e.Capability, e.Segment)
	}
	return fmt.Sprintf("model %q does not support %s", e.Model, e.Capability)
}

// AlignmentError is returned when a requested forecast range has no overlap
// with anything the fitted model can produce, or does not sit on the trained
// time grid.
type AlignmentError struct {
	Segment string
	Reason  string
}

func (e *AlignmentError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("cannot align forecast range (segment %q): %s", e.Segment, e.Reason)
	}
	return fmt.Sprintf("cannot align forecast range: %s", e.Reason)
}
