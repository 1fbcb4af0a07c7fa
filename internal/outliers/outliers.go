// Package outliers flags anomalous observations by comparing each series
// against a model-based confidence band over its own history.
package outliers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ForePull/internal/dataset"
	"ForePull/internal/forecast"
	applogger "ForePull/pkg/logger"
)

// Detector finds observations that fall strictly outside a per-segment
// prediction interval. A fresh model is fitted per segment from the supplied
// factory, the whole history is predicted in-sample with the interval of the
// configured width, and every point below the lower or above the upper bound
// is reported. Points on the bounds are not outliers.
type Detector struct {
	factory forecast.SeriesFactory
	width   float64
	l       *applogger.Logger
}

// New creates a detector. Width is the central interval mass in (0, 1),
// e.g. 0.95.
func New(factory forecast.SeriesFactory, width float64) (*Detector, error) {
	if factory == nil {
		return nil, &forecast.ConfigurationError{Reason: "outlier detector needs a model factory"}
	}
	if width <= 0 || width >= 1 {
		return nil, &forecast.ConfigurationError{Reason: fmt.Sprintf("interval width must be in (0, 1), got %g", width)}
	}
	return &Detector{factory: factory, width: width}, nil
}

// NewFromRegistry creates a detector over a registered model name.
func NewFromRegistry(model string, width float64) (*Detector, error) {
	factory, err := forecast.Lookup(model)
	if err != nil {
		return nil, err
	}
	return New(factory, width)
}

// SetLogger injects a structured logger.
func (d *Detector) SetLogger(l *applogger.Logger) { d.l = l }

// Detect returns, per segment, the timestamps of observations strictly
// outside the model's in-sample interval, in ascending order. Segments are
// processed independently; a model that cannot produce in-sample quantiles
// yields a CapabilityError.
func (d *Detector) Detect(ctx context.Context, panel *dataset.Panel) (map[string][]time.Time, error) {
	lo := (1 - d.width) / 2
	hi := 1 - lo
	out := make(map[string][]time.Time)
	for _, seg := range panel.Segments() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stamps, err := d.detectSegment(panel, seg, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("detect outliers in segment %s: %w", seg, err)
		}
		out[seg] = stamps
	}
	return out, nil
}

func (d *Detector) detectSegment(panel *dataset.Panel, segment string, lo, hi float64) ([]time.Time, error) {
	target, err := panel.Column(segment, dataset.TargetFeature)
	if err != nil {
		return nil, err
	}
	model := d.factory()
	if err := model.Fit(target); err != nil {
		return nil, err
	}
	qp, ok := model.(forecast.InSampleQuantilePredictor)
	if !ok {
		return nil, &forecast.CapabilityError{Model: model.Name(), Capability: "in-sample prediction intervals", Segment: segment}
	}
	paths, err := qp.PredictInSampleQuantiles([]float64{lo, hi})
	if err != nil {
		return nil, err
	}
	lower, upper := paths[lo], paths[hi]
	if len(lower) != len(target) || len(upper) != len(target) {
		return nil, fmt.Errorf("model %s returned %d/%d interval points for %d observations",
			model.Name(), len(lower), len(upper), len(target))
	}

	stamps := make([]time.Time, 0)
	for i, v := range target {
		if v < lower[i] || v > upper[i] {
			stamps = append(stamps, panel.Timestamp(i))
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	if d.l != nil && len(stamps) > 0 {
		d.l.Debug("outliers detected",
			applogger.String("segment", segment),
			applogger.Int("count", len(stamps)))
	}
	return stamps, nil
}
