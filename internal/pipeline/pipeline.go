// Package pipeline couples a segment model adapter with its feature
// transforms and a fixed forecast horizon, and owns the fit/forecast
// lifecycle order: transform, fit, transform-future, forecast,
// inverse-transform.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"ForePull/internal/dataset"
	"ForePull/internal/domain/repository"
	"ForePull/internal/forecast"
	"ForePull/internal/transform"
	applogger "ForePull/pkg/logger"
)

// Pipeline runs one adapter behind an ordered transform sequence. The horizon
// is fixed at construction and is the sole source of truth for how far a
// no-argument Forecast extends.
type Pipeline struct {
	adapter    forecast.Adapter
	transforms []transform.Transform
	horizon    int

	train  *dataset.Panel // transformed training panel, set by Fit
	fitted bool

	l       *applogger.Logger
	metrics repository.Metrics
}

// New creates an unfitted pipeline. Transform requirements are validated
// eagerly: a multi-segment adapter needs feature-producing transforms, and a
// lag transform must be at least as deep as the horizon.
func New(adapter forecast.Adapter, horizon int, transforms ...transform.Transform) (*Pipeline, error) {
	if adapter == nil {
		return nil, &forecast.ConfigurationError{Reason: "pipeline requires a model adapter"}
	}
	if horizon < 1 {
		return nil, &forecast.ConfigurationError{Reason: fmt.Sprintf("horizon must be at least 1, got %d", horizon)}
	}
	var hasFeatures bool
	for _, tr := range transforms {
		switch t := tr.(type) {
		case *transform.Lag:
			hasFeatures = true
			if t.MinLag() < horizon {
				return nil, &forecast.ConfigurationError{
					Reason: fmt.Sprintf("lag depth %d is shallower than horizon %d", t.MinLag(), horizon),
				}
			}
		case *transform.SegmentEncoder:
			hasFeatures = true
		}
	}
	if _, multi := adapter.(*forecast.MultiSegment); multi && !hasFeatures {
		return nil, &forecast.ConfigurationError{Reason: "multi-segment pipeline requires feature transforms (lag, segment encoder)"}
	}
	return &Pipeline{adapter: adapter, transforms: transforms, horizon: horizon}, nil
}

// Horizon returns the number of future periods a no-argument Forecast covers.
func (p *Pipeline) Horizon() int { return p.horizon }

// SetLogger injects a structured logger.
func (p *Pipeline) SetLogger(l *applogger.Logger) { p.l = l }

// SetMetrics injects a metrics recorder.
func (p *Pipeline) SetMetrics(m repository.Metrics) { p.metrics = m }

// Fit applies all transforms in order, then fits the adapter on the
// transformed panel. The caller's panel is not mutated.
func (p *Pipeline) Fit(ctx context.Context, panel *dataset.Panel) error {
	start := time.Now()
	work := panel.Copy()
	for _, tr := range p.transforms {
		if err := tr.Fit(work); err != nil {
			return fmt.Errorf("fit transform %s: %w", tr.Name(), err)
		}
		if err := tr.Apply(work); err != nil {
			return fmt.Errorf("apply transform %s: %w", tr.Name(), err)
		}
	}
	if err := p.adapter.Fit(ctx, work); err != nil {
		return err
	}
	p.train = work
	p.fitted = true
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_fit", time.Since(start).Seconds())
	}
	if p.l != nil {
		p.l.Info("pipeline fitted",
			applogger.Int("segments", len(work.Segments())),
			applogger.Int("horizon", p.horizon),
			applogger.Duration("took", time.Since(start)))
	}
	return nil
}

// Forecast extends the fitted panel by the horizon and forecasts it.
func (p *Pipeline) Forecast(ctx context.Context, opts forecast.Options) (*dataset.Panel, error) {
	if !p.fitted {
		return nil, &forecast.NotFittedError{Entity: "pipeline"}
	}
	future, err := p.train.MakeFuture(p.horizon)
	if err != nil {
		return nil, err
	}
	return p.ForecastRange(ctx, future, opts)
}

// ForecastRange forecasts exactly the supplied panel's range, which may be
// any sub-range of the trained history and the horizon. The panel's target
// (and quantile) columns are filled in place and the same panel is returned.
func (p *Pipeline) ForecastRange(ctx context.Context, panel *dataset.Panel, opts forecast.Options) (*dataset.Panel, error) {
	if !p.fitted {
		return nil, &forecast.NotFittedError{Entity: "pipeline"}
	}
	start := time.Now()
	for _, tr := range p.transforms {
		if err := tr.ApplyFuture(panel); err != nil {
			return nil, fmt.Errorf("apply transform %s: %w", tr.Name(), err)
		}
	}
	out, err := p.adapter.Forecast(ctx, panel, opts)
	if err != nil {
		return nil, err
	}
	for i := len(p.transforms) - 1; i >= 0; i-- {
		if err := p.transforms[i].Invert(out); err != nil {
			return nil, fmt.Errorf("invert transform %s: %w", p.transforms[i].Name(), err)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_forecast", time.Since(start).Seconds())
		for _, seg := range out.Segments() {
			p.metrics.RecordForecastPoints(seg, out.Len())
		}
	}
	return out, nil
}

// Models exposes the adapter's fitted model instances.
func (p *Pipeline) Models() (map[string]interface{}, error) {
	return p.adapter.Models()
}
