// Package ensemble combines multiple forecasting pipelines into a single
// forecast. Constituent pipelines share one horizon, are fitted independently
// (and concurrently), and any single failure aborts the whole operation.
package ensemble

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"ForePull/internal/dataset"
	"ForePull/internal/forecast"
	"ForePull/internal/pipeline"
	applogger "ForePull/pkg/logger"
)

// validatePipelines enforces the ensemble invariants eagerly: at least two
// pipelines, all sharing one horizon.
func validatePipelines(pipelines []*pipeline.Pipeline) (int, error) {
	if len(pipelines) < 2 {
		return 0, &forecast.ConfigurationError{Reason: fmt.Sprintf("at least two pipelines are expected, got %d", len(pipelines))}
	}
	horizons := make(map[int]struct{}, 1)
	for _, p := range pipelines {
		horizons[p.Horizon()] = struct{}{}
	}
	if len(horizons) > 1 {
		var hs []string
		for h := range horizons {
			hs = append(hs, fmt.Sprintf("%d", h))
		}
		return 0, &forecast.ConfigurationError{Reason: "all pipelines should share one horizon, got {" + strings.Join(hs, ", ") + "}"}
	}
	return pipelines[0].Horizon(), nil
}

// fitAll fits every pipeline against its own copy of the panel, concurrently.
// Pipelines share no mutable state, so execution order cannot change results;
// the first failing pipeline (by position) is reported.
func fitAll(ctx context.Context, pipelines []*pipeline.Pipeline, panel *dataset.Panel) error {
	errs := make([]error, len(pipelines))
	var wg sync.WaitGroup
	for i, p := range pipelines {
		wg.Add(1)
		go func(i int, p *pipeline.Pipeline) {
			defer wg.Done()
			errs[i] = p.Fit(ctx, panel.Copy())
		}(i, p)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("fit pipeline %d: %w", i, err)
		}
	}
	return nil
}

// forecastAll obtains one forecast panel per pipeline, concurrently, in
// pipeline order.
func forecastAll(ctx context.Context, pipelines []*pipeline.Pipeline, opts forecast.Options) ([]*dataset.Panel, error) {
	panels := make([]*dataset.Panel, len(pipelines))
	errs := make([]error, len(pipelines))
	var wg sync.WaitGroup
	for i, p := range pipelines {
		wg.Add(1)
		go func(i int, p *pipeline.Pipeline) {
			defer wg.Done()
			panels[i], errs[i] = p.Forecast(ctx, opts)
		}(i, p)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("forecast pipeline %d: %w", i, err)
		}
	}
	return panels, nil
}

// checkAligned verifies that all constituent forecasts cover the same index
// and segment set before combination.
func checkAligned(panels []*dataset.Panel) error {
	base := panels[0]
	for i, p := range panels[1:] {
		if p.Len() != base.Len() || !p.StartTime().Equal(base.StartTime()) || p.Freq() != base.Freq() {
			return fmt.Errorf("pipeline %d forecast index differs from pipeline 0", i+1)
		}
		segs, baseSegs := p.Segments(), base.Segments()
		if len(segs) != len(baseSegs) {
			return fmt.Errorf("pipeline %d forecast segments differ from pipeline 0", i+1)
		}
		for j := range segs {
			if segs[j] != baseSegs[j] {
				return fmt.Errorf("pipeline %d forecast segments differ from pipeline 0", i+1)
			}
		}
	}
	return nil
}

// combineColumns lists the columns every constituent must contribute: the
// target and, in interval mode, one column per quantile.
func combineColumns(opts forecast.Options) []string {
	cols := []string{dataset.TargetFeature}
	if opts.PredictionInterval {
		qs := opts.Quantiles
		if len(qs) == 0 {
			qs = forecast.DefaultQuantiles
		}
		for _, q := range qs {
			cols = append(cols, dataset.QuantileFeature(q))
		}
	}
	return cols
}

// Voting combines constituent forecasts with a per-pipeline weighted mean.
// With nil weights every pipeline contributes equally (simple average).
// Interval columns are combined elementwise exactly like the target; the
// combined interval is a heuristic aggregate of the constituents' own bounds,
// not a statistically rigorous joint interval.
type Voting struct {
	pipelines []*pipeline.Pipeline
	weights   []float64
	horizon   int
	fitted    bool
	l         *applogger.Logger
}

// NewVoting creates a voting ensemble. Weights may be nil (simple average) or
// one positive weight per pipeline; they need not sum to one.
func NewVoting(pipelines []*pipeline.Pipeline, weights []float64) (*Voting, error) {
	horizon, err := validatePipelines(pipelines)
	if err != nil {
		return nil, err
	}
	if weights != nil {
		if len(weights) != len(pipelines) {
			return nil, &forecast.ConfigurationError{
				Reason: fmt.Sprintf("got %d weights for %d pipelines", len(weights), len(pipelines)),
			}
		}
		total := 0.0
		for _, w := range weights {
			if w < 0 || math.IsNaN(w) {
				return nil, &forecast.ConfigurationError{Reason: fmt.Sprintf("weights must be non-negative, got %g", w)}
			}
			total += w
		}
		if total == 0 {
			return nil, &forecast.ConfigurationError{Reason: "weights must not all be zero"}
		}
	}
	return &Voting{pipelines: pipelines, weights: weights, horizon: horizon}, nil
}

// SetLogger injects a structured logger.
func (e *Voting) SetLogger(l *applogger.Logger) { e.l = l }

// Horizon returns the shared pipeline horizon.
func (e *Voting) Horizon() int { return e.horizon }

// Fit fits every constituent pipeline against the same original panel.
func (e *Voting) Fit(ctx context.Context, panel *dataset.Panel) error {
	start := time.Now()
	if err := fitAll(ctx, e.pipelines, panel); err != nil {
		return err
	}
	e.fitted = true
	if e.l != nil {
		e.l.Info("voting ensemble fitted",
			applogger.Int("pipelines", len(e.pipelines)),
			applogger.Duration("took", time.Since(start)))
	}
	return nil
}

// Forecast produces the combined forecast over the shared horizon.
func (e *Voting) Forecast(ctx context.Context, opts forecast.Options) (*dataset.Panel, error) {
	if !e.fitted {
		return nil, &forecast.NotFittedError{Entity: "voting ensemble"}
	}
	panels, err := forecastAll(ctx, e.pipelines, opts)
	if err != nil {
		return nil, err
	}
	if err := checkAligned(panels); err != nil {
		return nil, err
	}

	out, err := dataset.New(panels[0].Index(), panels[0].Freq())
	if err != nil {
		return nil, err
	}
	total := float64(len(panels))
	if e.weights != nil {
		total = 0
		for _, w := range e.weights {
			total += w
		}
	}
	for _, seg := range panels[0].Segments() {
		for _, col := range combineColumns(opts) {
			combined := make([]float64, out.Len())
			for j, p := range panels {
				vals, err := p.Column(seg, col)
				if err != nil {
					return nil, fmt.Errorf("pipeline %d: %w", j, err)
				}
				w := 1.0
				if e.weights != nil {
					w = e.weights[j]
				}
				for i, v := range vals {
					combined[i] += w * v
				}
			}
			for i := range combined {
				combined[i] /= total
			}
			if err := out.SetColumn(seg, col, combined); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
