package ensemble

import (
	"context"
	"fmt"
	"time"

	"ForePull/internal/dataset"
	"ForePull/internal/forecast"
	"ForePull/internal/forecast/native"
	"ForePull/internal/pipeline"
	applogger "ForePull/pkg/logger"
)

// Stacking learns how to combine constituent forecasts instead of averaging
// them. During Fit the panel's last horizon rows are held out: constituents
// are fitted on the remainder, their forecasts over the holdout become the
// feature matrix, and the held-out targets are the labels for the combiner
// model. Constituents are then refitted on the full panel so Forecast uses
// all available history. Interval columns, when requested, are passed through
// the fitted combiner elementwise, the same way as the target.
type Stacking struct {
	pipelines []*pipeline.Pipeline
	combiner  forecast.PanelModel
	horizon   int
	fitted    bool
	l         *applogger.Logger
}

// NewStacking creates a stacking ensemble. A nil combiner defaults to linear
// regression over the constituent forecasts.
func NewStacking(pipelines []*pipeline.Pipeline, combiner forecast.PanelModel) (*Stacking, error) {
	horizon, err := validatePipelines(pipelines)
	if err != nil {
		return nil, err
	}
	if combiner == nil {
		combiner = native.NewLinear()
	}
	return &Stacking{pipelines: pipelines, combiner: combiner, horizon: horizon}, nil
}

// SetLogger injects a structured logger.
func (e *Stacking) SetLogger(l *applogger.Logger) { e.l = l }

// Horizon returns the shared pipeline horizon.
func (e *Stacking) Horizon() int { return e.horizon }

// Fit trains the combiner on holdout forecasts, then refits the constituents
// on the full panel.
func (e *Stacking) Fit(ctx context.Context, panel *dataset.Panel) error {
	start := time.Now()
	if panel.Len() <= e.horizon {
		return &forecast.ConfigurationError{
			Reason: fmt.Sprintf("stacking needs more than %d observations to hold out a validation window, got %d", e.horizon, panel.Len()),
		}
	}

	head, err := panel.SliceRows(0, panel.Len()-e.horizon)
	if err != nil {
		return err
	}
	if err := fitAll(ctx, e.pipelines, head); err != nil {
		return err
	}
	holdout, err := forecastAll(ctx, e.pipelines, forecast.Options{})
	if err != nil {
		return err
	}
	if err := checkAligned(holdout); err != nil {
		return err
	}

	// One training row per (segment, holdout step): constituent forecasts
	// as features, the actual value as the label.
	var x [][]float64
	var y []float64
	tail := panel.Len() - e.horizon
	for _, seg := range panel.Segments() {
		actual, err := panel.Column(seg, dataset.TargetFeature)
		if err != nil {
			return err
		}
		preds := make([][]float64, len(holdout))
		for j, h := range holdout {
			preds[j], err = h.Column(seg, dataset.TargetFeature)
			if err != nil {
				return fmt.Errorf("pipeline %d: %w", j, err)
			}
		}
		for i := 0; i < e.horizon; i++ {
			row := make([]float64, len(holdout))
			for j := range holdout {
				row[j] = preds[j][i]
			}
			x = append(x, row)
			y = append(y, actual[tail+i])
		}
	}
	if err := e.combiner.FitMatrix(x, y); err != nil {
		return fmt.Errorf("fit combiner %s: %w", e.combiner.Name(), err)
	}

	if err := fitAll(ctx, e.pipelines, panel); err != nil {
		return err
	}
	e.fitted = true
	if e.l != nil {
		e.l.Info("stacking ensemble fitted",
			applogger.Int("pipelines", len(e.pipelines)),
			applogger.String("combiner", e.combiner.Name()),
			applogger.Duration("took", time.Since(start)))
	}
	return nil
}

// Forecast combines constituent forecasts through the fitted combiner.
func (e *Stacking) Forecast(ctx context.Context, opts forecast.Options) (*dataset.Panel, error) {
	if !e.fitted {
		return nil, &forecast.NotFittedError{Entity: "stacking ensemble"}
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
	for _, seg := range panels[0].Segments() {
		for _, col := range combineColumns(opts) {
			x := make([][]float64, out.Len())
			for i := range x {
				x[i] = make([]float64, len(panels))
			}
			for j, p := range panels {
				vals, err := p.Column(seg, col)
				if err != nil {
					return nil, fmt.Errorf("pipeline %d: %w", j, err)
				}
				for i, v := range vals {
					x[i][j] = v
				}
			}
			combined, err := e.combiner.PredictMatrix(x)
			if err != nil {
				return nil, fmt.Errorf("combine %s/%s: %w", seg, col, err)
			}
			if err := out.SetColumn(seg, col, combined); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
