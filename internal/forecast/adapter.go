package forecast

import (
	"context"
	"fmt"
	"math"

	"ForePull/internal/dataset"
	applogger "ForePull/pkg/logger"
)

// PerSegment fits one independent series model per segment. The adapter owns
// every instance it constructs; callers reach fitted instances only through
// Models.
type PerSegment struct {
	factory SeriesFactory
	models  map[string]SeriesModel
	tr      trainSpan
	fitted  bool
	l       *applogger.Logger
}

// NewPerSegment creates a per-segment adapter from a model constructor.
func NewPerSegment(factory SeriesFactory) *PerSegment {
	return &PerSegment{factory: factory}
}

// SetLogger injects a structured logger.
func (a *PerSegment) SetLogger(l *applogger.Logger) { a.l = l }

// Fit trains one model per segment on its target history. The input panel is
// not mutated.
func (a *PerSegment) Fit(ctx context.Context, p *dataset.Panel) error {
	models := make(map[string]SeriesModel, len(p.Segments()))
	for _, seg := range p.Segments() {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return fmt.Errorf("fit segment %s: %w", seg, err)
		}
		for i, v := range target {
			if math.IsNaN(v) {
				return fmt.Errorf("fit segment %s: target has missing value at position %d", seg, i)
			}
		}
		m := a.factory()
		if err := m.Fit(target); err != nil {
			return fmt.Errorf("fit segment %s: %w", seg, err)
		}
		models[seg] = m
		if a.l != nil {
			a.l.Debug("segment model fitted", applogger.String("segment", seg), applogger.String("model", m.Name()))
		}
	}
	a.models = models
	a.tr = newTrainSpan(p)
	a.fitted = true
	return nil
}

// Forecast fills the target (and quantile) columns of p in place and returns
// p. See the executor alignment rules for partial-range semantics.
func (a *PerSegment) Forecast(ctx context.Context, p *dataset.Panel, opts Options) (*dataset.Panel, error) {
	if !a.fitted {
		return nil, &NotFittedError{Entity: "per-segment adapter"}
	}
	al, err := a.tr.align(p.Index(), "")
	if err != nil {
		return nil, err
	}
	for _, seg := range p.Segments() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, ok := a.models[seg]
		if !ok {
			return nil, &AlignmentError{Segment: seg, Reason: "segment was not present in the training data"}
		}
		points, paths, err := predictAligned(m, al, opts, seg, p.Len())
		if err != nil {
			return nil, err
		}
		if err := placeForecast(p, seg, points, paths); err != nil {
			return nil, fmt.Errorf("forecast segment %s: %w", seg, err)
		}
	}
	return p, nil
}

// Models returns the fitted per-segment instances.
func (a *PerSegment) Models() (map[string]interface{}, error) {
	if !a.fitted {
		return nil, &NotFittedError{Entity: "per-segment adapter"}
	}
	out := make(map[string]interface{}, len(a.models))
	for seg, m := range a.models {
		out[seg] = m
	}
	return out, nil
}

// MultiSegment fits one model jointly across all segments on a feature matrix
// with one row per (timestamp, segment). Feature columns come from transforms
// such as lags and segment encoding; the target column itself is never fed as
// a regressor.
type MultiSegment struct {
	model    PanelModel
	features []string
	fitted   bool
	l        *applogger.Logger
}

// NewMultiSegment creates a multi-segment adapter around a panel model.
func NewMultiSegment(model PanelModel) *MultiSegment {
	return &MultiSegment{model: model}
}

// SetLogger injects a structured logger.
func (a *MultiSegment) SetLogger(l *applogger.Logger) { a.l = l }

func panelFeatures(p *dataset.Panel) ([]string, error) {
	segs := p.Segments()
	if len(segs) == 0 {
		return nil, &ConfigurationError{Reason: "panel has no segments"}
	}
	var features []string
	for _, f := range p.Features(segs[0]) {
		if f == dataset.TargetFeature {
			continue
		}
		features = append(features, f)
	}
	for _, seg := range segs[1:] {
		for _, f := range features {
			if !p.HasColumn(seg, f) {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("segment %q is missing feature %q", seg, f)}
			}
		}
	}
	return features, nil
}

// Fit encodes all segments into one training matrix and fits the model. Rows
// with unset cells (for example the lag warm-up range) are dropped.
func (a *MultiSegment) Fit(ctx context.Context, p *dataset.Panel) error {
	features, err := panelFeatures(p)
	if err != nil {
		return err
	}
	if len(features) == 0 {
		return &ConfigurationError{Reason: "multi-segment strategy requires feature columns; add transforms such as lag or segment encoding"}
	}

	var x [][]float64
	var y []float64
	for _, seg := range p.Segments() {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return fmt.Errorf("fit segment %s: %w", seg, err)
		}
		cols := make([][]float64, len(features))
		for j, f := range features {
			if cols[j], err = p.Column(seg, f); err != nil {
				return fmt.Errorf("fit segment %s: %w", seg, err)
			}
		}
		for i := 0; i < p.Len(); i++ {
			if math.IsNaN(target[i]) {
				continue
			}
			row := make([]float64, len(features))
			ok := true
			for j := range features {
				if math.IsNaN(cols[j][i]) {
					ok = false
					break
				}
				row[j] = cols[j][i]
			}
			if !ok {
				continue
			}
			x = append(x, row)
			y = append(y, target[i])
		}
	}
	if len(x) == 0 {
		return fmt.Errorf("fit: no complete training rows after dropping unset cells")
	}
	if err := a.model.FitMatrix(x, y); err != nil {
		return fmt.Errorf("fit multi-segment model: %w", err)
	}
	a.features = features
	a.fitted = true
	if a.l != nil {
		a.l.Debug("multi-segment model fitted",
			applogger.String("model", a.model.Name()),
			applogger.Int("rows", len(x)),
			applogger.Int("features", len(features)))
	}
	return nil
}

// Forecast predicts each requested row from its feature values. Row-based
// prediction honors row positions natively, so partial ranges are exact slices
// of the full-range result by construction.
func (a *MultiSegment) Forecast(ctx context.Context, p *dataset.Panel, opts Options) (*dataset.Panel, error) {
	if !a.fitted {
		return nil, &NotFittedError{Entity: "multi-segment adapter"}
	}
	if opts.PredictionInterval {
		return nil, &CapabilityError{Model: a.model.Name(), Capability: "prediction intervals"}
	}
	for _, seg := range p.Segments() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols := make([][]float64, len(a.features))
		for j, f := range a.features {
			vals, err := p.Column(seg, f)
			if err != nil {
				return nil, &AlignmentError{Segment: seg, Reason: fmt.Sprintf("feature %q is missing from the forecast panel", f)}
			}
			cols[j] = vals
		}
		x := make([][]float64, p.Len())
		for i := 0; i < p.Len(); i++ {
			row := make([]float64, len(a.features))
			for j, f := range a.features {
				if math.IsNaN(cols[j][i]) {
					return nil, &AlignmentError{
						Segment: seg,
						Reason:  fmt.Sprintf("feature %q is unset at %s; lag depth must cover the requested range", f, p.Timestamp(i).Format("2006-01-02T15:04:05Z07:00")),
					}
				}
				row[j] = cols[j][i]
			}
			x[i] = row
		}
		preds, err := a.model.PredictMatrix(x)
		if err != nil {
			return nil, fmt.Errorf("forecast segment %s: %w", seg, err)
		}
		if err := p.SetColumn(seg, dataset.TargetFeature, preds); err != nil {
			return nil, fmt.Errorf("forecast segment %s: %w", seg, err)
		}
	}
	return p, nil
}

// Models returns the single fitted instance keyed by MultiSegmentKey.
func (a *MultiSegment) Models() (map[string]interface{}, error) {
	if !a.fitted {
		return nil, &NotFittedError{Entity: "multi-segment adapter"}
	}
	return map[string]interface{}{MultiSegmentKey: a.model}, nil
}
