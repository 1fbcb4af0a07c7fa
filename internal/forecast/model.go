package forecast

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ForePull/internal/dataset"
)

// SeriesModel is the contract a wrapped single-series model must satisfy.
// Fit consumes one segment's target history; Predict produces point forecasts
// for the given number of future steps. Predict must be idempotent and must
// not mutate fitted state.
type SeriesModel interface {
	Name() string
	Fit(values []float64) error
	Predict(steps int) ([]float64, error)
}

// InSamplePredictor is an optional capability: re-predicting the fitted
// historical range. The returned slice is aligned to the training index and
// must contain no NaN values.
type InSamplePredictor interface {
	PredictInSample() ([]float64, error)
}

// QuantilePredictor is an optional capability: per-quantile forecast paths
// over future steps. For each requested quantile q the returned path must
// satisfy monotone bracketing: path(q1) <= point <= path(q2) for q1 <= 0.5 <= q2.
type QuantilePredictor interface {
	PredictQuantiles(steps int, quantiles []float64) (map[float64][]float64, error)
}

// InSampleQuantilePredictor is an optional capability: per-quantile paths over
// the fitted historical range.
type InSampleQuantilePredictor interface {
	PredictInSampleQuantiles(quantiles []float64) (map[float64][]float64, error)
}

// PanelModel is the contract for models fit jointly across segments on a
// feature matrix, one row per (timestamp, segment).
type PanelModel interface {
	Name() string
	FitMatrix(x [][]float64, y []float64) error
	PredictMatrix(x [][]float64) ([]float64, error)
}

// Options controls a single forecast call.
type Options struct {
	// PredictionInterval requests target_<q> columns for every quantile.
	PredictionInterval bool
	// Quantiles are the levels of the prediction distribution. Defaults to
	// 2.5% and 97.5%, forming a 95% interval.
	Quantiles []float64
}

// DefaultQuantiles form a 95% prediction interval.
var DefaultQuantiles = []float64{0.025, 0.975}

func (o Options) quantiles() []float64 {
	if len(o.Quantiles) == 0 {
		return DefaultQuantiles
	}
	qs := make([]float64, len(o.Quantiles))
	copy(qs, o.Quantiles)
	sort.Float64s(qs)
	return qs
}

// IntervalWidth returns Options selecting the symmetric interval of the given
// width, e.g. 0.95 -> quantiles 0.025 and 0.975.
func IntervalWidth(width float64) (Options, error) {
	if width <= 0 || width >= 1 {
		return Options{}, &ConfigurationError{Reason: fmt.Sprintf("interval width must be in (0, 1), got %g", width)}
	}
	lo := (1 - width) / 2
	return Options{
		PredictionInterval: true,
		Quantiles:          []float64{lo, 1 - lo},
	}, nil
}

// Adapter is the uniform multi-segment forecasting contract. Fit trains on a
// panel without mutating it; Forecast fills the target (and quantile) columns
// of the supplied panel in place and returns the same panel.
type Adapter interface {
	Fit(ctx context.Context, p *dataset.Panel) error
	Forecast(ctx context.Context, p *dataset.Panel, opts Options) (*dataset.Panel, error)
	// Models returns the fitted model instances keyed by segment label; the
	// multi-segment strategy returns a single entry keyed by MultiSegmentKey.
	// It fails with NotFittedError before Fit.
	Models() (map[string]interface{}, error)
}

// MultiSegmentKey keys the single fitted instance of a multi-segment adapter.
const MultiSegmentKey = "__multi_segment__"

// SeriesFactory constructs an unfitted series model instance.
type SeriesFactory func() SeriesModel

var (
	registryMu sync.RWMutex
	registry   = make(map[string]SeriesFactory)
)

// Register makes a series model constructor available under a name. Heavy
// adapters (remote or GPU-backed models) register themselves from their own
// packages so the core builds without them.
func Register(name string, factory SeriesFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("forecast: Register with nil factory")
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("forecast: Register called twice for %q", name))
	}
	registry[name] = factory
}

// NewModel constructs an unfitted instance of a registered series model.
func NewModel(name string) (SeriesModel, error) {
	factory, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}

// Lookup returns the registered factory for a model name.
func Lookup(name string) (SeriesFactory, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown model %q (registered: %v)", name, RegisteredModels())}
	}
	return factory, nil
}

// RegisteredModels lists registered model names in sorted order.
func RegisteredModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
