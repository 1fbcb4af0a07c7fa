package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/dataset"
)

var trainStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// stubModel supports point forecasts only.
type stubModel struct {
	name    string
	history []float64
}

func (m *stubModel) Name() string { return m.name }

func (m *stubModel) Fit(values []float64) error {
	m.history = append([]float64(nil), values...)
	return nil
}

// Predict returns last + step so every horizon position is distinguishable.
func (m *stubModel) Predict(steps int) ([]float64, error) {
	last := m.history[len(m.history)-1]
	out := make([]float64, steps)
	for h := range out {
		out[h] = last + float64(h+1)
	}
	return out, nil
}

// stubFullModel adds every optional capability.
type stubFullModel struct {
	stubModel
	spread float64
}

func (m *stubFullModel) PredictInSample() ([]float64, error) {
	out := make([]float64, len(m.history))
	for i, v := range m.history {
		out[i] = v + 0.5
	}
	return out, nil
}

func (m *stubFullModel) PredictQuantiles(steps int, quantiles []float64) (map[float64][]float64, error) {
	points, err := m.Predict(steps)
	if err != nil {
		return nil, err
	}
	paths := make(map[float64][]float64, len(quantiles))
	for _, q := range quantiles {
		path := make([]float64, steps)
		for i, v := range points {
			path[i] = v + (q-0.5)*2*m.spread
		}
		paths[q] = path
	}
	return paths, nil
}

func (m *stubFullModel) PredictInSampleQuantiles(quantiles []float64) (map[float64][]float64, error) {
	points, err := m.PredictInSample()
	if err != nil {
		return nil, err
	}
	paths := make(map[float64][]float64, len(quantiles))
	for _, q := range quantiles {
		path := make([]float64, len(points))
		for i, v := range points {
			path[i] = v + (q-0.5)*2*m.spread
		}
		paths[q] = path
	}
	return paths, nil
}

func trainPanel(t *testing.T) *dataset.Panel {
	t.Helper()
	p, err := dataset.FromTargets(trainStart, time.Hour, map[string][]float64{
		"a": {1, 2, 3, 4, 5},
		"b": {10, 20, 30, 40, 50},
	})
	require.NoError(t, err)
	return p
}

func fullFactory() SeriesFactory {
	return func() SeriesModel { return &stubFullModel{stubModel: stubModel{name: "stub_full"}, spread: 2} }
}

func TestPerSegmentNotFitted(t *testing.T) {
	a := NewPerSegment(fullFactory())

	_, err := a.Models()
	var nf *NotFittedError
	require.ErrorAs(t, err, &nf)

	p := trainPanel(t)
	f, err := p.MakeFuture(2)
	require.NoError(t, err)
	_, err = a.Forecast(context.Background(), f, Options{})
	require.ErrorAs(t, err, &nf)
}

func TestPerSegmentFitRejectsMissingValues(t *testing.T) {
	p := trainPanel(t)
	require.NoError(t, p.SetCell("a", dataset.TargetFeature, 2, math.NaN()))

	a := NewPerSegment(fullFactory())
	err := a.Fit(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing value")
}

func TestPerSegmentForecastHorizon(t *testing.T) {
	p := trainPanel(t)
	a := NewPerSegment(fullFactory())
	require.NoError(t, a.Fit(context.Background(), p))

	f, err := p.MakeFuture(3)
	require.NoError(t, err)
	out, err := a.Forecast(context.Background(), f, Options{})
	require.NoError(t, err)

	vals, err := out.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 7, 8}, vals)

	vals, err = out.Column("b", dataset.TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, []float64{51, 52, 53}, vals)
}

// A partial range must be numerically identical to the matching slice of the
// full-range forecast.
func TestPerSegmentPartialRangeMatchesFullRange(t *testing.T) {
	p := trainPanel(t)
	a := NewPerSegment(fullFactory())
	require.NoError(t, a.Fit(context.Background(), p))

	full, err := p.MakeFuture(5)
	require.NoError(t, err)
	full, err = a.Forecast(context.Background(), full, Options{})
	require.NoError(t, err)
	fullVals, err := full.Column("a", dataset.TargetFeature)
	require.NoError(t, err)

	sub, err := p.MakeFuture(5)
	require.NoError(t, err)
	sub, err = sub.SelectRows([]int{1, 3})
	require.NoError(t, err)
	sub, err = a.Forecast(context.Background(), sub, Options{})
	require.NoError(t, err)
	subVals, err := sub.Column("a", dataset.TargetFeature)
	require.NoError(t, err)

	assert.Equal(t, []float64{fullVals[1], fullVals[3]}, subVals)
}

func TestPerSegmentMixedRange(t *testing.T) {
	p := trainPanel(t)
	a := NewPerSegment(fullFactory())
	require.NoError(t, a.Fit(context.Background(), p))

	// last two trained stamps plus two future stamps
	index := make([]time.Time, 4)
	for i := range index {
		index[i] = trainStart.Add(time.Duration(3+i) * time.Hour)
	}
	req, err := dataset.New(index, time.Hour)
	require.NoError(t, err)
	require.NoError(t, req.SetColumn("a", dataset.TargetFeature, dataset.NaNs(4)))

	out, err := a.Forecast(context.Background(), req, Options{})
	require.NoError(t, err)
	vals, err := out.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	// in-sample re-prediction is value+0.5; out-of-sample is last+step
	assert.Equal(t, []float64{4.5, 5.5, 6, 7}, vals)
}

func TestPerSegmentAlignmentErrors(t *testing.T) {
	p := trainPanel(t)
	a := NewPerSegment(fullFactory())
	require.NoError(t, a.Fit(context.Background(), p))

	var alignErr *AlignmentError

	before, err := dataset.New([]time.Time{trainStart.Add(-time.Hour)}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, before.SetColumn("a", dataset.TargetFeature, dataset.NaNs(1)))
	_, err = a.Forecast(context.Background(), before, Options{})
	require.ErrorAs(t, err, &alignErr)

	offGrid, err := dataset.New([]time.Time{trainStart.Add(30 * time.Minute)}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, offGrid.SetColumn("a", dataset.TargetFeature, dataset.NaNs(1)))
	_, err = a.Forecast(context.Background(), offGrid, Options{})
	require.ErrorAs(t, err, &alignErr)
}

func TestPerSegmentUnknownSegment(t *testing.T) {
	p := trainPanel(t)
	a := NewPerSegment(fullFactory())
	require.NoError(t, a.Fit(context.Background(), p))

	f, err := p.MakeFuture(1)
	require.NoError(t, err)
	require.NoError(t, f.SetColumn("c", dataset.TargetFeature, dataset.NaNs(1)))

	var alignErr *AlignmentError
	_, err = a.Forecast(context.Background(), f, Options{})
	require.ErrorAs(t, err, &alignErr)
	assert.Equal(t, "c", alignErr.Segment)
}

func TestPerSegmentIntervalBracketsPoint(t *testing.T) {
	p := trainPanel(t)
	a := NewPerSegment(fullFactory())
	require.NoError(t, a.Fit(context.Background(), p))

	f, err := p.MakeFuture(3)
	require.NoError(t, err)
	out, err := a.Forecast(context.Background(), f, Options{PredictionInterval: true})
	require.NoError(t, err)

	for _, seg := range out.Segments() {
		points, err := out.Column(seg, dataset.TargetFeature)
		require.NoError(t, err)
		lower, err := out.Column(seg, dataset.QuantileFeature(0.025))
		require.NoError(t, err)
		upper, err := out.Column(seg, dataset.QuantileFeature(0.975))
		require.NoError(t, err)
		for i := range points {
			assert.LessOrEqual(t, lower[i], points[i])
			assert.LessOrEqual(t, points[i], upper[i])
		}
	}
}

func TestPerSegmentCapabilityErrors(t *testing.T) {
	baseFactory := func() SeriesModel { return &stubModel{name: "stub_base"} }
	p := trainPanel(t)
	a := NewPerSegment(baseFactory)
	require.NoError(t, a.Fit(context.Background(), p))

	var capErr *CapabilityError

	f, err := p.MakeFuture(2)
	require.NoError(t, err)
	_, err = a.Forecast(context.Background(), f, Options{PredictionInterval: true})
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "prediction intervals", capErr.Capability)

	inSample, err := p.SliceRows(0, 2)
	require.NoError(t, err)
	_, err = a.Forecast(context.Background(), inSample, Options{})
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "in-sample re-prediction", capErr.Capability)
}

func TestPerSegmentModels(t *testing.T) {
	p := trainPanel(t)
	a := NewPerSegment(fullFactory())
	require.NoError(t, a.Fit(context.Background(), p))

	models, err := a.Models()
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Contains(t, models, "a")
	assert.Contains(t, models, "b")
}

// stubPanelModel predicts the sum of each feature row.
type stubPanelModel struct {
	rows   int
	fitted bool
}

func (m *stubPanelModel) Name() string { return "stub_panel" }

func (m *stubPanelModel) FitMatrix(x [][]float64, y []float64) error {
	m.rows = len(x)
	m.fitted = true
	return nil
}

func (m *stubPanelModel) PredictMatrix(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		for _, v := range row {
			out[i] += v
		}
	}
	return out, nil
}

func TestMultiSegmentRequiresFeatures(t *testing.T) {
	p := trainPanel(t)
	a := NewMultiSegment(&stubPanelModel{})

	var cfgErr *ConfigurationError
	err := a.Fit(context.Background(), p)
	require.ErrorAs(t, err, &cfgErr)
}

func TestMultiSegmentFitAndForecast(t *testing.T) {
	p := trainPanel(t)
	for _, seg := range p.Segments() {
		feat := make([]float64, p.Len())
		for i := range feat {
			feat[i] = float64(i)
		}
		require.NoError(t, p.SetColumn(seg, "step", feat))
	}

	model := &stubPanelModel{}
	a := NewMultiSegment(model)
	require.NoError(t, a.Fit(context.Background(), p))
	assert.Equal(t, 10, model.rows) // 2 segments x 5 rows

	f, err := p.MakeFuture(2)
	require.NoError(t, err)
	for _, seg := range f.Segments() {
		require.NoError(t, f.SetColumn(seg, "step", []float64{5, 6}))
	}
	out, err := a.Forecast(context.Background(), f, Options{})
	require.NoError(t, err)
	vals, err := out.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, vals)
}

func TestMultiSegmentRejectsIntervals(t *testing.T) {
	p := trainPanel(t)
	for _, seg := range p.Segments() {
		require.NoError(t, p.SetColumn(seg, "step", []float64{0, 1, 2, 3, 4}))
	}
	a := NewMultiSegment(&stubPanelModel{})
	require.NoError(t, a.Fit(context.Background(), p))

	f, err := p.MakeFuture(1)
	require.NoError(t, err)
	for _, seg := range f.Segments() {
		require.NoError(t, f.SetColumn(seg, "step", []float64{5}))
	}
	var capErr *CapabilityError
	_, err = a.Forecast(context.Background(), f, Options{PredictionInterval: true})
	require.ErrorAs(t, err, &capErr)
}

func TestMultiSegmentUnsetFeatureCells(t *testing.T) {
	p := trainPanel(t)
	for _, seg := range p.Segments() {
		require.NoError(t, p.SetColumn(seg, "step", []float64{0, 1, 2, 3, 4}))
	}
	a := NewMultiSegment(&stubPanelModel{})
	require.NoError(t, a.Fit(context.Background(), p))

	f, err := p.MakeFuture(2)
	require.NoError(t, err)
	for _, seg := range f.Segments() {
		require.NoError(t, f.SetColumn(seg, "step", []float64{5, math.NaN()}))
	}
	var alignErr *AlignmentError
	_, err = a.Forecast(context.Background(), f, Options{})
	require.ErrorAs(t, err, &alignErr)
}

func TestMultiSegmentModelsKey(t *testing.T) {
	p := trainPanel(t)
	for _, seg := range p.Segments() {
		require.NoError(t, p.SetColumn(seg, "step", []float64{0, 1, 2, 3, 4}))
	}
	a := NewMultiSegment(&stubPanelModel{})
	require.NoError(t, a.Fit(context.Background(), p))

	models, err := a.Models()
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Contains(t, models, MultiSegmentKey)
}
