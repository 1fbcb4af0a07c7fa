package transform

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/dataset"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func panelOf(t *testing.T, targets map[string][]float64) *dataset.Panel {
	t.Helper()
	p, err := dataset.FromTargets(start, time.Hour, targets)
	require.NoError(t, err)
	return p
}

func TestLagValidation(t *testing.T) {
	_, err := NewLag()
	require.Error(t, err)
	_, err = NewLag(0)
	require.Error(t, err)
	_, err = NewLag(-1, 2)
	require.Error(t, err)
}

func TestLagApply(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 2, 3, 4}})
	lag, err := NewLag(2)
	require.NoError(t, err)
	require.NoError(t, lag.Fit(p))
	require.NoError(t, lag.Apply(p))

	vals, err := p.Column("a", "target_lag_2")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(vals[0]))
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, 1.0, vals[2])
	assert.Equal(t, 2.0, vals[3])
}

func TestLagApplyFuture(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 2, 3, 4}})
	lag, err := NewLag(2)
	require.NoError(t, err)
	require.NoError(t, lag.Fit(p))
	require.NoError(t, lag.Apply(p))

	f, err := p.MakeFuture(2)
	require.NoError(t, err)
	require.NoError(t, lag.ApplyFuture(f))

	vals, err := f.Column("a", "target_lag_2")
	require.NoError(t, err)
	// two steps ahead with lag 2 reads the last two observations
	assert.Equal(t, 3.0, vals[0])
	assert.Equal(t, 4.0, vals[1])
}

func TestLagFutureBeyondDepthStaysUnset(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 2, 3, 4}})
	lag, err := NewLag(1)
	require.NoError(t, err)
	require.NoError(t, lag.Fit(p))

	f, err := p.MakeFuture(3)
	require.NoError(t, err)
	require.NoError(t, lag.ApplyFuture(f))

	vals, err := f.Column("a", "target_lag_1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.True(t, math.IsNaN(vals[2]))
}

func TestLagUnknownFutureSegment(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 2, 3}})
	lag, err := NewLag(1)
	require.NoError(t, err)
	require.NoError(t, lag.Fit(p))

	f, err := p.MakeFuture(1)
	require.NoError(t, err)
	require.NoError(t, f.SetColumn("b", dataset.TargetFeature, dataset.NaNs(1)))
	require.Error(t, lag.ApplyFuture(f))
}

func TestLogRoundTrip(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 10, 100}})
	tr := NewLog()
	require.NoError(t, tr.Fit(p))
	require.NoError(t, tr.Apply(p))

	vals, err := p.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	assert.InDelta(t, 0, vals[0], 1e-12)
	assert.InDelta(t, math.Log(10), vals[1], 1e-12)

	require.NoError(t, tr.Invert(p))
	vals, err = p.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	assert.InDelta(t, 1, vals[0], 1e-9)
	assert.InDelta(t, 10, vals[1], 1e-9)
	assert.InDelta(t, 100, vals[2], 1e-9)
}

func TestLogRejectsNonPositive(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 0, 2}})
	tr := NewLog()
	require.Error(t, tr.Apply(p))
}

func TestLogInvertsQuantileColumns(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {math.Log(2), math.Log(4)}})
	require.NoError(t, p.SetColumn("a", dataset.QuantileFeature(0.975), []float64{math.Log(3), math.Log(5)}))

	tr := NewLog()
	require.NoError(t, tr.Invert(p))

	upper, err := p.Column("a", dataset.QuantileFeature(0.975))
	require.NoError(t, err)
	assert.InDelta(t, 3, upper[0], 1e-9)
	assert.InDelta(t, 5, upper[1], 1e-9)
}

func TestScalerRoundTrip(t *testing.T) {
	orig := []float64{10, 20, 30, 40}
	p := panelOf(t, map[string][]float64{"a": orig})

	tr := NewScaler()
	require.NoError(t, tr.Fit(p))
	require.NoError(t, tr.Apply(p))

	scaled, err := p.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	m, s := meanStd(scaled)
	assert.InDelta(t, 0, m, 1e-9)
	assert.InDelta(t, 1, s, 1e-9)

	require.NoError(t, tr.Invert(p))
	vals, err := p.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	for i := range orig {
		assert.InDelta(t, orig[i], vals[i], 1e-9)
	}
}

func TestScalerConstantSeries(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {7, 7, 7}})
	tr := NewScaler()
	require.NoError(t, tr.Fit(p))
	require.NoError(t, tr.Apply(p))

	vals, err := p.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	for _, v := range vals {
		assert.InDelta(t, 0, v, 1e-12)
	}
}

func TestScalerUnfitted(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 2}})
	tr := NewScaler()
	require.Error(t, tr.Apply(p))
	require.Error(t, tr.Invert(p))
}

func TestSegmentEncoder(t *testing.T) {
	p := panelOf(t, map[string][]float64{"b": {1, 2}, "a": {3, 4}})
	tr := NewSegmentEncoder()
	require.NoError(t, tr.Fit(p))
	require.NoError(t, tr.Apply(p))

	// codes follow sorted segment order
	a, err := p.Column("a", SegmentCodeFeature)
	require.NoError(t, err)
	b, err := p.Column("b", SegmentCodeFeature)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, a)
	assert.Equal(t, []float64{1, 1}, b)
}

func TestSegmentEncoderUnknownSegment(t *testing.T) {
	p := panelOf(t, map[string][]float64{"a": {1, 2}})
	tr := NewSegmentEncoder()
	require.NoError(t, tr.Fit(p))

	other := panelOf(t, map[string][]float64{"z": {1, 2}})
	require.Error(t, tr.Apply(other))
}
