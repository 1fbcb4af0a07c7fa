package ensemble

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/dataset"
	"ForePull/internal/forecast"
	"ForePull/internal/forecast/native"
	"ForePull/internal/pipeline"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func naivePipeline(t *testing.T, horizon int) *pipeline.Pipeline {
	t.Helper()
	adapter := forecast.NewPerSegment(func() forecast.SeriesModel { return native.NewNaive(1) })
	p, err := pipeline.New(adapter, horizon)
	require.NoError(t, err)
	return p
}

func maPipeline(t *testing.T, window, horizon int) *pipeline.Pipeline {
	t.Helper()
	adapter := forecast.NewPerSegment(func() forecast.SeriesModel { return native.NewMovingAverage(window) })
	p, err := pipeline.New(adapter, horizon)
	require.NoError(t, err)
	return p
}

func constantPanel(t *testing.T, values map[string]float64, n int) *dataset.Panel {
	t.Helper()
	targets := make(map[string][]float64, len(values))
	for seg, v := range values {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = v
		}
		targets[seg] = vals
	}
	p, err := dataset.FromTargets(start, time.Hour, targets)
	require.NoError(t, err)
	return p
}

func TestVotingNeedsTwoPipelines(t *testing.T) {
	var cfgErr *forecast.ConfigurationError
	_, err := NewVoting([]*pipeline.Pipeline{naivePipeline(t, 2)}, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "at least two pipelines")
}

func TestVotingRejectsMixedHorizons(t *testing.T) {
	var cfgErr *forecast.ConfigurationError
	_, err := NewVoting([]*pipeline.Pipeline{naivePipeline(t, 2), naivePipeline(t, 3)}, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "share one horizon")
}

func TestVotingWeightValidation(t *testing.T) {
	pipes := []*pipeline.Pipeline{naivePipeline(t, 2), naivePipeline(t, 2)}

	_, err := NewVoting(pipes, []float64{1})
	require.Error(t, err)
	_, err = NewVoting(pipes, []float64{1, -1})
	require.Error(t, err)
	_, err = NewVoting(pipes, []float64{0, 0})
	require.Error(t, err)

	e, err := NewVoting(pipes, []float64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Horizon())
}

func TestVotingNotFitted(t *testing.T) {
	e, err := NewVoting([]*pipeline.Pipeline{naivePipeline(t, 2), naivePipeline(t, 2)}, nil)
	require.NoError(t, err)

	var nf *forecast.NotFittedError
	_, err = e.Forecast(context.Background(), forecast.Options{})
	require.ErrorAs(t, err, &nf)
}

func TestVotingSimpleAverage(t *testing.T) {
	// both constituents forecast the constant level, so the combination
	// must reproduce it exactly
	panel := constantPanel(t, map[string]float64{"s": 10}, 8)

	pipes := []*pipeline.Pipeline{naivePipeline(t, 3), maPipeline(t, 4, 3)}
	e, err := NewVoting(pipes, nil)
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), panel))

	out, err := e.Forecast(context.Background(), forecast.Options{})
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	vals, err := out.Column("s", dataset.TargetFeature)
	require.NoError(t, err)
	for _, v := range vals {
		assert.InDelta(t, 10, v, 1e-9)
	}
}

func TestVotingWeightedMean(t *testing.T) {
	// last value 30: naive forecasts 30, moving_average(3) forecasts the mean
	// of {10, 20, 30} = 20 at step one
	panel, err := dataset.FromTargets(start, time.Hour, map[string][]float64{
		"s": {10, 20, 30},
	})
	require.NoError(t, err)

	pipes := []*pipeline.Pipeline{naivePipeline(t, 1), maPipeline(t, 3, 1)}

	simple, err := NewVoting(pipes, nil)
	require.NoError(t, err)
	require.NoError(t, simple.Fit(context.Background(), panel))
	out, err := simple.Forecast(context.Background(), forecast.Options{})
	require.NoError(t, err)
	vals, err := out.Column("s", dataset.TargetFeature)
	require.NoError(t, err)
	assert.InDelta(t, 25, vals[0], 1e-9)

	weighted, err := NewVoting(pipes, []float64{3, 1})
	require.NoError(t, err)
	require.NoError(t, weighted.Fit(context.Background(), panel))
	out, err = weighted.Forecast(context.Background(), forecast.Options{})
	require.NoError(t, err)
	vals, err = out.Column("s", dataset.TargetFeature)
	require.NoError(t, err)
	assert.InDelta(t, 27.5, vals[0], 1e-9) // (3*30 + 1*20) / 4
}

func TestVotingFitFailureReportsPipeline(t *testing.T) {
	panel := constantPanel(t, map[string]float64{"s": 10}, 3)

	// the second pipeline needs more observations than the panel has
	pipes := []*pipeline.Pipeline{naivePipeline(t, 1), maPipeline(t, 10, 1)}
	e, err := NewVoting(pipes, nil)
	require.NoError(t, err)

	err = e.Fit(context.Background(), panel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fit pipeline 1")
}

func TestVotingCombinesIntervalColumns(t *testing.T) {
	panel, err := dataset.FromTargets(start, time.Hour, map[string][]float64{
		"s": {10, 11, 9, 12, 10, 11, 9, 12},
	})
	require.NoError(t, err)

	ses := func() forecast.SeriesModel { return native.NewSES(0.3) }
	ar := func() forecast.SeriesModel { return native.NewAR(1) }
	p1, err := pipeline.New(forecast.NewPerSegment(ses), 2)
	require.NoError(t, err)
	p2, err := pipeline.New(forecast.NewPerSegment(ar), 2)
	require.NoError(t, err)

	e, err := NewVoting([]*pipeline.Pipeline{p1, p2}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), panel))

	out, err := e.Forecast(context.Background(), forecast.Options{PredictionInterval: true})
	require.NoError(t, err)

	points, err := out.Column("s", dataset.TargetFeature)
	require.NoError(t, err)
	lower, err := out.Column("s", dataset.QuantileFeature(0.025))
	require.NoError(t, err)
	upper, err := out.Column("s", dataset.QuantileFeature(0.975))
	require.NoError(t, err)
	for i := range points {
		assert.LessOrEqual(t, lower[i], points[i])
		assert.LessOrEqual(t, points[i], upper[i])
	}
}
