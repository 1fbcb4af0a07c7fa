package ensemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/dataset"
	"ForePull/internal/forecast"
	"ForePull/internal/pipeline"
)

// meanCombiner averages each feature row and records its training data.
type meanCombiner struct {
	x      [][]float64
	y      []float64
	fitted bool
}

func (m *meanCombiner) Name() string { return "mean_combiner" }

func (m *meanCombiner) FitMatrix(x [][]float64, y []float64) error {
	m.x, m.y = x, y
	m.fitted = true
	return nil
}

func (m *meanCombiner) PredictMatrix(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		out[i] = sum / float64(len(row))
	}
	return out, nil
}

func TestStackingValidation(t *testing.T) {
	var cfgErr *forecast.ConfigurationError
	_, err := NewStacking([]*pipeline.Pipeline{naivePipeline(t, 2)}, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewStacking([]*pipeline.Pipeline{naivePipeline(t, 2), naivePipeline(t, 3)}, nil)
	require.ErrorAs(t, err, &cfgErr)
}

func TestStackingNeedsHoldoutWindow(t *testing.T) {
	e, err := NewStacking([]*pipeline.Pipeline{naivePipeline(t, 3), maPipeline(t, 2, 3)}, &meanCombiner{})
	require.NoError(t, err)

	panel := constantPanel(t, map[string]float64{"s": 5}, 3)
	var cfgErr *forecast.ConfigurationError
	err = e.Fit(context.Background(), panel)
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "hold out")
}

func TestStackingNotFitted(t *testing.T) {
	e, err := NewStacking([]*pipeline.Pipeline{naivePipeline(t, 2), naivePipeline(t, 2)}, &meanCombiner{})
	require.NoError(t, err)

	var nf *forecast.NotFittedError
	_, err = e.Forecast(context.Background(), forecast.Options{})
	require.ErrorAs(t, err, &nf)
}

func TestStackingCombinerTrainingData(t *testing.T) {
	combiner := &meanCombiner{}
	e, err := NewStacking([]*pipeline.Pipeline{naivePipeline(t, 2), maPipeline(t, 2, 2)}, combiner)
	require.NoError(t, err)

	panel := constantPanel(t, map[string]float64{"a": 10, "b": 20}, 8)
	require.NoError(t, e.Fit(context.Background(), panel))

	require.True(t, combiner.fitted)
	// one row per (segment, holdout step): 2 segments x horizon 2
	require.Len(t, combiner.x, 4)
	require.Len(t, combiner.y, 4)
	// labels are the held-out actual values
	assert.ElementsMatch(t, []float64{10, 10, 20, 20}, combiner.y)
	// constant series: every constituent forecast equals the level
	for i, row := range combiner.x {
		for _, v := range row {
			assert.InDelta(t, combiner.y[i], v, 1e-9)
		}
	}
}

func TestStackingForecast(t *testing.T) {
	combiner := &meanCombiner{}
	e, err := NewStacking([]*pipeline.Pipeline{naivePipeline(t, 2), maPipeline(t, 3, 2)}, combiner)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Horizon())

	panel := constantPanel(t, map[string]float64{"s": 12}, 9)
	require.NoError(t, e.Fit(context.Background(), panel))

	out, err := e.Forecast(context.Background(), forecast.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, panel.EndTime().Add(panel.Freq()), out.StartTime())

	vals, err := out.Column("s", dataset.TargetFeature)
	require.NoError(t, err)
	for _, v := range vals {
		assert.InDelta(t, 12, v, 1e-9)
	}
}

func TestStackingDefaultCombinerIsLinear(t *testing.T) {
	e, err := NewStacking([]*pipeline.Pipeline{naivePipeline(t, 2), maPipeline(t, 2, 2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "linear", e.combiner.Name())
}
