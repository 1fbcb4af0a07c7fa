package native

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/forecast"
)

func TestRegisteredNames(t *testing.T) {
	names := forecast.RegisteredModels()
	for _, want := range []string{"naive", "moving_average", "ses", "ar"} {
		assert.Contains(t, names, want)
	}
}

func TestNaivePredict(t *testing.T) {
	m := NewNaive(1)
	require.NoError(t, m.Fit([]float64{1, 2, 3}))

	out, err := m.Predict(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 3}, out)
}

func TestSeasonalNaivePredict(t *testing.T) {
	m := NewNaive(3)
	require.NoError(t, m.Fit([]float64{1, 2, 3, 4, 5, 6}))

	out, err := m.Predict(5)
	require.NoError(t, err)
	// cycles over the last season
	assert.Equal(t, []float64{4, 5, 6, 4, 5}, out)
}

func TestNaiveInSample(t *testing.T) {
	m := NewNaive(1)
	require.NoError(t, m.Fit([]float64{1, 2, 3}))

	out, err := m.PredictInSample()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 2}, out)
}

func TestNaiveErrors(t *testing.T) {
	m := NewNaive(5)
	require.Error(t, m.Fit([]float64{1, 2}))

	var nf *forecast.NotFittedError
	_, err := m.Predict(1)
	require.ErrorAs(t, err, &nf)

	require.NoError(t, m.Fit([]float64{1, 2, 3, 4, 5}))
	_, err = m.Predict(0)
	require.Error(t, err)
}

func TestMovingAveragePredict(t *testing.T) {
	m := NewMovingAverage(2)
	require.NoError(t, m.Fit([]float64{2, 4, 6}))

	out, err := m.Predict(2)
	require.NoError(t, err)
	// first step averages {4, 6}; second averages {6, 5}
	assert.InDelta(t, 5.0, out[0], 1e-12)
	assert.InDelta(t, 5.5, out[1], 1e-12)
}

func TestMovingAverageInSampleLength(t *testing.T) {
	m := NewMovingAverage(3)
	require.NoError(t, m.Fit([]float64{1, 2, 3, 4, 5}))

	out, err := m.PredictInSample()
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.InDelta(t, 1.0, out[0], 1e-12)
	assert.InDelta(t, 3.0, out[4], 1e-12) // mean of {2, 3, 4}
}

func TestSESFlatForecast(t *testing.T) {
	m := NewSES(0.5)
	require.NoError(t, m.Fit([]float64{10, 12, 14}))

	out, err := m.Predict(3)
	require.NoError(t, err)
	assert.InDelta(t, out[0], out[1], 1e-12)
	assert.InDelta(t, out[1], out[2], 1e-12)
	// level = 0.5*14 + 0.5*(0.5*12 + 0.5*10)
	assert.InDelta(t, 12.5, out[0], 1e-12)
}

func TestSESAlphaFallback(t *testing.T) {
	assert.Equal(t, "ses(0.3)", NewSES(-1).Name())
	assert.Equal(t, "ses(0.3)", NewSES(2).Name())
}

func TestSESQuantilesBracketPoint(t *testing.T) {
	m := NewSES(0.3)
	require.NoError(t, m.Fit([]float64{10, 11, 9, 12, 10, 11, 9, 12}))

	points, err := m.Predict(4)
	require.NoError(t, err)
	paths, err := m.PredictQuantiles(4, []float64{0.025, 0.975})
	require.NoError(t, err)

	for i := range points {
		assert.LessOrEqual(t, paths[0.025][i], points[i])
		assert.LessOrEqual(t, points[i], paths[0.975][i])
	}
	// uncertainty widens with the step
	w1 := paths[0.975][0] - paths[0.025][0]
	w4 := paths[0.975][3] - paths[0.025][3]
	assert.Greater(t, w4, w1)
}

func TestARRecoversPersistentSeries(t *testing.T) {
	// strongly autocorrelated series: AR(1) forecasts should stay close to
	// the recent level rather than the global mean
	values := make([]float64, 60)
	for i := 1; i < len(values); i++ {
		values[i] = 0.9*values[i-1] + 1
	}
	m := NewAR(1)
	require.NoError(t, m.Fit(values))

	out, err := m.Predict(1)
	require.NoError(t, err)
	assert.InDelta(t, values[len(values)-1], out[0], 1.0)
}

func TestARConstantSeries(t *testing.T) {
	m := NewAR(1)
	require.NoError(t, m.Fit([]float64{5, 5, 5, 5, 5, 5}))

	out, err := m.Predict(3)
	require.NoError(t, err)
	for _, v := range out {
		assert.InDelta(t, 5.0, v, 1e-9)
	}

	fitted, err := m.PredictInSample()
	require.NoError(t, err)
	for _, v := range fitted {
		assert.InDelta(t, 5.0, v, 1e-9)
	}
}

func TestARInSampleQuantiles(t *testing.T) {
	m := NewAR(2)
	require.NoError(t, m.Fit([]float64{1, 3, 2, 4, 3, 5, 4, 6, 5, 7}))

	paths, err := m.PredictInSampleQuantiles([]float64{0.1, 0.9})
	require.NoError(t, err)
	fitted, err := m.PredictInSample()
	require.NoError(t, err)
	require.Len(t, paths[0.1], len(fitted))
	for i := range fitted {
		assert.Less(t, paths[0.1][i], fitted[i])
		assert.Greater(t, paths[0.9][i], fitted[i])
	}
}

func TestARNeedsEnoughObservations(t *testing.T) {
	m := NewAR(3)
	require.Error(t, m.Fit([]float64{1, 2, 3, 4}))
}

func TestLinearExactFit(t *testing.T) {
	// y = 1 + 2*x0 + 3*x1
	x := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 3}}
	y := make([]float64, len(x))
	for i, row := range x {
		y[i] = 1 + 2*row[0] + 3*row[1]
	}
	m := NewLinear()
	require.NoError(t, m.FitMatrix(x, y))

	preds, err := m.PredictMatrix([][]float64{{4, 5}})
	require.NoError(t, err)
	assert.InDelta(t, 1+2*4+3*5, preds[0], 1e-9)
}

func TestLinearSingularMatrix(t *testing.T) {
	// a constant feature column duplicates the intercept
	x := [][]float64{{1}, {1}, {1}}
	y := []float64{1, 2, 3}
	m := NewLinear()
	require.Error(t, m.FitMatrix(x, y))
}

func TestLinearDimensionChecks(t *testing.T) {
	m := NewLinear()
	require.Error(t, m.FitMatrix(nil, nil))
	require.Error(t, m.FitMatrix([][]float64{{1, 2}}, []float64{1}))

	_, err := m.PredictMatrix([][]float64{{1}})
	require.Error(t, err)
}

func TestNormalQuantileSymmetry(t *testing.T) {
	assert.InDelta(t, 0, normalQuantile(0.5), 1e-9)
	assert.InDelta(t, 1.959964, normalQuantile(0.975), 1e-5)
	assert.InDelta(t, -normalQuantile(0.975), normalQuantile(0.025), 1e-9)
	assert.True(t, math.IsInf(normalQuantile(0), -1))
	assert.True(t, math.IsInf(normalQuantile(1), 1))
}
