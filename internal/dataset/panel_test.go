package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func hourlyIndex(n int) []time.Time {
	index := make([]time.Time, n)
	for i := range index {
		index[i] = testStart.Add(time.Duration(i) * time.Hour)
	}
	return index
}

func TestNewRejectsIrregularIndex(t *testing.T) {
	index := hourlyIndex(3)
	index[2] = index[2].Add(time.Minute)
	_, err := New(index, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "irregular step")
}

func TestNewRejectsEmptyIndex(t *testing.T) {
	_, err := New(nil, time.Hour)
	require.Error(t, err)
}

func TestFromTargets(t *testing.T) {
	p, err := FromTargets(testStart, time.Hour, map[string][]float64{
		"b": {1, 2, 3},
		"a": {4, 5, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"a", "b"}, p.Segments())
	assert.Equal(t, testStart, p.StartTime())
	assert.Equal(t, testStart.Add(2*time.Hour), p.EndTime())

	vals, err := p.Column("a", TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, vals)
}

func TestFromTargetsLengthMismatch(t *testing.T) {
	_, err := FromTargets(testStart, time.Hour, map[string][]float64{
		"a": {1, 2, 3},
		"b": {1, 2},
	})
	require.Error(t, err)
}

func TestPosition(t *testing.T) {
	p, err := New(hourlyIndex(4), time.Hour)
	require.NoError(t, err)

	i, ok := p.Position(testStart.Add(2 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = p.Position(testStart.Add(30 * time.Minute))
	assert.False(t, ok)
	_, ok = p.Position(testStart.Add(10 * time.Hour))
	assert.False(t, ok)
}

func TestSetColumnLengthCheck(t *testing.T) {
	p, err := New(hourlyIndex(3), time.Hour)
	require.NoError(t, err)
	err = p.SetColumn("a", TargetFeature, []float64{1, 2})
	require.Error(t, err)
}

func TestColumnReturnsCopy(t *testing.T) {
	p, err := FromTargets(testStart, time.Hour, map[string][]float64{"a": {1, 2, 3}})
	require.NoError(t, err)

	vals, err := p.Column("a", TargetFeature)
	require.NoError(t, err)
	vals[0] = 42

	again, err := p.Column("a", TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0])
}

func TestCopyIsDeep(t *testing.T) {
	p, err := FromTargets(testStart, time.Hour, map[string][]float64{"a": {1, 2, 3}})
	require.NoError(t, err)

	cp := p.Copy()
	require.NoError(t, cp.SetCell("a", TargetFeature, 0, 99))

	vals, err := p.Column("a", TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, 1.0, vals[0])
}

func TestSliceRows(t *testing.T) {
	p, err := FromTargets(testStart, time.Hour, map[string][]float64{"a": {1, 2, 3, 4}})
	require.NoError(t, err)

	s, err := p.SliceRows(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, testStart.Add(time.Hour), s.StartTime())

	vals, err := s.Column("a", TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, vals)

	_, err = p.SliceRows(3, 3)
	require.Error(t, err)
	_, err = p.SliceRows(-1, 2)
	require.Error(t, err)
}

func TestSelectRowsMustAscend(t *testing.T) {
	p, err := FromTargets(testStart, time.Hour, map[string][]float64{"a": {1, 2, 3, 4}})
	require.NoError(t, err)
	_, err = p.SelectRows([]int{2, 1})
	require.Error(t, err)
}

func TestMakeFuture(t *testing.T) {
	p, err := FromTargets(testStart, time.Hour, map[string][]float64{"a": {1, 2, 3}})
	require.NoError(t, err)

	f, err := p.MakeFuture(2)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, p.EndTime().Add(time.Hour), f.StartTime())

	n, err := f.CountNaN("a", TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = p.MakeFuture(0)
	require.Error(t, err)
}

func TestQuantileFeature(t *testing.T) {
	assert.Equal(t, "target_0.025", QuantileFeature(0.025))
	assert.Equal(t, "target_0.975", QuantileFeature(0.975))
	assert.Equal(t, "target_0.5", QuantileFeature(0.5))
}

func TestNaNs(t *testing.T) {
	for _, v := range NaNs(3) {
		assert.True(t, math.IsNaN(v))
	}
}
