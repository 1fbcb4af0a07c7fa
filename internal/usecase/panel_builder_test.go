package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/dataset"
	"ForePull/internal/domain/models"
	drepo "ForePull/internal/domain/repository"
)

var histStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestBuildLatest(t *testing.T) {
	store := &fakeObservationStore{series: map[string][]*models.Observation{
		"a": regularSeries("a", histStart, 10, func(i int) float64 { return float64(i) }),
		"b": regularSeries("b", histStart, 10, func(i int) float64 { return float64(100 + i) }),
	}}
	b := NewPanelBuilder(store)

	panel, err := b.BuildLatest(context.Background(), nil, 10, drepo.FreqHour)
	require.NoError(t, err)
	assert.Equal(t, 10, panel.Len())
	assert.Equal(t, []string{"a", "b"}, panel.Segments())
	assert.Equal(t, time.Hour, panel.Freq())

	vals, err := panel.Column("b", dataset.TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, 100.0, vals[0])
	assert.Equal(t, 109.0, vals[9])
}

func TestBuildLatestAlignsToCommonWindow(t *testing.T) {
	// segment b starts two hours later and ends one hour earlier
	store := &fakeObservationStore{series: map[string][]*models.Observation{
		"a": regularSeries("a", histStart, 10, func(i int) float64 { return float64(i) }),
		"b": regularSeries("b", histStart.Add(2*time.Hour), 7, func(i int) float64 { return float64(i) }),
	}}
	b := NewPanelBuilder(store)

	panel, err := b.BuildLatest(context.Background(), []string{"a", "b"}, 10, drepo.FreqHour)
	require.NoError(t, err)
	assert.Equal(t, histStart.Add(2*time.Hour), panel.StartTime())
	assert.Equal(t, histStart.Add(8*time.Hour), panel.EndTime())
	assert.Equal(t, 7, panel.Len())

	vals, err := panel.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8}, vals)
}

func TestBuildLatestForwardFillsGaps(t *testing.T) {
	// drop the middle bucket of an otherwise regular series
	obs := regularSeries("a", histStart, 6, func(i int) float64 { return float64(i) })
	obs = append(obs[:3], obs[4:]...)
	full := regularSeries("b", histStart, 6, func(i int) float64 { return 50 })

	store := &fakeObservationStore{series: map[string][]*models.Observation{
		"a": obs,
		"b": full,
	}}
	b := NewPanelBuilder(store)

	panel, err := b.BuildLatest(context.Background(), nil, 10, drepo.FreqHour)
	require.NoError(t, err)
	require.Equal(t, 6, panel.Len())

	vals, err := panel.Column("a", dataset.TargetFeature)
	require.NoError(t, err)
	// position 3 is filled with the last value before the gap
	assert.Equal(t, []float64{0, 1, 2, 2, 4, 5}, vals)

	n, err := panel.CountNaN("a", dataset.TargetFeature)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuildLatestNoOverlap(t *testing.T) {
	store := &fakeObservationStore{series: map[string][]*models.Observation{
		"a": regularSeries("a", histStart, 5, func(i int) float64 { return 1 }),
		"b": regularSeries("b", histStart.Add(240*time.Hour), 5, func(i int) float64 { return 2 }),
	}}
	b := NewPanelBuilder(store)

	_, err := b.BuildLatest(context.Background(), nil, 5, drepo.FreqHour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no overlapping history window")
}

func TestBuildLatestValidation(t *testing.T) {
	store := &fakeObservationStore{series: map[string][]*models.Observation{}}
	b := NewPanelBuilder(store)

	_, err := b.BuildLatest(context.Background(), nil, 1, drepo.FreqHour)
	require.Error(t, err)

	_, err = b.BuildLatest(context.Background(), nil, 10, drepo.FreqHour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no segments")
}

func TestBuildLatestEmptySegment(t *testing.T) {
	store := &fakeObservationStore{series: map[string][]*models.Observation{
		"a": regularSeries("a", histStart, 5, func(i int) float64 { return 1 }),
		"b": nil,
	}}
	b := NewPanelBuilder(store)

	_, err := b.BuildLatest(context.Background(), []string{"a", "b"}, 5, drepo.FreqHour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no observations")
}
