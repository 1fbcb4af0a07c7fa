package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/domain/models"
	_ "ForePull/internal/forecast/native"
	pkgcache "ForePull/pkg/cache"
)

func runnerFixture(t *testing.T) (*ForecastRunner, *fakeForecastStore, *fakePublisher) {
	t.Helper()
	store := &fakeObservationStore{series: map[string][]*models.Observation{
		"a": regularSeries("a", histStart, 24, func(i int) float64 { return 10 + float64(i%3) }),
		"b": regularSeries("b", histStart, 24, func(i int) float64 { return 100 - float64(i%4) }),
	}}
	forecasts := &fakeForecastStore{}
	pub := &fakePublisher{}
	runner := NewForecastRunner(NewPanelBuilder(store), forecasts, pub, newNopMetrics())
	return runner, forecasts, pub
}

func TestRunProducesBatch(t *testing.T) {
	runner, forecasts, pub := runnerFixture(t)

	batch, err := runner.Run(context.Background(), models.ForecastRunRequest{
		Model:   "naive",
		Horizon: 3,
		N:       24,
		Freq:    "1h",
	})
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, "naive", batch.Model)
	assert.Equal(t, 3, batch.Horizon)
	assert.NotEmpty(t, batch.RunID)
	// one point per segment and step
	assert.Len(t, batch.Points, 6)

	// future timestamps continue the stored history
	for _, pt := range batch.Points {
		assert.True(t, pt.Timestamp.After(histStart.Add(23*time.Hour)))
		assert.Nil(t, pt.Quantiles)
	}

	require.Len(t, forecasts.batches, 1)
	require.Len(t, pub.batches, 1)
	assert.Equal(t, batch.RunID, forecasts.batches[0].RunID)
}

func TestRunWithInterval(t *testing.T) {
	runner, _, _ := runnerFixture(t)

	batch, err := runner.Run(context.Background(), models.ForecastRunRequest{
		Model:    "ses",
		Horizon:  2,
		N:        24,
		Freq:     "1h",
		Interval: true,
		Width:    0.9,
	})
	require.NoError(t, err)
	for _, pt := range batch.Points {
		require.Len(t, pt.Quantiles, 2)
		for q, v := range pt.Quantiles {
			if q < 0.5 {
				assert.LessOrEqual(t, v, pt.Value)
			} else {
				assert.GreaterOrEqual(t, v, pt.Value)
			}
		}
	}
}

func TestRunUnknownModel(t *testing.T) {
	runner, forecasts, _ := runnerFixture(t)

	_, err := runner.Run(context.Background(), models.ForecastRunRequest{
		Model:   "no_such_model",
		Horizon: 2,
		N:       24,
		Freq:    "1h",
	})
	require.Error(t, err)
	assert.Empty(t, forecasts.batches)
}

func TestRunBadIntervalWidth(t *testing.T) {
	runner, _, _ := runnerFixture(t)

	_, err := runner.Run(context.Background(), models.ForecastRunRequest{
		Model:    "naive",
		Horizon:  2,
		N:        24,
		Freq:     "1h",
		Interval: true,
		Width:    1.5,
	})
	require.Error(t, err)
}

func TestRunStoreFailure(t *testing.T) {
	runner, forecasts, pub := runnerFixture(t)
	forecasts.storeErr = errDownstream

	_, err := runner.Run(context.Background(), models.ForecastRunRequest{
		Model:   "naive",
		Horizon: 1,
		N:       24,
		Freq:    "1h",
	})
	require.ErrorIs(t, err, errDownstream)
	assert.Empty(t, pub.batches)
}

func TestRunLockRejectsConcurrentRun(t *testing.T) {
	runner, _, _ := runnerFixture(t)
	lock := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = lock.Close() })
	runner.SetRunLock(lock)

	// Simulate another worker holding the lock for the same model.
	held, err := lock.TryLock(context.Background(), "forecast:run:naive", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, err = runner.Run(context.Background(), models.ForecastRunRequest{
		Model:   "naive",
		Horizon: 3,
		N:       24,
		Freq:    "1h",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")
}

func TestRunLockReleasedAfterRun(t *testing.T) {
	runner, _, _ := runnerFixture(t)
	lock := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = lock.Close() })
	runner.SetRunLock(lock)

	req := models.ForecastRunRequest{Model: "naive", Horizon: 2, N: 24, Freq: "1h"}
	_, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	// lock must be free again for the next run
	_, err = runner.Run(context.Background(), req)
	require.NoError(t, err)
}
