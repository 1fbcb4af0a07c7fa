package outliers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/dataset"
	"ForePull/internal/forecast"
	"ForePull/internal/forecast/native"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func arFactory() forecast.SeriesFactory {
	return func() forecast.SeriesModel { return native.NewAR(1) }
}

func TestNewValidation(t *testing.T) {
	var cfgErr *forecast.ConfigurationError

	_, err := New(nil, 0.95)
	require.ErrorAs(t, err, &cfgErr)

	for _, w := range []float64{0, 1, -0.1, 1.3} {
		_, err := New(arFactory(), w)
		require.ErrorAs(t, err, &cfgErr, "width %g", w)
	}
}

func TestNewFromRegistry(t *testing.T) {
	d, err := NewFromRegistry("ar", 0.95)
	require.NoError(t, err)
	require.NotNil(t, d)

	_, err = NewFromRegistry("no_such_model", 0.95)
	require.Error(t, err)
}

func TestDetectCleanSeries(t *testing.T) {
	// a constant series fits perfectly: bounds collapse onto the values and
	// strictly-outside comparison flags nothing
	panel, err := dataset.FromTargets(start, time.Hour, map[string][]float64{
		"s": {5, 5, 5, 5, 5, 5, 5, 5},
	})
	require.NoError(t, err)

	d, err := New(arFactory(), 0.95)
	require.NoError(t, err)

	out, err := d.Detect(context.Background(), panel)
	require.NoError(t, err)
	assert.Empty(t, out["s"])
}

func TestDetectSpike(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 10
	}
	spikeAt := 25
	values[spikeAt] = 100

	panel, err := dataset.FromTargets(start, time.Hour, map[string][]float64{
		"s": values,
	})
	require.NoError(t, err)

	d, err := New(arFactory(), 0.95)
	require.NoError(t, err)

	out, err := d.Detect(context.Background(), panel)
	require.NoError(t, err)

	stamps := out["s"]
	require.NotEmpty(t, stamps)
	assert.Contains(t, stamps, panel.Timestamp(spikeAt))
	// the spike must not drag half the series over the band
	assert.Less(t, len(stamps), 5)
}

func TestDetectPerSegmentIndependence(t *testing.T) {
	clean := make([]float64, 40)
	spiky := make([]float64, 40)
	for i := range clean {
		clean[i] = 3
		spiky[i] = 7
	}
	spiky[20] = 70

	panel, err := dataset.FromTargets(start, time.Hour, map[string][]float64{
		"clean": clean,
		"spiky": spiky,
	})
	require.NoError(t, err)

	d, err := New(arFactory(), 0.99)
	require.NoError(t, err)

	out, err := d.Detect(context.Background(), panel)
	require.NoError(t, err)
	assert.Empty(t, out["clean"])
	assert.Contains(t, out["spiky"], panel.Timestamp(20))
}

func TestDetectCapabilityError(t *testing.T) {
	// naive supports in-sample points but not in-sample intervals
	d, err := NewFromRegistry("naive", 0.95)
	require.NoError(t, err)

	panel, err := dataset.FromTargets(start, time.Hour, map[string][]float64{
		"s": {1, 2, 3, 4},
	})
	require.NoError(t, err)

	var capErr *forecast.CapabilityError
	_, err = d.Detect(context.Background(), panel)
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "in-sample prediction intervals", capErr.Capability)
}

func TestDetectCancelled(t *testing.T) {
	panel, err := dataset.FromTargets(start, time.Hour, map[string][]float64{
		"s": {1, 2, 3, 4, 5},
	})
	require.NoError(t, err)

	d, err := New(arFactory(), 0.95)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Detect(ctx, panel)
	require.ErrorIs(t, err, context.Canceled)
}
