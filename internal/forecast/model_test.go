package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndNewModel(t *testing.T) {
	Register("test_registered", func() SeriesModel { return &stubModel{name: "test_registered"} })

	m, err := NewModel("test_registered")
	require.NoError(t, err)
	assert.Equal(t, "test_registered", m.Name())

	assert.Contains(t, RegisteredModels(), "test_registered")
}

func TestNewModelUnknown(t *testing.T) {
	_, err := NewModel("no_such_model")
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "no_such_model")
}

func TestLookupDoesNotConstruct(t *testing.T) {
	Register("test_lookup", func() SeriesModel { return &stubModel{name: "test_lookup"} })

	factory, err := Lookup("test_lookup")
	require.NoError(t, err)
	assert.Equal(t, "test_lookup", factory().Name())
}

func TestRegisterNilFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { Register("test_nil", nil) })
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("test_dup", func() SeriesModel { return &stubModel{name: "test_dup"} })
	assert.Panics(t, func() {
		Register("test_dup", func() SeriesModel { return &stubModel{name: "test_dup"} })
	})
}

func TestIntervalWidth(t *testing.T) {
	opts, err := IntervalWidth(0.95)
	require.NoError(t, err)
	assert.True(t, opts.PredictionInterval)
	assert.InDelta(t, 0.025, opts.Quantiles[0], 1e-12)
	assert.InDelta(t, 0.975, opts.Quantiles[1], 1e-12)

	for _, w := range []float64{0, 1, -0.5, 1.5} {
		_, err := IntervalWidth(w)
		require.Error(t, err, "width %g", w)
	}
}

func TestOptionsQuantilesDefault(t *testing.T) {
	assert.Equal(t, DefaultQuantiles, Options{}.quantiles())

	qs := Options{Quantiles: []float64{0.9, 0.1}}.quantiles()
	assert.Equal(t, []float64{0.1, 0.9}, qs)
}
