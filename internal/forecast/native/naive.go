package native

import (
	"fmt"

	"ForePull/internal/forecast"
)

func init() {
	forecast.Register("naive", func() forecast.SeriesModel { return NewNaive(1) })
}

// Naive repeats the value observed `lag` periods earlier. With lag > 1 it acts
// as a seasonal naive model.
type Naive struct {
	lag     int
	history []float64
	fitted  bool
}

// NewNaive creates an unfitted naive model.
func NewNaive(lag int) *Naive {
	if lag < 1 {
		lag = 1
	}
	return &Naive{lag: lag}
}

func (m *Naive) Name() string { return fmt.Sprintf("naive(%d)", m.lag) }

func (m *Naive) Fit(values []float64) error {
	if len(values) < m.lag {
		return fmt.Errorf("naive: need at least %d observations, got %d", m.lag, len(values))
	}
	m.history = make([]float64, len(values))
	copy(m.history, values)
	m.fitted = true
	return nil
}

func (m *Naive) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	if steps < 1 {
		return nil, fmt.Errorf("naive: steps must be at least 1, got %d", steps)
	}
	n := len(m.history)
	out := make([]float64, steps)
	for h := 0; h < steps; h++ {
		out[h] = m.history[n-m.lag+h%m.lag]
	}
	return out, nil
}

// PredictInSample repeats the lagged observation; positions inside the warm-up
// range fall back to the first observed value so no cell is left unset.
func (m *Naive) PredictInSample() ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	out := make([]float64, len(m.history))
	for t := range m.history {
		if t < m.lag {
			out[t] = m.history[0]
			continue
		}
		out[t] = m.history[t-m.lag]
	}
	return out, nil
}
