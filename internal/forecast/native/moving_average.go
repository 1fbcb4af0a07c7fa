package native

import (
	"fmt"

	"ForePull/internal/forecast"
)

func init() {
	forecast.Register("moving_average", func() forecast.SeriesModel { return NewMovingAverage(5) })
}

// MovingAverage forecasts with the mean of the last `window` values,
// recursively feeding forecasts back into the window for multi-step horizons.
type MovingAverage struct {
	window  int
	history []float64
	fitted  bool
}

// NewMovingAverage creates an unfitted moving-average model.
func NewMovingAverage(window int) *MovingAverage {
	if window < 1 {
		window = 1
	}
	return &MovingAverage{window: window}
}

func (m *MovingAverage) Name() string { return fmt.Sprintf("moving_average(%d)", m.window) }

func (m *MovingAverage) Fit(values []float64) error {
	if len(values) < m.window {
		return fmt.Errorf("moving_average: need at least %d observations, got %d", m.window, len(values))
	}
	m.history = make([]float64, len(values))
	copy(m.history, values)
	m.fitted = true
	return nil
}

func (m *MovingAverage) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	if steps < 1 {
		return nil, fmt.Errorf("moving_average: steps must be at least 1, got %d", steps)
	}
	ext := make([]float64, len(m.history), len(m.history)+steps)
	copy(ext, m.history)
	out := make([]float64, steps)
	for h := 0; h < steps; h++ {
		out[h] = mean(ext[len(ext)-m.window:])
		ext = append(ext, out[h])
	}
	return out, nil
}

// PredictInSample computes the trailing-window mean at each position, with an
// expanding window over the warm-up range.
func (m *MovingAverage) PredictInSample() ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	out := make([]float64, len(m.history))
	for t := range m.history {
		if t == 0 {
			out[0] = m.history[0]
			continue
		}
		from := t - m.window
		if from < 0 {
			from = 0
		}
		out[t] = mean(m.history[from:t])
	}
	return out, nil
}
