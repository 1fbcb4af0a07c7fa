package native

import (
	"fmt"

	"ForePull/internal/forecast"
)

func init() {
	forecast.Register("ses", func() forecast.SeriesModel { return NewSES(0.3) })
}

// SES is simple exponential smoothing: a recursively updated level that
// forecasts flat over the horizon.
type SES struct {
	alpha     float64
	level     float64
	fittedVal []float64
	sigma     float64
	fitted    bool
}

// NewSES creates an unfitted smoothing model. Alpha outside (0, 1] falls back
// to 0.3.
func NewSES(alpha float64) *SES {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &SES{alpha: alpha}
}

func (m *SES) Name() string { return fmt.Sprintf("ses(%.2g)", m.alpha) }

func (m *SES) Fit(values []float64) error {
	if len(values) < 2 {
		return fmt.Errorf("ses: need at least 2 observations, got %d", len(values))
	}
	level := values[0]
	m.fittedVal = make([]float64, len(values))
	m.fittedVal[0] = values[0]
	for t := 1; t < len(values); t++ {
		m.fittedVal[t] = level
		level = m.alpha*values[t] + (1-m.alpha)*level
	}
	m.level = level
	m.sigma = residualStd(values, m.fittedVal, 1)
	m.fitted = true
	return nil
}

func (m *SES) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	if steps < 1 {
		return nil, fmt.Errorf("ses: steps must be at least 1, got %d", steps)
	}
	out := make([]float64, steps)
	for h := range out {
		out[h] = m.level
	}
	return out, nil
}

func (m *SES) PredictInSample() ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	out := make([]float64, len(m.fittedVal))
	copy(out, m.fittedVal)
	return out, nil
}

func (m *SES) PredictQuantiles(steps int, quantiles []float64) (map[float64][]float64, error) {
	points, err := m.Predict(steps)
	if err != nil {
		return nil, err
	}
	return gaussianPaths(points, m.sigma, quantiles, true), nil
}

func (m *SES) PredictInSampleQuantiles(quantiles []float64) (map[float64][]float64, error) {
	points, err := m.PredictInSample()
	if err != nil {
		return nil, err
	}
	return gaussianPaths(points, m.sigma, quantiles, false), nil
}
