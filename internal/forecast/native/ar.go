package native

import (
	"fmt"

	"ForePull/internal/forecast"
)

func init() {
	forecast.Register("ar", func() forecast.SeriesModel { return NewAR(1) })
}

// AR is an autoregressive model of order p with intercept. Coefficients are
// estimated from the Yule-Walker equations via Levinson-Durbin recursion;
// multi-step forecasts are produced recursively from the estimated process.
type AR struct {
	order     int
	coeffs    []float64
	intercept float64
	sigma     float64
	history   []float64
	fittedVal []float64
	fitted    bool
}

// NewAR creates an unfitted AR(p) model.
func NewAR(order int) *AR {
	if order < 1 {
		order = 1
	}
	return &AR{order: order}
}

func (m *AR) Name() string { return fmt.Sprintf("ar(%d)", m.order) }

// Fit estimates coefficients, the intercept and the residual scale.
func (m *AR) Fit(values []float64) error {
	if len(values) < m.order+2 {
		return fmt.Errorf("ar: need at least %d observations, got %d", m.order+2, len(values))
	}
	mu := mean(values)
	m.coeffs = levinsonDurbin(acf(values, m.order), m.order)
	m.intercept = mu

	m.history = make([]float64, len(values))
	copy(m.history, values)

	// One-step-ahead fitted values over the whole history. Early positions use
	// the terms available so the in-sample range has no unset cells.
	m.fittedVal = make([]float64, len(values))
	for t := range values {
		pred := mu
		for i := 0; i < m.order && t-i-1 >= 0; i++ {
			pred += m.coeffs[i] * (values[t-i-1] - mu)
		}
		m.fittedVal[t] = pred
	}
	m.sigma = residualStd(values, m.fittedVal, m.order+1)
	m.fitted = true
	return nil
}

// Predict forecasts `steps` periods ahead recursively, feeding forecasts back
// as regressors.
func (m *AR) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	if steps < 1 {
		return nil, fmt.Errorf("ar: steps must be at least 1, got %d", steps)
	}
	n := len(m.history)
	ext := make([]float64, n+steps)
	copy(ext, m.history)
	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.intercept
		for i := 0; i < m.order; i++ {
			pred += m.coeffs[i] * (ext[t-i-1] - m.intercept)
		}
		ext[t] = pred
	}
	out := make([]float64, steps)
	copy(out, ext[n:])
	return out, nil
}

// PredictInSample returns one-step-ahead fitted values over the trained range.
func (m *AR) PredictInSample() ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	out := make([]float64, len(m.fittedVal))
	copy(out, m.fittedVal)
	return out, nil
}

// PredictQuantiles produces Gaussian quantile paths with step-scaled standard
// errors around the point forecast.
func (m *AR) PredictQuantiles(steps int, quantiles []float64) (map[float64][]float64, error) {
	points, err := m.Predict(steps)
	if err != nil {
		return nil, err
	}
	return gaussianPaths(points, m.sigma, quantiles, true), nil
}

// PredictInSampleQuantiles produces Gaussian quantile paths around the fitted
// values with the one-step residual scale.
func (m *AR) PredictInSampleQuantiles(quantiles []float64) (map[float64][]float64, error) {
	points, err := m.PredictInSample()
	if err != nil {
		return nil, err
	}
	return gaussianPaths(points, m.sigma, quantiles, false), nil
}
