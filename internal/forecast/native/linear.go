package native

import (
	"fmt"
	"math"
)

// Linear is an ordinary-least-squares panel model with intercept, solved via
// the normal equations with partial-pivot Gaussian elimination.
type Linear struct {
	weights []float64 // weights[0] is the intercept
	fitted  bool
}

// NewLinear creates an unfitted linear model.
func NewLinear() *Linear { return &Linear{} }

func (m *Linear) Name() string { return "linear" }

func (m *Linear) FitMatrix(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("linear: matrix has %d rows, target has %d", len(x), len(y))
	}
	cols := len(x[0]) + 1
	if len(x) < cols {
		return fmt.Errorf("linear: need at least %d rows for %d features, got %d", cols, cols-1, len(x))
	}

	// Normal equations: (X'X) w = X'y, with a prepended intercept column.
	xtx := make([][]float64, cols)
	xty := make([]float64, cols)
	for i := range xtx {
		xtx[i] = make([]float64, cols)
	}
	row := make([]float64, cols)
	for r := range x {
		if len(x[r]) != cols-1 {
			return fmt.Errorf("linear: row %d has %d features, want %d", r, len(x[r]), cols-1)
		}
		row[0] = 1
		copy(row[1:], x[r])
		for i := 0; i < cols; i++ {
			xty[i] += row[i] * y[r]
			for j := 0; j < cols; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}

	weights, err := solve(xtx, xty)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	m.weights = weights
	m.fitted = true
	return nil
}

func (m *Linear) PredictMatrix(x [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("linear: model is not fitted")
	}
	out := make([]float64, len(x))
	for r := range x {
		if len(x[r]) != len(m.weights)-1 {
			return nil, fmt.Errorf("linear: row %d has %d features, want %d", r, len(x[r]), len(m.weights)-1)
		}
		v := m.weights[0]
		for j, f := range x[r] {
			v += m.weights[j+1] * f
		}
		out[r] = v
	}
	return out, nil
}

// solve performs in-place Gaussian elimination with partial pivoting.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular design matrix")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		v := b[r]
		for c := r + 1; c < n; c++ {
			v -= a[r][c] * out[c]
		}
		out[r] = v / a[r][r]
	}
	return out, nil
}
