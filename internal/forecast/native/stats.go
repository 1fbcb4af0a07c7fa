// Package native provides ForePull's built-in series and panel models. Models
// register themselves with the forecast registry; heavier adapters live in
// their own packages and plug in through the same registry.
package native

import "math"

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// acf computes the autocorrelation function up to maxLag (inclusive), with
// acf[0] == 1.
func acf(xs []float64, maxLag int) []float64 {
	n := len(xs)
	m := mean(xs)
	denom := 0.0
	for _, v := range xs {
		d := v - m
		denom += d * d
	}
	out := make([]float64, maxLag+1)
	out[0] = 1
	if denom == 0 {
		return out
	}
	for k := 1; k <= maxLag && k < n; k++ {
		num := 0.0
		for t := k; t < n; t++ {
			num += (xs[t] - m) * (xs[t-k] - m)
		}
		out[k] = num / denom
	}
	return out
}

// levinsonDurbin solves the Yule-Walker equations for AR coefficients.
func levinsonDurbin(acf []float64, order int) []float64 {
	phi := make([]float64, order)
	if order == 0 || len(acf) <= order {
		return phi
	}
	phi[0] = acf[1]
	v := 1 - phi[0]*phi[0]
	for i := 1; i < order; i++ {
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		if v <= 0 {
			break
		}
		lambda /= v
		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)
		v *= 1 - lambda*lambda
	}
	return phi
}

// normalQuantile is the inverse standard normal CDF (Acklam's rational
// approximation, relative error below 1.15e-9).
func normalQuantile(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}
	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02, 1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02, 6.680131188771972e+01, -1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00, -2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00, 3.754408661907416e+00}

	const low, high = 0.02425, 1 - 0.02425
	switch {
	case p < low:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > high:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}

// gaussianPaths builds per-quantile paths around point forecasts with a
// step-scaled standard error: point + z(q) * sigma * sqrt(step). Monotone
// bracketing of the point forecast holds by construction.
func gaussianPaths(points []float64, sigma float64, quantiles []float64, stepScaled bool) map[float64][]float64 {
	paths := make(map[float64][]float64, len(quantiles))
	for _, q := range quantiles {
		z := normalQuantile(q)
		path := make([]float64, len(points))
		for i, v := range points {
			scale := sigma
			if stepScaled {
				scale = sigma * math.Sqrt(float64(i+1))
			}
			path[i] = v + z*scale
		}
		paths[q] = path
	}
	return paths
}

func residualStd(actual, fitted []float64, params int) float64 {
	n := len(actual)
	if n == 0 {
		return 0
	}
	sse := 0.0
	for i := range actual {
		d := actual[i] - fitted[i]
		sse += d * d
	}
	dof := n - params
	if dof < 1 {
		dof = 1
	}
	return math.Sqrt(sse / float64(dof))
}
