package transform

import (
	"fmt"
	"math"

	"ForePull/internal/dataset"
)

// Log applies a natural-log transform to the target and restores the original
// scale, including quantile columns, on inversion.
type Log struct{}

// NewLog creates a log transform.
func NewLog() *Log { return &Log{} }

func (t *Log) Name() string { return "log" }

func (t *Log) Fit(p *dataset.Panel) error { return nil }

func (t *Log) Apply(p *dataset.Panel) error {
	for _, seg := range p.Segments() {
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}
		for i, v := range target {
			if math.IsNaN(v) {
				continue
			}
			if v <= 0 {
				return fmt.Errorf("log: segment %q has non-positive value %g at position %d", seg, v, i)
			}
			target[i] = math.Log(v)
		}
		if err := p.SetColumn(seg, dataset.TargetFeature, target); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}
	return nil
}

func (t *Log) ApplyFuture(p *dataset.Panel) error { return nil }

func (t *Log) Invert(p *dataset.Panel) error {
	for _, seg := range p.Segments() {
		for _, col := range targetColumns(p, seg) {
			vals, err := p.Column(seg, col)
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			for i, v := range vals {
				if !math.IsNaN(v) {
					vals[i] = math.Exp(v)
				}
			}
			if err := p.SetColumn(seg, col, vals); err != nil {
				return fmt.Errorf("log: %w", err)
			}
		}
	}
	return nil
}

// Scaler standardizes the target per segment with the mean and standard
// deviation captured at fit time.
type Scaler struct {
	mean map[string]float64
	std  map[string]float64
}

// NewScaler creates an unfitted standard scaler.
func NewScaler() *Scaler { return &Scaler{} }

func (t *Scaler) Name() string { return "scaler" }

func (t *Scaler) Fit(p *dataset.Panel) error {
	t.mean = make(map[string]float64, len(p.Segments()))
	t.std = make(map[string]float64, len(p.Segments()))
	for _, seg := range p.Segments() {
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return fmt.Errorf("scaler: %w", err)
		}
		m, s := meanStd(target)
		if s == 0 {
			s = 1
		}
		t.mean[seg] = m
		t.std[seg] = s
	}
	return nil
}

func (t *Scaler) Apply(p *dataset.Panel) error {
	if t.mean == nil {
		return fmt.Errorf("scaler: transform is not fitted")
	}
	for _, seg := range p.Segments() {
		m, ok := t.mean[seg]
		if !ok {
			return fmt.Errorf("scaler: segment %q was not present at fit time", seg)
		}
		s := t.std[seg]
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return fmt.Errorf("scaler: %w", err)
		}
		for i, v := range target {
			if !math.IsNaN(v) {
				target[i] = (v - m) / s
			}
		}
		if err := p.SetColumn(seg, dataset.TargetFeature, target); err != nil {
			return fmt.Errorf("scaler: %w", err)
		}
	}
	return nil
}

func (t *Scaler) ApplyFuture(p *dataset.Panel) error { return nil }

func (t *Scaler) Invert(p *dataset.Panel) error {
	if t.mean == nil {
		return fmt.Errorf("scaler: transform is not fitted")
	}
	for _, seg := range p.Segments() {
		m, ok := t.mean[seg]
		if !ok {
			return fmt.Errorf("scaler: segment %q was not present at fit time", seg)
		}
		s := t.std[seg]
		for _, col := range targetColumns(p, seg) {
			vals, err := p.Column(seg, col)
			if err != nil {
				return fmt.Errorf("scaler: %w", err)
			}
			for i, v := range vals {
				if !math.IsNaN(v) {
					vals[i] = v*s + m
				}
			}
			if err := p.SetColumn(seg, col, vals); err != nil {
				return fmt.Errorf("scaler: %w", err)
			}
		}
	}
	return nil
}

func meanStd(xs []float64) (float64, float64) {
	n := 0
	sum := 0.0
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	m := sum / float64(n)
	sq := 0.0
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		d := v - m
		sq += d * d
	}
	if n < 2 {
		return m, 0
	}
	return m, math.Sqrt(sq / float64(n-1))
}
