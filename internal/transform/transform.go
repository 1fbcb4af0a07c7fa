// Package transform provides stateful, fitted feature transforms applied
// before model fitting and un-applied, in reverse order, after forecasting.
package transform

import (
	"strings"

	"ForePull/internal/dataset"
)

// Transform is fitted on the training panel, applied in place to training and
// future panels, and inverted on forecast output.
type Transform interface {
	Name() string
	Fit(p *dataset.Panel) error
	// Apply mutates the training panel in place.
	Apply(p *dataset.Panel) error
	// ApplyFuture populates known-future feature columns of a forecast panel.
	ApplyFuture(p *dataset.Panel) error
	// Invert un-applies the transform on the forecast output, including any
	// quantile columns.
	Invert(p *dataset.Panel) error
}

// targetColumns returns the target column plus any quantile columns of a
// segment, the set an invertible value transform must rewrite.
func targetColumns(p *dataset.Panel, segment string) []string {
	var cols []string
	for _, f := range p.Features(segment) {
		if f == dataset.TargetFeature || strings.HasPrefix(f, dataset.TargetFeature+"_") {
			cols = append(cols, f)
		}
	}
	return cols
}
