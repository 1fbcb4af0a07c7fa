package transform

import (
	"fmt"
	"sort"
	"time"

	"ForePull/internal/dataset"
)

// Lag adds target_lag_<k> feature columns. On future panels lag values are
// looked up in the history captured at fit time, so a lag depth of k serves
// forecasts up to k steps ahead.
type Lag struct {
	lags     []int
	history  map[string][]float64
	trainEnd time.Time
	freq     time.Duration
}

// NewLag creates a lag transform for the given positive lag depths.
func NewLag(lags ...int) (*Lag, error) {
	if len(lags) == 0 {
		return nil, fmt.Errorf("lag: at least one lag is required")
	}
	sorted := make([]int, len(lags))
	copy(sorted, lags)
	sort.Ints(sorted)
	if sorted[0] < 1 {
		return nil, fmt.Errorf("lag: lags must be positive, got %d", sorted[0])
	}
	return &Lag{lags: sorted}, nil
}

func (t *Lag) Name() string { return "lag" }

// MinLag returns the shallowest configured lag. A pipeline's horizon must not
// exceed it for feature-matrix models.
func (t *Lag) MinLag() int { return t.lags[0] }

func (t *Lag) Fit(p *dataset.Panel) error {
	t.history = make(map[string][]float64, len(p.Segments()))
	for _, seg := range p.Segments() {
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return fmt.Errorf("lag: %w", err)
		}
		t.history[seg] = target
	}
	t.trainEnd = p.EndTime()
	t.freq = p.Freq()
	return nil
}

func column(k int) string { return fmt.Sprintf("%s_lag_%d", dataset.TargetFeature, k) }

func (t *Lag) Apply(p *dataset.Panel) error {
	for _, seg := range p.Segments() {
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return fmt.Errorf("lag: %w", err)
		}
		for _, k := range t.lags {
			vals := dataset.NaNs(len(target))
			for i := k; i < len(target); i++ {
				vals[i] = target[i-k]
			}
			if err := p.SetColumn(seg, column(k), vals); err != nil {
				return fmt.Errorf("lag: %w", err)
			}
		}
	}
	return nil
}

// ApplyFuture fills lag columns from the fitted history. Cells whose source
// observation was never seen stay unset.
func (t *Lag) ApplyFuture(p *dataset.Panel) error {
	if t.history == nil {
		return fmt.Errorf("lag: transform is not fitted")
	}
	for _, seg := range p.Segments() {
		hist, ok := t.history[seg]
		if !ok {
			return fmt.Errorf("lag: segment %q was not present at fit time", seg)
		}
		n := len(hist)
		for _, k := range t.lags {
			vals := dataset.NaNs(p.Len())
			for i := 0; i < p.Len(); i++ {
				diff := p.Timestamp(i).Sub(t.trainEnd)
				if diff%t.freq != 0 {
					return fmt.Errorf("lag: timestamp %v is off the trained grid", p.Timestamp(i))
				}
				offset := int(diff / t.freq)
				histPos := n - 1 + offset - k
				if histPos >= 0 && histPos < n {
					vals[i] = hist[histPos]
				}
			}
			if err := p.SetColumn(seg, column(k), vals); err != nil {
				return fmt.Errorf("lag: %w", err)
			}
		}
	}
	return nil
}

// Invert keeps the derived feature columns in place; callers reuse them
// without recomputation.
func (t *Lag) Invert(p *dataset.Panel) error { return nil }
