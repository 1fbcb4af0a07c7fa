package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// TargetFeature is the feature every segment must carry after forecasting.
const TargetFeature = "target"

// QuantileFeature returns the column name holding the forecast at quantile q,
// e.g. "target_0.025".
func QuantileFeature(q float64) string {
	return fmt.Sprintf("%s_%.4g", TargetFeature, q)
}

// Panel is an ordered-by-time table whose columns are (segment, feature) pairs.
// All columns share one regular time index; missing cells are NaN.
type Panel struct {
	index []time.Time
	freq  time.Duration
	data  map[string]map[string][]float64 // segment -> feature -> values
}

// New creates an empty panel over the given index. The index must be strictly
// increasing with a constant step equal to freq.
func New(index []time.Time, freq time.Duration) (*Panel, error) {
	if len(index) == 0 {
		return nil, fmt.Errorf("panel: empty time index")
	}
	if freq <= 0 {
		return nil, fmt.Errorf("panel: frequency must be positive, got %v", freq)
	}
	for i := 1; i < len(index); i++ {
		if step := index[i].Sub(index[i-1]); step != freq {
			return nil, fmt.Errorf("panel: irregular step %v at position %d, want %v", step, i, freq)
		}
	}
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Panel{
		index: idx,
		freq:  freq,
		data:  make(map[string]map[string][]float64),
	}, nil
}

// FromTargets builds a panel with one target column per segment, indexed from
// start with the given frequency. All segments must have the same length.
func FromTargets(start time.Time, freq time.Duration, targets map[string][]float64) (*Panel, error) {
	n := -1
	for seg, vals := range targets {
		if n == -1 {
			n = len(vals)
		} else if len(vals) != n {
			return nil, fmt.Errorf("panel: segment %q has %d values, want %d", seg, len(vals), n)
		}
	}
	if n <= 0 {
		return nil, fmt.Errorf("panel: no target values")
	}
	index := make([]time.Time, n)
	for i := range index {
		index[i] = start.Add(time.Duration(i) * freq)
	}
	p, err := New(index, freq)
	if err != nil {
		return nil, err
	}
	for seg, vals := range targets {
		if err := p.SetColumn(seg, TargetFeature, vals); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Len returns the number of timestamps in the index.
func (p *Panel) Len() int { return len(p.index) }

// Freq returns the panel frequency.
func (p *Panel) Freq() time.Duration { return p.freq }

// StartTime returns the first timestamp of the index.
func (p *Panel) StartTime() time.Time { return p.index[0] }

// EndTime returns the last timestamp of the index.
func (p *Panel) EndTime() time.Time { return p.index[len(p.index)-1] }

// Index returns a copy of the time index.
func (p *Panel) Index() []time.Time {
	out := make([]time.Time, len(p.index))
	copy(out, p.index)
	return out
}

// Timestamp returns the timestamp at position i.
func (p *Panel) Timestamp(i int) time.Time { return p.index[i] }

// Position locates ts in the index.
func (p *Panel) Position(ts time.Time) (int, bool) {
	i := sort.Search(len(p.index), func(i int) bool { return !p.index[i].Before(ts) })
	if i < len(p.index) && p.index[i].Equal(ts) {
		return i, true
	}
	return 0, false
}

// Segments returns the segment labels in sorted order.
func (p *Panel) Segments() []string {
	segs := make([]string, 0, len(p.data))
	for seg := range p.data {
		segs = append(segs, seg)
	}
	sort.Strings(segs)
	return segs
}

// Features returns the feature names of a segment in sorted order.
func (p *Panel) Features(segment string) []string {
	cols := p.data[segment]
	feats := make([]string, 0, len(cols))
	for f := range cols {
		feats = append(feats, f)
	}
	sort.Strings(feats)
	return feats
}

// HasColumn reports whether the (segment, feature) column exists.
func (p *Panel) HasColumn(segment, feature string) bool {
	_, ok := p.data[segment][feature]
	return ok
}

// Column returns a copy of the (segment, feature) column.
func (p *Panel) Column(segment, feature string) ([]float64, error) {
	vals, ok := p.data[segment][feature]
	if !ok {
		return nil, fmt.Errorf("panel: no column (%s, %s)", segment, feature)
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, nil
}

// SetColumn assigns an index-aligned column in place, creating it if absent.
func (p *Panel) SetColumn(segment, feature string, values []float64) error {
	if len(values) != len(p.index) {
		return fmt.Errorf("panel: column (%s, %s) has %d values, index has %d", segment, feature, len(values), len(p.index))
	}
	cols, ok := p.data[segment]
	if !ok {
		cols = make(map[string][]float64)
		p.data[segment] = cols
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	cols[feature] = vals
	return nil
}

// SetCell assigns a single cell of an existing column.
func (p *Panel) SetCell(segment, feature string, i int, v float64) error {
	vals, ok := p.data[segment][feature]
	if !ok {
		return fmt.Errorf("panel: no column (%s, %s)", segment, feature)
	}
	if i < 0 || i >= len(vals) {
		return fmt.Errorf("panel: position %d out of range [0, %d)", i, len(vals))
	}
	vals[i] = v
	return nil
}

// DropColumn removes a (segment, feature) column if present.
func (p *Panel) DropColumn(segment, feature string) {
	delete(p.data[segment], feature)
}

// Copy returns a deep copy of the panel.
func (p *Panel) Copy() *Panel {
	cp := &Panel{
		index: make([]time.Time, len(p.index)),
		freq:  p.freq,
		data:  make(map[string]map[string][]float64, len(p.data)),
	}
	copy(cp.index, p.index)
	for seg, cols := range p.data {
		cpCols := make(map[string][]float64, len(cols))
		for feat, vals := range cols {
			cpVals := make([]float64, len(vals))
			copy(cpVals, vals)
			cpCols[feat] = cpVals
		}
		cp.data[seg] = cpCols
	}
	return cp
}

// SliceRows returns a copy restricted to index positions [from, to).
func (p *Panel) SliceRows(from, to int) (*Panel, error) {
	if from < 0 || to > len(p.index) || from >= to {
		return nil, fmt.Errorf("panel: bad row range [%d, %d) for %d rows", from, to, len(p.index))
	}
	positions := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		positions = append(positions, i)
	}
	return p.SelectRows(positions)
}

// SelectRows returns a copy restricted to the given ascending index positions.
// The result keeps the panel frequency even when the selection has gaps, so
// positions are reported against the original index via Timestamp lookup.
func (p *Panel) SelectRows(positions []int) (*Panel, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("panel: empty row selection")
	}
	for i, pos := range positions {
		if pos < 0 || pos >= len(p.index) {
			return nil, fmt.Errorf("panel: position %d out of range [0, %d)", pos, len(p.index))
		}
		if i > 0 && pos <= positions[i-1] {
			return nil, fmt.Errorf("panel: row selection must be strictly ascending")
		}
	}
	cp := &Panel{
		index: make([]time.Time, len(positions)),
		freq:  p.freq,
		data:  make(map[string]map[string][]float64, len(p.data)),
	}
	for i, pos := range positions {
		cp.index[i] = p.index[pos]
	}
	for seg, cols := range p.data {
		cpCols := make(map[string][]float64, len(cols))
		for feat, vals := range cols {
			sel := make([]float64, len(positions))
			for i, pos := range positions {
				sel[i] = vals[pos]
			}
			cpCols[feat] = sel
		}
		cp.data[seg] = cpCols
	}
	return cp, nil
}

// MakeFuture returns a panel covering the `periods` timestamps following the
// end of this panel. Every existing (segment, feature) column is carried with
// all cells unset; fitted transforms repopulate known-future features and
// forecasting fills the target.
func (p *Panel) MakeFuture(periods int) (*Panel, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("panel: future periods must be positive, got %d", periods)
	}
	index := make([]time.Time, periods)
	for i := range index {
		index[i] = p.EndTime().Add(time.Duration(i+1) * p.freq)
	}
	future, err := New(index, p.freq)
	if err != nil {
		return nil, err
	}
	for seg, cols := range p.data {
		for feat := range cols {
			if err := future.SetColumn(seg, feat, NaNs(periods)); err != nil {
				return nil, err
			}
		}
	}
	return future, nil
}

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// CountNaN returns the number of unset cells in a column.
func (p *Panel) CountNaN(segment, feature string) (int, error) {
	vals, ok := p.data[segment][feature]
	if !ok {
		return 0, fmt.Errorf("panel: no column (%s, %s)", segment, feature)
	}
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			n++
		}
	}
	return n, nil
}
