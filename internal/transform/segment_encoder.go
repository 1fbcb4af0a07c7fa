package transform

import (
	"fmt"

	"ForePull/internal/dataset"
)

// SegmentCodeFeature is the numeric segment identity column added by
// SegmentEncoder for multi-segment models.
const SegmentCodeFeature = "segment_code"

// SegmentEncoder adds a constant numeric segment identity feature so a single
// model fit across the panel can tell segments apart.
type SegmentEncoder struct {
	codes map[string]float64
}

// NewSegmentEncoder creates an unfitted segment encoder.
func NewSegmentEncoder() *SegmentEncoder { return &SegmentEncoder{} }

func (t *SegmentEncoder) Name() string { return "segment_encoder" }

func (t *SegmentEncoder) Fit(p *dataset.Panel) error {
	t.codes = make(map[string]float64, len(p.Segments()))
	for i, seg := range p.Segments() {
		t.codes[seg] = float64(i)
	}
	return nil
}

func (t *SegmentEncoder) Apply(p *dataset.Panel) error { return t.encode(p) }

func (t *SegmentEncoder) ApplyFuture(p *dataset.Panel) error { return t.encode(p) }

func (t *SegmentEncoder) Invert(p *dataset.Panel) error { return nil }

func (t *SegmentEncoder) encode(p *dataset.Panel) error {
	if t.codes == nil {
		return fmt.Errorf("segment_encoder: transform is not fitted")
	}
	for _, seg := range p.Segments() {
		code, ok := t.codes[seg]
		if !ok {
			return fmt.Errorf("segment_encoder: segment %q was not present at fit time", seg)
		}
		vals := make([]float64, p.Len())
		for i := range vals {
			vals[i] = code
		}
		if err := p.SetColumn(seg, SegmentCodeFeature, vals); err != nil {
			return fmt.Errorf("segment_encoder: %w", err)
		}
	}
	return nil
}
