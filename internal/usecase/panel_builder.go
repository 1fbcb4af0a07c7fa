package usecase

import (
	"context"
	"fmt"
	"time"

	"ForePull/internal/dataset"
	"ForePull/internal/domain/models"
	drepo "ForePull/internal/domain/repository"
	applogger "ForePull/pkg/logger"
)

// PanelBuilder assembles a regular multi-segment panel from stored
// observations. Segments are aligned to their common history window and
// interior gaps are forward-filled, so the result always satisfies the
// panel's regular-index requirement.
type PanelBuilder struct {
	store drepo.ObservationStore
	l     *applogger.Logger
}

func NewPanelBuilder(store drepo.ObservationStore) *PanelBuilder {
	return &PanelBuilder{store: store}
}

// SetLogger injects a structured logger.
func (b *PanelBuilder) SetLogger(l *applogger.Logger) { b.l = l }

// BuildLatest builds a panel over the last n buckets of the given segments at
// the given frequency. Empty segments means every stored segment.
func (b *PanelBuilder) BuildLatest(ctx context.Context, segments []string, n int, freq drepo.Frequency) (*dataset.Panel, error) {
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 buckets, got %d", n)
	}
	if len(segments) == 0 {
		var err error
		segments, err = b.store.Segments(ctx)
		if err != nil {
			return nil, fmt.Errorf("list segments: %w", err)
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments in store")
	}

	series := make(map[string][]*models.Observation, len(segments))
	var start, end time.Time
	for i, seg := range segments {
		obs, err := b.store.LatestN(ctx, seg, n, freq)
		if err != nil {
			return nil, fmt.Errorf("load segment %s: %w", seg, err)
		}
		if len(obs) == 0 {
			return nil, fmt.Errorf("segment %s has no observations", seg)
		}
		series[seg] = obs
		first, last := obs[0].Timestamp, obs[len(obs)-1].Timestamp
		if i == 0 || first.After(start) {
			start = first
		}
		if i == 0 || last.Before(end) {
			end = last
		}
	}
	d := freq.Duration()
	if !start.Before(end) {
		return nil, fmt.Errorf("segments share no overlapping history window")
	}
	length := int(end.Sub(start)/d) + 1

	targets := make(map[string][]float64, len(segments))
	for seg, obs := range series {
		vals := make([]float64, length)
		j := 0
		// advance to the bucket at or before the window start
		for j+1 < len(obs) && !obs[j+1].Timestamp.After(start) {
			j++
		}
		if obs[j].Timestamp.After(start) {
			return nil, fmt.Errorf("segment %s has no value at window start %s", seg, start)
		}
		ts := start
		for i := 0; i < length; i++ {
			for j+1 < len(obs) && !obs[j+1].Timestamp.After(ts) {
				j++
			}
			// forward fill: latest bucket at or before ts
			vals[i] = obs[j].Value
			ts = ts.Add(d)
		}
		targets[seg] = vals
	}

	panel, err := dataset.FromTargets(start, d, targets)
	if err != nil {
		return nil, fmt.Errorf("build panel: %w", err)
	}
	if b.l != nil {
		b.l.Debug("panel built",
			applogger.Int("segments", len(segments)),
			applogger.Int("rows", length),
			applogger.String("freq", string(freq)),
		)
	}
	return panel, nil
}
