package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ForePull/internal/domain/models"
	drepo "ForePull/internal/domain/repository"
)

// fakeObservationStore serves canned per-segment series.
type fakeObservationStore struct {
	series     map[string][]*models.Observation
	latestErr  error
	segmentErr error
}

func (s *fakeObservationStore) Init(ctx context.Context) error { return nil }

func (s *fakeObservationStore) Store(ctx context.Context, o *models.Observation) error {
	s.series[o.Segment] = append(s.series[o.Segment], o)
	return nil
}

func (s *fakeObservationStore) StoreBatch(ctx context.Context, obs []*models.Observation) error {
	for _, o := range obs {
		s.series[o.Segment] = append(s.series[o.Segment], o)
	}
	return nil
}

func (s *fakeObservationStore) Query(ctx context.Context, segment string, from, to time.Time, limit int) ([]*models.Observation, error) {
	return s.series[segment], nil
}

func (s *fakeObservationStore) LatestN(ctx context.Context, segment string, n int, freq drepo.Frequency) ([]*models.Observation, error) {
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	obs := s.series[segment]
	if len(obs) > n {
		obs = obs[len(obs)-n:]
	}
	return obs, nil
}

func (s *fakeObservationStore) Segments(ctx context.Context) ([]string, error) {
	if s.segmentErr != nil {
		return nil, s.segmentErr
	}
	segs := make([]string, 0, len(s.series))
	for seg := range s.series {
		segs = append(segs, seg)
	}
	return segs, nil
}

func (s *fakeObservationStore) Health(ctx context.Context) error { return nil }
func (s *fakeObservationStore) Close() error                     { return nil }

// regularSeries builds n hourly observations ending before now, generated by
// fn(i).
func regularSeries(segment string, start time.Time, n int, fn func(i int) float64) []*models.Observation {
	obs := make([]*models.Observation, n)
	for i := range obs {
		obs[i] = &models.Observation{
			Segment:   segment,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     fn(i),
		}
	}
	return obs
}

// fakeForecastStore captures stored batches and outlier records.
type fakeForecastStore struct {
	batches  []*models.ForecastBatch
	outliers []*models.OutlierRecord
	storeErr error
}

func (s *fakeForecastStore) Init(ctx context.Context) error { return nil }

func (s *fakeForecastStore) StoreBatch(ctx context.Context, batch *models.ForecastBatch) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakeForecastStore) Query(ctx context.Context, segment string, limit int) ([]*models.ForecastPoint, error) {
	var out []*models.ForecastPoint
	for _, b := range s.batches {
		for i := range b.Points {
			if b.Points[i].Segment == segment {
				out = append(out, &b.Points[i])
			}
		}
	}
	return out, nil
}

func (s *fakeForecastStore) Close() error { return nil }

func (s *fakeForecastStore) StoreOutliers(ctx context.Context, records []*models.OutlierRecord) error {
	s.outliers = append(s.outliers, records...)
	return nil
}

func (s *fakeForecastStore) QueryOutliers(ctx context.Context, segment string, limit int) ([]*models.OutlierRecord, error) {
	return s.outliers, nil
}

// fakePublisher captures published batches.
type fakePublisher struct {
	batches []*models.ForecastBatch
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, batch *models.ForecastBatch) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeObservationPublisher captures single and batch publishes.
type fakeObservationPublisher struct {
	single []*models.Observation
	batch  []*models.Observation
	err    error
}

func (p *fakeObservationPublisher) Publish(ctx context.Context, o *models.Observation) error {
	if p.err != nil {
		return p.err
	}
	p.single = append(p.single, o)
	return nil
}

func (p *fakeObservationPublisher) PublishBatch(ctx context.Context, obs []*models.Observation) error {
	if p.err != nil {
		return p.err
	}
	p.batch = append(p.batch, obs...)
	return nil
}

func (p *fakeObservationPublisher) Close() error { return nil }

// nopMetrics counts errors by kind.
type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newNopMetrics() *nopMetrics { return &nopMetrics{errors: make(map[string]int)} }

func (m *nopMetrics) RecordObservation(segment string, value float64) {}
func (m *nopMetrics) RecordForecastPoints(segment string, n int)      {}

func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *nopMetrics) RecordLatency(op string, seconds float64) {}

var errDownstream = fmt.Errorf("downstream unavailable")
