package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/domain/models"
)

func sampleObservation(segment string) *models.Observation {
	return &models.Observation{
		Segment:   segment,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Value:     42.5,
	}
}

func TestProcessorKafkaBackend(t *testing.T) {
	pub := &fakeObservationPublisher{}
	store := &fakeObservationStore{series: map[string][]*models.Observation{}}
	p := NewObservationProcessor(pub, store, newNopMetrics(), "kafka")

	require.NoError(t, p.Process(context.Background(), sampleObservation("a")))
	assert.Len(t, pub.single, 1)
	assert.Empty(t, store.series)
}

func TestProcessorClickHouseBackend(t *testing.T) {
	pub := &fakeObservationPublisher{}
	store := &fakeObservationStore{series: map[string][]*models.Observation{}}
	p := NewObservationProcessor(pub, store, newNopMetrics(), "clickhouse")

	require.NoError(t, p.Process(context.Background(), sampleObservation("a")))
	assert.Empty(t, pub.single)
	assert.Len(t, store.series["a"], 1)
}

func TestProcessorUnknownBackend(t *testing.T) {
	m := newNopMetrics()
	p := NewObservationProcessor(&fakeObservationPublisher{}, nil, m, "postgres")

	err := p.Process(context.Background(), sampleObservation("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
	assert.Equal(t, 1, m.errors["process"])
}

func TestProcessorNilObservation(t *testing.T) {
	p := NewObservationProcessor(&fakeObservationPublisher{}, nil, newNopMetrics(), "kafka")
	require.Error(t, p.Process(context.Background(), nil))
}

func TestProcessorBatch(t *testing.T) {
	pub := &fakeObservationPublisher{}
	p := NewObservationProcessor(pub, nil, newNopMetrics(), "kafka")

	obs := []*models.Observation{sampleObservation("a"), sampleObservation("b")}
	require.NoError(t, p.ProcessBatch(context.Background(), obs))
	assert.Len(t, pub.batch, 2)

	require.NoError(t, p.ProcessBatch(context.Background(), nil))
}

func TestProcessorDownstreamError(t *testing.T) {
	pub := &fakeObservationPublisher{err: errDownstream}
	m := newNopMetrics()
	p := NewObservationProcessor(pub, nil, m, "kafka")

	require.Error(t, p.Process(context.Background(), sampleObservation("a")))
	assert.Equal(t, 1, m.errors["process"])
}
