package repository

import (
	"context"
	"time"

	"ForePull/internal/domain/models"
)

type ObservationStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, segments []string) error
	Read(ctx context.Context) (<-chan *models.Observation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, batch *models.ForecastBatch) error
	Close() error
}

type ObservationPublisher interface {
	Publish(ctx context.Context, o *models.Observation) error
	PublishBatch(ctx context.Context, obs []*models.Observation) error
	Close() error
}

type ObservationStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, o *models.Observation) error
	StoreBatch(ctx context.Context, obs []*models.Observation) error
	Query(ctx context.Context, segment string, from, to time.Time, limit int) ([]*models.Observation, error)
	LatestN(ctx context.Context, segment string, n int, freq Frequency) ([]*models.Observation, error)
	Segments(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type ForecastStore interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, batch *models.ForecastBatch) error
	Query(ctx context.Context, segment string, limit int) ([]*models.ForecastPoint, error)
	Close() error
}

type OutlierStore interface {
	StoreOutliers(ctx context.Context, records []*models.OutlierRecord) error
	QueryOutliers(ctx context.Context, segment string, limit int) ([]*models.OutlierRecord, error)
}

type Metrics interface {
	RecordObservation(segment string, value float64)
	RecordForecastPoints(segment string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
