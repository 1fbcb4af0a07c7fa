package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"ForePull/internal/domain/models"
	pkgch "ForePull/pkg/clickhouse"
	pkgkafka "ForePull/pkg/kafka"
	applogger "ForePull/pkg/logger"
)

// ClickHouseForecasts implements ForecastStore and OutlierStore for ClickHouse.
type ClickHouseForecasts struct {
	db            *sql.DB
	forecastTable string
	outlierTable  string
	l             *applogger.Logger
}

// NewClickHouseForecasts creates ClickHouse forecast storage.
func NewClickHouseForecasts(ch *pkgch.Client, forecastTable, outlierTable string) *ClickHouseForecasts {
	return &ClickHouseForecasts{db: ch.DB(), forecastTable: forecastTable, outlierTable: outlierTable}
}

// SetLogger injects a structured logger.
func (s *ClickHouseForecasts) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseForecasts) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

// StoreBatch persists every point of a run. Interval bounds are flattened to
// the lowest and highest quantile columns when present.
func (s *ClickHouseForecasts) StoreBatch(ctx context.Context, batch *models.ForecastBatch) error {
	if batch == nil || len(batch.Points) == 0 {
		return nil
	}
	values := make([]string, 0, len(batch.Points))
	args := make([]interface{}, 0, len(batch.Points)*8)
	for _, pt := range batch.Points {
		lower, upper := sql.NullFloat64{}, sql.NullFloat64{}
		if len(pt.Quantiles) > 0 {
			loQ, hiQ := math.Inf(1), math.Inf(-1)
			for q := range pt.Quantiles {
				if q < loQ {
					loQ = q
				}
				if q > hiQ {
					hiQ = q
				}
			}
			lower = sql.NullFloat64{Float64: pt.Quantiles[loQ], Valid: true}
			upper = sql.NullFloat64{Float64: pt.Quantiles[hiQ], Valid: true}
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, batch.RunID, batch.Model, batch.Horizon, pt.Segment, pt.Timestamp, pt.Value, lower, upper)
	}
	q := fmt.Sprintf("INSERT INTO %s (run_id, model, horizon, segment, ts, value, lower, upper) VALUES %s",
		s.forecastTable, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_forecasts error",
				applogger.String("run_id", batch.RunID),
				applogger.Int("points", len(batch.Points)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store forecasts: %w", err)
	}
	return nil
}

func (s *ClickHouseForecasts) Query(ctx context.Context, segment string, limit int) ([]*models.ForecastPoint, error) {
	q := fmt.Sprintf(`
        SELECT segment, ts, value, lower, upper FROM %s
        WHERE segment = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.forecastTable)
	rows, err := s.db.QueryContext(ctx, q, segment, limit)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	var points []*models.ForecastPoint
	for rows.Next() {
		var pt models.ForecastPoint
		var lower, upper sql.NullFloat64
		if err := rows.Scan(&pt.Segment, &pt.Timestamp, &pt.Value, &lower, &upper); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		if lower.Valid && upper.Valid {
			pt.Quantiles = map[float64]float64{0.025: lower.Float64, 0.975: upper.Float64}
		}
		points = append(points, &pt)
	}
	return points, rows.Err()
}

// StoreOutliers persists outlier records, implementing OutlierStore.
func (s *ClickHouseForecasts) StoreOutliers(ctx context.Context, records []*models.OutlierRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*6)
	for _, r := range records {
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args, r.Segment, r.Timestamp, r.Value, r.Model, r.Width, r.DetectedAt)
	}
	q := fmt.Sprintf("INSERT INTO %s (segment, ts, value, model, width, detected_at) VALUES %s",
		s.outlierTable, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("store outliers: %w", err)
	}
	return nil
}

func (s *ClickHouseForecasts) QueryOutliers(ctx context.Context, segment string, limit int) ([]*models.OutlierRecord, error) {
	q := fmt.Sprintf(`
        SELECT segment, ts, value, model, width, detected_at FROM %s
        WHERE segment = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.outlierTable)
	rows, err := s.db.QueryContext(ctx, q, segment, limit)
	if err != nil {
		return nil, fmt.Errorf("query outliers: %w", err)
	}
	defer rows.Close()

	var records []*models.OutlierRecord
	for rows.Next() {
		var r models.OutlierRecord
		if err := rows.Scan(&r.Segment, &r.Timestamp, &r.Value, &r.Model, &r.Width, &r.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan outlier: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *ClickHouseForecasts) Close() error {
	return nil // Managed by pkg
}

// KafkaForecastPublisher implements Publisher for Kafka. One message per
// forecast point, keyed by segment so a segment's points stay ordered.
type KafkaForecastPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaForecastPublisher creates a Kafka forecast publisher.
func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) Publish(ctx context.Context, batch *models.ForecastBatch) error {
	if batch == nil || len(batch.Points) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(batch.Points))
	for i, pt := range batch.Points {
		value := map[string]interface{}{
			"run_id":  batch.RunID,
			"model":   batch.Model,
			"segment": pt.Segment,
			"ts":      pt.Timestamp.Unix(),
			"value":   pt.Value,
		}
		if len(pt.Quantiles) > 0 {
			value["quantiles"] = pt.Quantiles
		}
		msgs[i] = pkgkafka.Message{
			Key:   []byte(pt.Segment),
			Value: value,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// runID builds a deterministic identifier for a forecast run.
func RunID(model string, at time.Time) string {
	return fmt.Sprintf("%s-%d", model, at.UnixNano())
}
