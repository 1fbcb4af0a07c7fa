package repository

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

	"ForePull/internal/domain/models"
	domrepo "ForePull/internal/domain/repository"
	pkgch "ForePull/pkg/clickhouse"
	applogger "ForePull/pkg/logger"
)

// ClickHouseObservations implements ObservationStore for ClickHouse.
type ClickHouseObservations struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseObservations creates ClickHouse observation storage.
func NewClickHouseObservations(ch *pkgch.Client, table string) *ClickHouseObservations {
	return &ClickHouseObservations{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseObservations) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseObservations) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseObservations) Store(ctx context.Context, o *models.Observation) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, segment, value, event_id) VALUES (?, ?, ?, ?)", s.table)
	// Idempotency placeholder: event_id derived from segment+timestamp
	eventID := fmt.Sprintf("%s-%d", o.Segment, o.Timestamp.Unix())
	_, err := s.db.ExecContext(ctx, q, o.Timestamp, o.Segment, o.Value, eventID)
	return err
}

func (s *ClickHouseObservations) StoreBatch(ctx context.Context, obs []*models.Observation) error {
    if len(obs) == 0 {
        return nil
    }
    // Batch insert using VALUES multi-row to reduce round-trips.
    // Chunk size tuned to 2000 rows per batch.
    const chunkSize = 2000
    for start := 0; start < len(obs); start += chunkSize {
        end := start + chunkSize
        if end > len(obs) { end = len(obs) }

        values := make([]string, 0, end-start)
        args := make([]interface{}, 0, (end-start)*4)
        for _, o := range obs[start:end] {
            if o == nil || o.Segment == "" || o.Timestamp.IsZero() { continue }
            eventID := fmt.Sprintf("%s-%d", o.Segment, o.Timestamp.Unix())
            values = append(values, "(?, ?, ?, ?)")
            args = append(args, o.Timestamp, o.Segment, o.Value, eventID)
        }
        if len(values) == 0 { continue }
        q := fmt.Sprintf("INSERT INTO %s (ts, segment, value, event_id) VALUES %s", s.table, strings.Join(values, ","))
        if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
            return err
        }
    }
    return nil
}

func (s *ClickHouseObservations) Query(ctx context.Context, segment string, from, to time.Time, limit int) ([]*models.Observation, error) {
	q := fmt.Sprintf("SELECT segment, ts, value FROM %s WHERE segment = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, segment, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var obs []*models.Observation
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Segment, &o.Timestamp, &o.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs = append(obs, &o)
	}
	return obs, rows.Err()
}

// LatestN returns the last n resampled buckets of a segment in ascending
// order. Buckets average the raw observations falling inside them.
func (s *ClickHouseObservations) LatestN(ctx context.Context, segment string, n int, freq domrepo.Frequency) ([]*models.Observation, error) {
	start := time.Now()
	if !domrepo.IsValidFrequency(freq) {
		return nil, fmt.Errorf("unsupported frequency: %s", freq)
	}
	const qtpl = `
        SELECT toStartOfInterval(ts, INTERVAL %d second) AS bucket, segment, avg(value) AS value
        FROM %s
        WHERE segment = ?
        GROUP BY bucket, segment
        ORDER BY bucket DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, int(freq.Duration().Seconds()), s.table)
	rows, err := s.db.QueryContext(ctx, q, segment, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_observations query error",
				applogger.String("segment", segment),
				applogger.String("freq", string(freq)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest observations: %w", err)
	}
	defer rows.Close()

	tmp := make([]*models.Observation, 0, n)
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Timestamp, &o.Segment, &o.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		tmp = append(tmp, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse latest_observations ok",
			applogger.String("segment", segment),
			applogger.String("freq", string(freq)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *ClickHouseObservations) Segments(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT segment FROM %s ORDER BY segment", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segs []string
	for rows.Next() {
		var seg string
		if err := rows.Scan(&seg); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

func (s *ClickHouseObservations) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseObservations) Close() error {
	return nil // Managed by pkg
}
