package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForePull/internal/domain/models"
	icache "ForePull/internal/service/cache"
)

type readStore struct {
	points   []*models.ForecastPoint
	outliers []*models.OutlierRecord
	queryErr error
	queries  int
}

func (s *readStore) Init(ctx context.Context) error                              { return nil }
func (s *readStore) StoreBatch(ctx context.Context, b *models.ForecastBatch) error { return nil }
func (s *readStore) Close() error                                                { return nil }

func (s *readStore) Query(ctx context.Context, segment string, limit int) ([]*models.ForecastPoint, error) {
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.points, nil
}

func (s *readStore) StoreOutliers(ctx context.Context, recs []*models.OutlierRecord) error {
	return nil
}

func (s *readStore) QueryOutliers(ctx context.Context, segment string, limit int) ([]*models.OutlierRecord, error) {
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.outliers, nil
}

func TestForecastsRequiresSegment(t *testing.T) {
	h := NewForecastsHandler(&readStore{}, &readStore{})

	req := httptest.NewRequest(http.MethodGet, "/forecasts", nil)
	rec := httptest.NewRecorder()
	h.Forecasts()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastsReturnsStoredPoints(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &readStore{points: []*models.ForecastPoint{
		{Segment: "a", Timestamp: ts, Value: 42},
	}}
	h := NewForecastsHandler(store, store)

	req := httptest.NewRequest(http.MethodGet, "/forecasts?segment=a&n=10", nil)
	req.RemoteAddr = "10.0.0.1:1000"
	rec := httptest.NewRecorder()
	h.Forecasts()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []models.ForecastPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Segment)
	assert.Equal(t, 42.0, got[0].Value)
}

func TestForecastsServesSecondRequestFromCache(t *testing.T) {
	store := &readStore{points: []*models.ForecastPoint{{Segment: "a", Value: 1}}}
	h := NewForecastsHandler(store, store)
	h.SetCache(icache.NewTTLCache())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/forecasts?segment=a", nil)
		req.RemoteAddr = "10.0.0.2:1000"
		rec := httptest.NewRecorder()
		h.Forecasts()(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, store.queries, "second hit should come from the cache")
}

func TestForecastsRateLimited(t *testing.T) {
	store := &readStore{}
	h := NewForecastsHandler(store, store)

	limited := false
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/forecasts?segment=a", nil)
		req.RemoteAddr = "10.0.0.3:1000"
		rec := httptest.NewRecorder()
		h.Forecasts()(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}

func TestOutliersQueryError(t *testing.T) {
	store := &readStore{queryErr: errors.New("clickhouse down")}
	h := NewForecastsHandler(store, store)

	req := httptest.NewRequest(http.MethodGet, "/outliers?segment=a", nil)
	req.RemoteAddr = "10.0.0.4:1000"
	rec := httptest.NewRecorder()
	h.Outliers()(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOutliersReturnsRecords(t *testing.T) {
	store := &readStore{outliers: []*models.OutlierRecord{
		{Segment: "b", Value: 500, Model: "ar", Width: 0.95},
	}}
	h := NewForecastsHandler(store, store)

	req := httptest.NewRequest(http.MethodGet, "/outliers?segment=b", nil)
	req.RemoteAddr = "10.0.0.5:1000"
	rec := httptest.NewRecorder()
	h.Outliers()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.OutlierRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ar", got[0].Model)
}
