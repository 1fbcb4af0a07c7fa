package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	drepo "ForePull/internal/domain/repository"
	icache "ForePull/internal/service/cache"
	"ForePull/internal/service/metrics"
	"ForePull/internal/service/ratelimit"
	applogger "ForePull/pkg/logger"
)

// ForecastsHandler serves read endpoints over stored forecasts and outliers
// with plain net/http, fronted by a byte cache and a per-client rate limit.
type ForecastsHandler struct {
	forecasts drepo.ForecastStore
	outliers  drepo.OutlierStore
	cache     icache.BytesCache
	rl        *ratelimit.Limiter
	l         *applogger.Logger
}

func NewForecastsHandler(forecasts drepo.ForecastStore, outliers drepo.OutlierStore) *ForecastsHandler {
	metrics.Register()
	return &ForecastsHandler{forecasts: forecasts, outliers: outliers, rl: ratelimit.New()}
}

func (h *ForecastsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ForecastsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *ForecastsHandler) Forecasts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "forecasts"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		segment := r.URL.Query().Get("segment")
		if segment == "" {
			if h.l != nil {
				h.l.Warn("forecasts missing segment")
			}
			http.Error(w, "segment required", http.StatusBadRequest)
			return
		}
		n := parseInt(r.URL.Query().Get("n"), 100)
		if !h.rl.Allow(r.RemoteAddr+":forecasts", 5, 2) {
			if h.l != nil {
				h.l.Warn("forecasts rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "forecasts:" + segment + ":" + strconv.Itoa(n)
		if b, ok := h.cached(cacheKey, endpoint); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b)
			return
		}
		res, err := h.forecasts.Query(r.Context(), segment, n)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("forecasts query error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, endpoint, cacheKey, res, 30*time.Second)
	}
}

func (h *ForecastsHandler) Outliers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "outliers"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		segment := r.URL.Query().Get("segment")
		if segment == "" {
			if h.l != nil {
				h.l.Warn("outliers missing segment")
			}
			http.Error(w, "segment required", http.StatusBadRequest)
			return
		}
		n := parseInt(r.URL.Query().Get("n"), 100)
		if !h.rl.Allow(r.RemoteAddr+":outliers", 3, 1) {
			if h.l != nil {
				h.l.Warn("outliers rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "outliers:" + segment + ":" + strconv.Itoa(n)
		if b, ok := h.cached(cacheKey, endpoint); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b)
			return
		}
		res, err := h.outliers.QueryOutliers(r.Context(), segment, n)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("outliers query error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, endpoint, cacheKey, res, 60*time.Second)
	}
}

func (h *ForecastsHandler) cached(key, endpoint string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		if h.l != nil {
			h.l.Warn(endpoint+" cache_get_error", applogger.Error(err))
		}
		return nil, false
	}
	if ok && h.l != nil {
		h.l.Debug(endpoint+" cache_hit", applogger.String("key", key))
	}
	return b, ok
}

func (h *ForecastsHandler) writeJSON(w http.ResponseWriter, endpoint, cacheKey string, res interface{}, ttl time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(res)
	if err != nil {
		if h.l != nil {
			h.l.Error(endpoint+" marshal_error", applogger.Error(err))
		}
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(cacheKey, b, ttl); err != nil && h.l != nil {
			h.l.Warn(endpoint+" cache_set_error", applogger.Error(err))
		}
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn(endpoint+" write_error", applogger.Error(err))
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
