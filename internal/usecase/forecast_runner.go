package usecase

import (
	"context"
	"fmt"
	"time"

	"ForePull/internal/dataset"
	"ForePull/internal/domain/models"
	drepo "ForePull/internal/domain/repository"
	"ForePull/internal/forecast"
	"ForePull/internal/pipeline"
	"ForePull/internal/repository"
	pkgcache "ForePull/pkg/cache"
	applogger "ForePull/pkg/logger"
)

// ForecastRunner implements the Forecaster service: build the panel from
// stored observations, fit the requested model per segment, forecast the
// horizon, then persist and publish the batch.
type ForecastRunner struct {
	builder   *PanelBuilder
	forecasts drepo.ForecastStore
	pub       drepo.Publisher
	metrics   drepo.Metrics
	lock      pkgcache.Service
	l         *applogger.Logger
}

func NewForecastRunner(builder *PanelBuilder, forecasts drepo.ForecastStore, pub drepo.Publisher, metrics drepo.Metrics) *ForecastRunner {
	return &ForecastRunner{builder: builder, forecasts: forecasts, pub: pub, metrics: metrics}
}

// SetLogger injects a structured logger.
func (r *ForecastRunner) SetLogger(l *applogger.Logger) { r.l = l }

// SetRunLock guards Run with a lock keyed by model so queue workers and the
// API cannot start overlapping runs for the same model.
func (r *ForecastRunner) SetRunLock(c pkgcache.Service) { r.lock = c }

func (r *ForecastRunner) Run(ctx context.Context, req models.ForecastRunRequest) (*models.ForecastBatch, error) {
	start := time.Now()
	if r.lock != nil {
		key := "forecast:run:" + req.Model
		ok, err := r.lock.TryLock(ctx, key, 5*time.Minute)
		if err != nil {
			r.metrics.RecordError("forecast_lock")
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("forecast run for model %s already in progress", req.Model)
		}
		defer func() {
			if err := r.lock.Unlock(ctx, key); err != nil && r.l != nil {
				r.l.Warn("run lock release failed", applogger.Error(err))
			}
		}()
	}
	freq := drepo.NormalizeFrequency(req.Freq)
	panel, err := r.builder.BuildLatest(ctx, nil, req.N, freq)
	if err != nil {
		r.metrics.RecordError("forecast_panel")
		return nil, err
	}

	factory, err := forecast.Lookup(req.Model)
	if err != nil {
		return nil, err
	}
	adapter := forecast.NewPerSegment(factory)
	adapter.SetLogger(r.l)
	pl, err := pipeline.New(adapter, req.Horizon)
	if err != nil {
		return nil, err
	}
	pl.SetLogger(r.l)
	pl.SetMetrics(r.metrics)

	if err := pl.Fit(ctx, panel); err != nil {
		r.metrics.RecordError("forecast_fit")
		return nil, fmt.Errorf("fit %s: %w", req.Model, err)
	}
	opts := forecast.Options{}
	if req.Interval {
		opts, err = forecast.IntervalWidth(req.Width)
		if err != nil {
			return nil, err
		}
	}
	out, err := pl.Forecast(ctx, opts)
	if err != nil {
		r.metrics.RecordError("forecast_predict")
		return nil, fmt.Errorf("forecast %s: %w", req.Model, err)
	}

	batch, err := batchFromPanel(out, req.Model, req.Horizon, opts)
	if err != nil {
		return nil, err
	}
	if r.forecasts != nil {
		if err := r.forecasts.StoreBatch(ctx, batch); err != nil {
			r.metrics.RecordError("forecast_store")
			return nil, err
		}
	}
	if r.pub != nil {
		if err := r.pub.Publish(ctx, batch); err != nil {
			r.metrics.RecordError("forecast_publish")
			return nil, err
		}
	}
	r.metrics.RecordLatency("forecast_run", time.Since(start).Seconds())
	if r.l != nil {
		r.l.Info("forecast run complete",
			applogger.String("run_id", batch.RunID),
			applogger.String("model", req.Model),
			applogger.Int("horizon", req.Horizon),
			applogger.Int("points", len(batch.Points)),
			applogger.Duration("took", time.Since(start)),
		)
	}
	return batch, nil
}

// batchFromPanel flattens a forecast panel into a batch of points.
func batchFromPanel(p *dataset.Panel, model string, horizon int, opts forecast.Options) (*models.ForecastBatch, error) {
	now := time.Now()
	batch := &models.ForecastBatch{
		RunID:     repository.RunID(model, now),
		Model:     model,
		Horizon:   horizon,
		CreatedAt: now,
	}
	var quantiles []float64
	if opts.PredictionInterval {
		quantiles = opts.Quantiles
		if len(quantiles) == 0 {
			quantiles = forecast.DefaultQuantiles
		}
	}
	for _, seg := range p.Segments() {
		target, err := p.Column(seg, dataset.TargetFeature)
		if err != nil {
			return nil, err
		}
		paths := make(map[float64][]float64, len(quantiles))
		for _, q := range quantiles {
			paths[q], err = p.Column(seg, dataset.QuantileFeature(q))
			if err != nil {
				return nil, err
			}
		}
		for i, v := range target {
			pt := models.ForecastPoint{
				Segment:   seg,
				Timestamp: p.Timestamp(i),
				Value:     v,
			}
			if len(paths) > 0 {
				pt.Quantiles = make(map[float64]float64, len(paths))
				for q, path := range paths {
					pt.Quantiles[q] = path[i]
				}
			}
			batch.Points = append(batch.Points, pt)
		}
	}
	return batch, nil
}
