package usecase

import (
	"context"
	"time"

	"ForePull/internal/dataset"
	"ForePull/internal/domain/models"
	drepo "ForePull/internal/domain/repository"
	"ForePull/internal/outliers"
	applogger "ForePull/pkg/logger"
)

// OutlierScanUseCase implements the OutlierScanner service: scan stored
// observations for points outside a model's confidence band and persist the
// findings.
type OutlierScanUseCase struct {
	builder *PanelBuilder
	store   drepo.OutlierStore
	metrics drepo.Metrics
	l       *applogger.Logger
}

func NewOutlierScanUseCase(builder *PanelBuilder, store drepo.OutlierStore, metrics drepo.Metrics) *OutlierScanUseCase {
	return &OutlierScanUseCase{builder: builder, store: store, metrics: metrics}
}

// SetLogger injects a structured logger.
func (uc *OutlierScanUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

func (uc *OutlierScanUseCase) Scan(ctx context.Context, req models.OutlierRequest) ([]*models.OutlierRecord, error) {
	start := time.Now()
	freq := drepo.NormalizeFrequency(req.Freq)
	var segments []string
	if req.Segment != "" {
		segments = []string{req.Segment}
	}
	panel, err := uc.builder.BuildLatest(ctx, segments, req.N, freq)
	if err != nil {
		uc.metrics.RecordError("outlier_panel")
		return nil, err
	}

	detector, err := outliers.NewFromRegistry(req.Model, req.Width)
	if err != nil {
		return nil, err
	}
	detector.SetLogger(uc.l)
	found, err := detector.Detect(ctx, panel)
	if err != nil {
		uc.metrics.RecordError("outlier_detect")
		return nil, err
	}

	now := time.Now()
	var records []*models.OutlierRecord
	for _, seg := range panel.Segments() {
		target, err := panel.Column(seg, dataset.TargetFeature)
		if err != nil {
			return nil, err
		}
		for _, ts := range found[seg] {
			pos, ok := panel.Position(ts)
			if !ok {
				continue
			}
			records = append(records, &models.OutlierRecord{
				Segment:    seg,
				Timestamp:  ts,
				Value:      target[pos],
				Model:      req.Model,
				Width:      req.Width,
				DetectedAt: now,
			})
		}
	}
	if uc.store != nil && len(records) > 0 {
		if err := uc.store.StoreOutliers(ctx, records); err != nil {
			uc.metrics.RecordError("outlier_store")
			return nil, err
		}
	}
	uc.metrics.RecordLatency("outlier_scan", time.Since(start).Seconds())
	if uc.l != nil {
		uc.l.Info("outlier scan complete",
			applogger.String("model", req.Model),
			applogger.Int("outliers", len(records)),
			applogger.Duration("took", time.Since(start)),
		)
	}
	return records, nil
}
