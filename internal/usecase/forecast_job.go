package usecase

import (
	"context"
	"fmt"

	"ForePull/internal/domain/models"
	domsvc "ForePull/internal/domain/service"
	"ForePull/pkg/queue"
)

const (
	ForecastRunJobType = "forecast.run"
	OutlierScanJobType = "outlier.scan"
)

// ForecastRunJob executes queued forecast runs.
type ForecastRunJob struct {
	runner domsvc.Forecaster
}

func NewForecastRunJob(runner domsvc.Forecaster) *ForecastRunJob {
	return &ForecastRunJob{runner: runner}
}

func (j *ForecastRunJob) Name() string { return "forecast-run" }
func (j *ForecastRunJob) Type() string { return ForecastRunJobType }

func (j *ForecastRunJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.ForecastRunRequest](payload)
	if err != nil {
		return fmt.Errorf("parse forecast run payload: %w", err)
	}
	_, err = j.runner.Run(ctx, *req)
	return err
}

// OutlierScanJob executes queued outlier scans.
type OutlierScanJob struct {
	scanner domsvc.OutlierScanner
}

func NewOutlierScanJob(scanner domsvc.OutlierScanner) *OutlierScanJob {
	return &OutlierScanJob{scanner: scanner}
}

func (j *OutlierScanJob) Name() string { return "outlier-scan" }
func (j *OutlierScanJob) Type() string { return OutlierScanJobType }

func (j *OutlierScanJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.OutlierRequest](payload)
	if err != nil {
		return fmt.Errorf("parse outlier scan payload: %w", err)
	}
	_, err = j.scanner.Scan(ctx, *req)
	return err
}

var (
	_ queue.Job = (*ForecastRunJob)(nil)
	_ queue.Job = (*OutlierScanJob)(nil)
)
