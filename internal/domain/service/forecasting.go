package service

import (
	"context"

	"ForePull/internal/domain/models"
)

// Forecaster runs a full forecast over the stored observation history:
// build the panel, fit the requested model, forecast the horizon.
type Forecaster interface {
	Run(ctx context.Context, req models.ForecastRunRequest) (*models.ForecastBatch, error)
}

// OutlierScanner scans stored observations for points outside a model's
// confidence band.
type OutlierScanner interface {
	Scan(ctx context.Context, req models.OutlierRequest) ([]*models.OutlierRecord, error)
}
