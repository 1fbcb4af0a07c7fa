package api

import (
	"context"
	"time"

	models "ForePull/internal/domain/models"
	drepo "ForePull/internal/domain/repository"
	domsvc "ForePull/internal/domain/service"
	"ForePull/internal/usecase"
	xhttp "ForePull/pkg/http"
	xlogger "ForePull/pkg/logger"
	"ForePull/pkg/queue"
	xutil "ForePull/pkg/util"

	"github.com/labstack/echo/v4"
)

// ForecastsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ForecastsEchoHandler struct {
	logger    *xlogger.Logger
	forecasts drepo.ForecastStore
	outliers  drepo.OutlierStore
	obs       drepo.ObservationStore
	runner    domsvc.Forecaster
	scanner   domsvc.OutlierScanner
	q         queue.QueueService
}

func NewForecastsEchoHandler(
	logger *xlogger.Logger,
	forecasts drepo.ForecastStore,
	outliers drepo.OutlierStore,
	obs drepo.ObservationStore,
	runner domsvc.Forecaster,
	scanner domsvc.OutlierScanner,
) *ForecastsEchoHandler {
	return &ForecastsEchoHandler{
		logger:    logger,
		forecasts: forecasts,
		outliers:  outliers,
		obs:       obs,
		runner:    runner,
		scanner:   scanner,
	}
}

// SetQueue enables asynchronous run/scan execution through the Redis queue.
func (h *ForecastsEchoHandler) SetQueue(q queue.QueueService) { h.q = q }

func (h *ForecastsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/observations", h.Observations)
	g.GET("/forecast", h.Forecasts)
	g.POST("/forecast/run", h.RunForecast)
	g.GET("/outliers", h.Outliers)
	g.POST("/outliers/scan", h.ScanOutliers)
	g.GET("/health", h.Health)
}

// Observations returns stored raw observations for one segment over a time
// range aligned to the requested frequency's bucket boundaries.
func (h *ForecastsEchoHandler) Observations(c echo.Context) error {
	segment := c.QueryParam("segment")
	if segment == "" {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("segment is required"))
	}
	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	from, to = xutil.AlignFromTo(from, to, c.QueryParam("freq"))
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 1000)

	res, err := h.obs.Query(c.Request().Context(), segment, from, to, limit)
	if err != nil {
		h.logger.Error("observation query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastsEchoHandler) Forecasts(c echo.Context) error {
	req := &models.ForecastQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.forecasts.Query(c.Request().Context(), req.Segment, req.N)
	if err != nil {
		h.logger.Error("forecast query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

// RunForecast enqueues a forecast run when the queue is configured, otherwise
// runs it synchronously.
func (h *ForecastsEchoHandler) RunForecast(c echo.Context) error {
	req := &models.ForecastRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if h.q != nil {
		if err := h.q.PublishMessage(ctx, usecase.ForecastRunJobType, req); err != nil {
			h.logger.Error("forecast enqueue error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.CreatedResponse(c, map[string]string{"status": "queued", "model": req.Model})
	}
	batch, err := h.runner.Run(ctx, *req)
	if err != nil {
		h.logger.Error("forecast run error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, batch)
}

func (h *ForecastsEchoHandler) Outliers(c echo.Context) error {
	req := &models.ForecastQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.outliers.QueryOutliers(c.Request().Context(), req.Segment, req.N)
	if err != nil {
		h.logger.Error("outlier query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// ScanOutliers enqueues an outlier scan when the queue is configured,
// otherwise runs it synchronously.
func (h *ForecastsEchoHandler) ScanOutliers(c echo.Context) error {
	req := &models.OutlierRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if h.q != nil {
		if err := h.q.PublishMessage(ctx, usecase.OutlierScanJobType, req); err != nil {
			h.logger.Error("outlier enqueue error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.CreatedResponse(c, map[string]string{"status": "queued", "model": req.Model})
	}
	records, err := h.scanner.Scan(ctx, *req)
	if err != nil {
		h.logger.Error("outlier scan error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, records)
}

func (h *ForecastsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.obs.Health(ctx); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("storage unhealthy: %v", err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
