package api

import (
	"errors"
	"strings"
	"time"

	"MarketBrief/internal/domain/models"
	drepo "MarketBrief/internal/domain/repository"
	"MarketBrief/internal/services/marketdata"
	"MarketBrief/internal/usecase"
	xhttp "MarketBrief/pkg/http"
	"MarketBrief/pkg/http/middleware"
	xlogger "MarketBrief/pkg/logger"
	"MarketBrief/pkg/queue"
	"MarketBrief/pkg/util"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

func init() {
	_ = xhttp.RegisterValidation("category", validCategories)
}

// validCategories accepts a comma separated list of known news categories.
func validCategories(fl validator.FieldLevel) bool {
	known := append(marketdata.Categories(), models.CategoryOther)
	for _, c := range util.SplitCSV(fl.Field().String()) {
		ok := false
		for _, k := range known {
			if strings.EqualFold(c, k) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// DashboardHandler serves the read API over the latest snapshot.
type DashboardHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.Dashboard
	hub     *SnapshotHub
	limiter middleware.Allower
	collect queue.Enqueuer
	now     func() time.Time
}

// NewDashboardHandler wires the routes. hub and limiter may be nil.
func NewDashboardHandler(logger *xlogger.Logger, uc *usecase.Dashboard, hub *SnapshotHub, limiter middleware.Allower) *DashboardHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardHandler{logger: logger, uc: uc, hub: hub, limiter: limiter, now: time.Now}
}

// WithCollectQueue enables POST /api/collect.
func (h *DashboardHandler) WithCollectQueue(q queue.Enqueuer) *DashboardHandler {
	h.collect = q
	return h
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter))
	}
	g.GET("/overview", h.Overview)
	g.GET("/indices", h.Indices)
	g.GET("/equities", h.Equities)
	g.GET("/yield-curve", h.YieldCurve)
	g.GET("/spreads", h.Spreads)
	g.GET("/indicators", h.Indicators)
	g.GET("/news", h.News)
	g.GET("/writeup", h.Writeup)
	g.POST("/cache/refresh", h.Refresh)
	g.POST("/collect", h.Collect)
	if h.hub != nil {
		e.GET("/ws/snapshots", h.hub.Serve)
	}
}

func (h *DashboardHandler) Overview(c echo.Context) error {
	res, err := h.uc.Overview(c.Request().Context())
	if err != nil {
		return h.fail(c, "overview", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Indices(c echo.Context) error {
	res, err := h.uc.Indices(c.Request().Context())
	if err != nil {
		return h.fail(c, "indices", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Equities(c echo.Context) error {
	req := &models.EquitiesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Equities(c.Request().Context(), strings.ToUpper(req.Ticker))
	if err != nil {
		return h.fail(c, "equities", err)
	}
	return xhttp.SuccessResponse(c, xhttp.ListDataResponse{Rows: res, Total: len(res)})
}

func (h *DashboardHandler) YieldCurve(c echo.Context) error {
	res, err := h.uc.YieldCurve(c.Request().Context())
	if err != nil {
		return h.fail(c, "yield curve", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Spreads(c echo.Context) error {
	res, err := h.uc.Spreads(c.Request().Context(), xhttp.QueryList(c, "name"))
	if err != nil {
		return h.fail(c, "spreads", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Indicators(c echo.Context) error {
	res, err := h.uc.Indicators(c.Request().Context())
	if err != nil {
		return h.fail(c, "indicators", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.News(c.Request().Context(), canonicalCategories(req.Categories), req.Limit)
	if err != nil {
		return h.fail(c, "news", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Writeup(c echo.Context) error {
	res, err := h.uc.Writeup(c.Request().Context(), h.now())
	if err != nil {
		return h.fail(c, "writeup", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Refresh(c echo.Context) error {
	h.uc.Refresh()
	return xhttp.AcceptedResponse(c, map[string]string{"status": "invalidated"})
}

// Collect queues an on-demand collection run.
func (h *DashboardHandler) Collect(c echo.Context) error {
	if h.collect == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("on-demand collection is not configured"))
	}
	id, err := h.collect.Enqueue(c.Request().Context(), usecase.CollectJobType, usecase.CollectRequest{
		Reason:      "api",
		RequestedAt: h.now().UTC(),
	})
	if err != nil {
		h.logger.Error("enqueue collection", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("collection queue unavailable").WithError(err))
	}
	return xhttp.AcceptedResponse(c, map[string]string{"job_id": id})
}

// fail maps use case errors onto API errors.
func (h *DashboardHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, drepo.ErrSnapshotNotFound):
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("no snapshot has been collected yet").WithError(err))
	case errors.Is(err, marketdata.ErrUnknownSpread):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("name", err.Error()))
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

// canonicalCategories maps user input onto the category spelling used by the classifier.
func canonicalCategories(raw string) []string {
	known := append(marketdata.Categories(), models.CategoryOther)
	var out []string
	for _, c := range util.SplitCSV(raw) {
		for _, k := range known {
			if strings.EqualFold(c, k) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}
