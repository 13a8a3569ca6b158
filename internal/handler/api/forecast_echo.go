package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	"FxCast/internal/service/metrics"
	"FxCast/internal/service/ratelimit"
	"FxCast/internal/services/chart"
	"FxCast/internal/usecase"
	xhttp "FxCast/pkg/http"
	xlogger "FxCast/pkg/logger"
	"FxCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// ForecastEchoHandler serves the session over HTTP.
type ForecastEchoHandler struct {
	logger      *xlogger.Logger
	session     *usecase.Session
	rl          *ratelimit.Limiter
	stream      http.Handler
	historyDays int
	now         func() time.Time
}

func NewForecastEchoHandler(
	logger *xlogger.Logger,
	session *usecase.Session,
	rl *ratelimit.Limiter,
	stream http.Handler,
	historyDays int,
) *ForecastEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ForecastEchoHandler{
		logger:      logger,
		session:     session,
		rl:          rl,
		stream:      stream,
		historyDays: historyDays,
		now:         time.Now,
	}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/symbols", h.Symbols)
	g.POST("/symbols/reload", h.ReloadSymbols)
	g.GET("/health", h.Health)
	g.POST("/forecast", h.Forecast)
	g.GET("/historical/:ticker", h.Historical)
	g.GET("/state", h.State)
	g.GET("/chart", h.Chart)
	g.POST("/chart/zoom", h.Zoom)
	g.POST("/chart/view", h.View)
	g.POST("/reset", h.Reset)
	g.GET("/export.csv", h.Export)
	g.GET("/notifications", h.Notifications)
	g.DELETE("/notifications/:id", h.DismissNotification)
	if h.stream != nil {
		e.GET("/ws", echo.WrapHandler(h.stream))
	}
}

func (h *ForecastEchoHandler) Symbols(c echo.Context) error {
	defer observe("symbols", time.Now())
	req := &models.SymbolsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "symbols", verr)
	}
	return xhttp.SuccessResponse(c, h.session.Symbols(req.Query))
}

func (h *ForecastEchoHandler) ReloadSymbols(c echo.Context) error {
	defer observe("symbols_reload", time.Now())
	syms, err := h.session.ReloadSymbols(c.Request().Context())
	if err != nil {
		return h.fail(c, "symbols_reload", err)
	}
	return xhttp.SuccessResponse(c, syms)
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	defer observe("health", time.Now())
	req := &models.HealthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "health", verr)
	}
	if req.Refresh {
		return xhttp.SuccessResponse(c, h.session.CheckHealth(c.Request().Context()))
	}
	return xhttp.SuccessResponse(c, h.session.Health())
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	defer observe("forecast", time.Now())
	if h.rl != nil && !h.rl.Allow(c.RealIP()+":forecast") {
		h.logger.Warn("forecast rate limited", xlogger.String("remote", c.RealIP()))
		metrics.APIErrors.WithLabelValues("forecast", xhttp.CodeRateLimit).Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Слишком много запросов, попробуйте позже"))
	}
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "forecast", verr)
	}
	res, err := h.session.Forecast(c.Request().Context(), req.Ticker, *req.Horizon)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	snap := h.session.Snapshot()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"result":  res,
		"summary": snap.Summary,
		"details": snap.Details,
	})
}

func (h *ForecastEchoHandler) Historical(c echo.Context) error {
	defer observe("historical", time.Now())
	req := &models.HistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "historical", verr)
	}
	end := xhttp.ParseDateDefault(req.EndDate, util.TruncateDay(h.now()))
	start := xhttp.ParseDateDefault(req.StartDate, util.AddDays(end, -(h.historyDays-1)))

	points, err := h.session.History(c.Request().Context(), req.Ticker, start, end)
	if err != nil {
		return h.fail(c, "historical", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"ticker":          req.Ticker,
		"historical_data": points,
	})
}

func (h *ForecastEchoHandler) State(c echo.Context) error {
	defer observe("state", time.Now())
	return xhttp.SuccessResponse(c, h.session.Snapshot())
}

func (h *ForecastEchoHandler) Chart(c echo.Context) error {
	defer observe("chart", time.Now())
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "chart", verr)
	}
	ctx := c.Request().Context()
	if req.View != "" {
		if err := h.session.SetView(ctx, models.View(req.View)); err != nil {
			return h.fail(c, "chart", err)
		}
	}
	if req.Zoom != "" {
		if err := h.session.Zoom(ctx, zoomFactor(req.Zoom, 0)); err != nil {
			return h.fail(c, "chart", err)
		}
	}
	return xhttp.SuccessResponse(c, h.session.Chart())
}

func (h *ForecastEchoHandler) Zoom(c echo.Context) error {
	defer observe("chart_zoom", time.Now())
	req := &models.ZoomRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "chart_zoom", verr)
	}
	if err := h.session.Zoom(c.Request().Context(), zoomFactor(req.Direction, req.Factor)); err != nil {
		return h.fail(c, "chart_zoom", err)
	}
	return xhttp.SuccessResponse(c, h.session.Chart())
}

func (h *ForecastEchoHandler) View(c echo.Context) error {
	defer observe("chart_view", time.Now())
	req := &models.ViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "chart_view", verr)
	}
	if err := h.session.SetView(c.Request().Context(), models.View(req.View)); err != nil {
		return h.fail(c, "chart_view", err)
	}
	return xhttp.SuccessResponse(c, h.session.Chart())
}

func (h *ForecastEchoHandler) Reset(c echo.Context) error {
	defer observe("reset", time.Now())
	if err := h.session.Reset(c.Request().Context()); err != nil {
		return h.fail(c, "reset", err)
	}
	return xhttp.SuccessResponse(c, h.session.Snapshot())
}

func (h *ForecastEchoHandler) Export(c echo.Context) error {
	defer observe("export", time.Now())
	var buf bytes.Buffer
	name, err := h.session.Export(&buf)
	if err != nil {
		return h.fail(c, "export", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ForecastEchoHandler) Notifications(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Notifications())
}

func (h *ForecastEchoHandler) DismissNotification(c echo.Context) error {
	if !h.session.DismissNotification(c.Param("id")) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("notification %s not found", c.Param("id")))
	}
	return xhttp.NoContentResponse(c)
}

func (h *ForecastEchoHandler) badRequest(c echo.Context, endpoint string, verr interface{}) error {
	metrics.APIErrors.WithLabelValues(endpoint, xhttp.CodeValidation).Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func (h *ForecastEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// zoomFactor maps a direction to a multiplicative factor. An explicit factor wins.
func zoomFactor(direction string, factor float64) float64 {
	if factor > 0 && direction != "reset" {
		return factor
	}
	switch direction {
	case "in":
		return chart.ZoomIn
	case "out":
		return chart.ZoomOut
	}
	return 0
}

// toAppError maps the domain error taxonomy onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	msg := errs.Message(err)
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return xhttp.ValidationAppError("", msg).WithError(err)
	case errs.KindNetwork:
		return xhttp.NetworkAppError(msg).WithError(err)
	case errs.KindTimeout:
		return xhttp.TimeoutAppError(msg).WithError(err)
	case errs.KindServer:
		return xhttp.UpstreamAppError(xhttp.CodeServer, msg).WithError(err)
	case errs.KindProtocol:
		return xhttp.UpstreamAppError(xhttp.CodeProtocol, "Некорректный ответ сервера прогнозов").WithError(err)
	case errs.KindBusy:
		return xhttp.ConflictError(xhttp.CodeBusy, msg).WithError(err)
	case errs.KindCanceled:
		return xhttp.ConflictError("ERR_CANCELED", "Запрос отменён новым запросом").WithError(err)
	}
	return xhttp.InternalError("Something went wrong").WithError(err)
}
