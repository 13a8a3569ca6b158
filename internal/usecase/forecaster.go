package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	drepo "FxCast/internal/domain/repository"
	"FxCast/pkg/logger"
	"FxCast/pkg/util"

	"github.com/google/uuid"
)

const (
	// PolicyReject refuses a new request while one is pending.
	PolicyReject = "reject"
	// PolicySupersede cancels the pending request in favour of the new one.
	PolicySupersede = "supersede"
)

// ResultSink receives every successful result. Delivery must not block the caller.
type ResultSink interface {
	Submit(ctx context.Context, r *models.ForecastResult) error
}

// ControllerConfig bounds accepted requests.
type ControllerConfig struct {
	MinHorizon int
	MaxHorizon int
	Policy     string
}

// ForecastController validates requests, gates concurrency and drives the
// configured ForecastSource. At most one request is logically in flight.
type ForecastController struct {
	catalog *CatalogLoader
	source  drepo.ForecastSource
	metrics drepo.Metrics
	sink    ResultSink
	log     *logger.Logger
	cfg     ControllerConfig
	now     func() time.Time

	mu     sync.Mutex
	state  models.RequestState
	cancel context.CancelFunc
}

func NewForecastController(
	catalog *CatalogLoader,
	source drepo.ForecastSource,
	metrics drepo.Metrics,
	sink ResultSink,
	log *logger.Logger,
	cfg ControllerConfig,
) *ForecastController {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyReject
	}
	return &ForecastController{
		catalog: catalog,
		source:  source,
		metrics: metrics,
		sink:    sink,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ForecastInput is one forecast request. History is optional and only
// consulted by sources that forecast from client-supplied points.
type ForecastInput struct {
	Ticker  string
	Horizon int
	History []models.SeriesPoint
}

// RequestForecast validates and runs a forecast for ticker over horizonDays.
func (c *ForecastController) RequestForecast(ctx context.Context, ticker string, horizonDays int) (*models.ForecastResult, error) {
	return c.Forecast(ctx, ForecastInput{Ticker: ticker, Horizon: horizonDays})
}

// Forecast is RequestForecast with optional client-side history.
func (c *ForecastController) Forecast(ctx context.Context, in ForecastInput) (*models.ForecastResult, error) {
	const op = "forecast"
	in.Ticker = strings.TrimSpace(in.Ticker)
	if err := c.validateTicker(op, in.Ticker); err != nil {
		return nil, c.fail(op, err)
	}
	if in.Horizon < c.cfg.MinHorizon || in.Horizon > c.cfg.MaxHorizon {
		return nil, c.fail(op, errs.Validation(op, "горизонт прогноза должен быть от %d до %d дней", c.cfg.MinHorizon, c.cfg.MaxHorizon))
	}

	id, ctx, err := c.begin(ctx, in.Ticker, in.Horizon)
	if err != nil {
		return nil, c.fail(op, err)
	}
	defer c.finish(id)

	start := time.Now()
	res, err := c.source.Forecast(ctx, drepo.ForecastQuery{
		Ticker:  in.Ticker,
		Horizon: in.Horizon,
		History: in.History,
	})
	c.metrics.RecordLatency("forecast_"+c.source.Name(), time.Since(start).Seconds())
	if !c.isCurrent(id) {
		c.metrics.RecordRequest(c.source.Name(), "superseded")
		return nil, errs.Canceled(op, errors.New("superseded by a newer request"))
	}
	if err != nil {
		c.metrics.RecordRequest(c.source.Name(), string(errs.KindOf(err)))
		return nil, c.fail(op, err)
	}

	if res.Ticker == "" {
		res.Ticker = in.Ticker
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = c.now()
	}
	if gapErr := res.CheckContiguous(); gapErr != nil {
		c.log.Warn("forecast not contiguous with history",
			logger.String("ticker", res.Ticker),
			logger.Error(gapErr),
		)
	}

	c.metrics.RecordRequest(c.source.Name(), "ok")
	if n := len(res.Forecast); n > 0 {
		c.metrics.RecordLastPrice(res.Ticker, res.Forecast[n-1].Value)
	}
	c.log.Info("forecast ready",
		logger.String("ticker", res.Ticker),
		logger.Int("horizon", in.Horizon),
		logger.Int("history_points", len(res.History)),
		logger.Int("forecast_points", len(res.Forecast)),
		logger.String("source", res.Source),
		logger.Duration("duration_ms", time.Since(start)),
	)
	if c.sink != nil {
		go func(r *models.ForecastResult) {
			_ = c.sink.Submit(context.Background(), r)
		}(res)
	}
	return res, nil
}

// FetchHistory loads observed points for ticker between from and to inclusive.
func (c *ForecastController) FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]models.SeriesPoint, error) {
	const op = "history"
	ticker = strings.TrimSpace(ticker)
	if err := c.validateTicker(op, ticker); err != nil {
		return nil, c.fail(op, err)
	}
	if from.IsZero() || to.IsZero() {
		return nil, c.fail(op, errs.Validation(op, "укажите начальную и конечную даты"))
	}
	if util.DaysBetween(from, to) < 0 {
		return nil, c.fail(op, errs.Validation(op, "начальная дата должна быть раньше конечной"))
	}

	id, ctx, err := c.begin(ctx, ticker, 0)
	if err != nil {
		return nil, c.fail(op, err)
	}
	defer c.finish(id)

	start := time.Now()
	points, err := c.source.History(ctx, ticker, util.TruncateDay(from), util.TruncateDay(to))
	c.metrics.RecordLatency("history_"+c.source.Name(), time.Since(start).Seconds())
	if !c.isCurrent(id) {
		return nil, errs.Canceled(op, errors.New("superseded by a newer request"))
	}
	if err != nil {
		return nil, c.fail(op, err)
	}
	c.log.Info("history ready",
		logger.String("ticker", ticker),
		logger.Int("points", len(points)),
	)
	return points, nil
}

// State returns a copy of the current request state.
func (c *ForecastController) State() models.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Source names the active strategy.
func (c *ForecastController) Source() string { return c.source.Name() }

func (c *ForecastController) validateTicker(op, ticker string) error {
	if ticker == "" {
		return errs.Validation(op, "выберите тикер")
	}
	if c.catalog != nil && !c.catalog.Contains(ticker) {
		return errs.Validation(op, "тикер %s отсутствует в каталоге", ticker)
	}
	return nil
}

// begin claims the in-flight slot and returns a context that a superseding
// request can cancel.
func (c *ForecastController) begin(ctx context.Context, ticker string, horizon int) (string, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsLoading {
		if c.cfg.Policy != PolicySupersede {
			return "", nil, errs.Busy("forecast")
		}
		if c.cancel != nil {
			c.cancel()
		}
		c.log.Debug("superseding pending request", logger.String("id", c.state.ID))
	}

	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	c.state = models.RequestState{
		ID:          id,
		IsLoading:   true,
		Ticker:      ticker,
		HorizonDays: horizon,
		StartedAt:   c.now(),
	}
	c.cancel = cancel
	return id, ctx, nil
}

// finish clears the loading flag unless a newer request owns it.
func (c *ForecastController) finish(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ID != id {
		return
	}
	c.state.IsLoading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *ForecastController) isCurrent(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ID == id
}

func (c *ForecastController) fail(op string, err error) error {
	kind := errs.KindOf(err)
	if kind == "" {
		kind = "unknown"
	}
	c.metrics.RecordError(string(kind))
	if kind != errs.KindValidation && kind != errs.KindBusy && kind != errs.KindCanceled {
		c.log.Error(op+" failed", logger.Error(err))
	}
	return err
}
