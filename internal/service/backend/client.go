package backend

import (
	"context"
	"net/url"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	"FxCast/internal/domain/repository"
	"FxCast/pkg/config"
	"FxCast/pkg/util"
)

// Client is the remote forecast strategy backed by the ML service.
type Client struct {
	base        *HTTPServiceBase
	endpoints   endpoints
	pairMode    bool
	historyDays int
	now         func() time.Time
}

type endpoints struct {
	symbols, health, historical, forecast string
}

func NewClient(cfg *config.Config) *Client {
	ep := cfg.Backend.Endpoints
	return &Client{
		base: NewHTTPServiceBase(cfg),
		endpoints: endpoints{
			symbols:    ep.Symbols,
			health:     ep.Health,
			historical: ep.Historical,
			forecast:   ep.Forecast,
		},
		pairMode:    cfg.Backend.PairMode,
		historyDays: cfg.Forecast.HistoryDays,
		now:         time.Now,
	}
}

func (c *Client) Name() string { return models.SourceRemote }

type symbolsResponse struct {
	Symbols []models.Symbol `json:"symbols"`
}

// Symbols fetches the catalog. A response without a symbols key yields an empty catalog.
func (c *Client) Symbols(ctx context.Context) ([]models.Symbol, error) {
	var resp symbolsResponse
	if err := c.base.GetJSON(ctx, "symbols", c.endpoints.symbols, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Symbols == nil {
		return []models.Symbol{}, nil
	}
	return resp.Symbols, nil
}

// History fetches observed points for ticker in [from, to].
func (c *Client) History(ctx context.Context, ticker string, from, to time.Time) ([]models.SeriesPoint, error) {
	const op = "history"
	var resp historicalResponse
	query := map[string][]string{
		"start_date": {util.FormatDate(from)},
		"end_date":   {util.FormatDate(to)},
	}
	path := c.endpoints.historical + "/" + url.PathEscape(ticker)
	if err := c.base.GetJSON(ctx, op, path, query, &resp); err != nil {
		return nil, err
	}
	if resp.HistoricalData == nil {
		return nil, errs.Protocol(op, "response lacks historical_data")
	}
	return fromPoints(op, "historical_data", *resp.HistoricalData)
}

type tickerForecastRequest struct {
	Ticker  string `json:"ticker"`
	Horizon int    `json:"horizon"`
}

type pairForecastRequest struct {
	CurrencyPair   string         `json:"currency_pair"`
	ForecastDays   int            `json:"forecast_days"`
	HistoricalData []pointPayload `json:"historical_data"`
}

// Forecast posts the request in the configured shape and normalizes the answer.
func (c *Client) Forecast(ctx context.Context, q repository.ForecastQuery) (*models.ForecastResult, error) {
	const op = "forecast"
	var resp forecastResponse

	if !c.pairMode {
		req := tickerForecastRequest{Ticker: q.Ticker, Horizon: q.Horizon}
		if err := c.base.PostJSON(ctx, op, c.endpoints.forecast, req, &resp); err != nil {
			return nil, err
		}
		return normalizeForecast(op, q.Ticker, &resp, nil)
	}

	history := q.History
	if len(history) == 0 {
		to := util.TruncateDay(c.now())
		from := util.AddDays(to, -(c.historyDays - 1))
		var err error
		if history, err = c.History(ctx, q.Ticker, from, to); err != nil {
			return nil, err
		}
	}
	req := pairForecastRequest{
		CurrencyPair:   q.Ticker,
		ForecastDays:   q.Horizon,
		HistoricalData: toPayload(history, q.Ticker),
	}
	if err := c.base.PostJSON(ctx, op, c.endpoints.forecast, req, &resp); err != nil {
		return nil, err
	}
	return normalizeForecast(op, q.Ticker, &resp, history)
}

type healthResponse struct {
	ModelStatus *string `json:"model_status"`
}

// Health probes the backend and its model.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	const op = "health"
	var resp healthResponse
	if err := c.base.GetJSON(ctx, op, c.endpoints.health, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ModelStatus == nil {
		return nil, errs.Protocol(op, "response lacks model_status")
	}
	return &models.HealthStatus{
		ModelStatus: *resp.ModelStatus,
		Connection:  models.ConnConnected,
		CheckedAt:   c.now(),
	}, nil
}

var (
	_ repository.ForecastSource = (*Client)(nil)
	_ repository.SymbolSource   = (*Client)(nil)
	_ repository.HealthChecker  = (*Client)(nil)
)
