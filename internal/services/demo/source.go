package demo

import (
	"context"
	"errors"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	"FxCast/internal/domain/repository"
	"FxCast/pkg/config"
	"FxCast/pkg/util"
)

// Catalog is offered when no backend is configured.
var Catalog = []models.Symbol{
	{Value: "USD_RUB", Label: "USD/RUB (Доллар/Рубль)"},
	{Value: "EUR_RUB", Label: "EUR/RUB (Евро/Рубль)"},
	{Value: "EUR_USD", Label: "EUR/USD (Евро/Доллар)"},
	{Value: "GBP_USD", Label: "GBP/USD (Фунт/Доллар)"},
	{Value: "CNY_RUB", Label: "CNY/RUB (Юань/Рубль)"},
	{Value: "AAPL", Label: "Apple Inc. (AAPL)"},
	{Value: "MSFT", Label: "Microsoft (MSFT)"},
	{Value: "GOOGL", Label: "Alphabet Class A (GOOGL)"},
	{Value: "AMZN", Label: "Amazon (AMZN)"},
	{Value: "SPY", Label: "SPDR S&P 500 ETF (SPY)"},
	{Value: "^GSPC", Label: "S&P 500 Index (^GSPC)"},
	{Value: "USDRUB=X", Label: "USD/RUB (Доллар/Рубль)"},
	{Value: "EURUSD=X", Label: "EUR/USD (Евро/Доллар)"},
	{Value: "GBPUSD=X", Label: "GBP/USD (Фунт/Доллар)"},
	{Value: "GC=F", Label: "Gold Futures (GC=F)"},
	{Value: "BZ=F", Label: "Brent Crude Oil (BZ=F)"},
}

// Source is the demo strategy. It sleeps like the real backend would.
type Source struct {
	gen           *Generator
	historyDays   int
	historyDelay  time.Duration
	forecastDelay time.Duration
	connectDelay  time.Duration
	now           func() time.Time
}

func NewSource(cfg *config.Config, gen *Generator) *Source {
	return &Source{
		gen:           gen,
		historyDays:   cfg.Forecast.HistoryDays,
		historyDelay:  cfg.Demo.HistoryDelay,
		forecastDelay: cfg.Demo.ForecastDelay,
		connectDelay:  cfg.Demo.ConnectDelay,
		now:           time.Now,
	}
}

// WithClock replaces the time source.
func (s *Source) WithClock(now func() time.Time) *Source {
	s.now = now
	return s
}

func (s *Source) Name() string { return models.SourceDemo }

func (s *Source) Symbols(ctx context.Context) ([]models.Symbol, error) {
	if err := sleep(ctx, "symbols", 0); err != nil {
		return nil, err
	}
	return append([]models.Symbol(nil), Catalog...), nil
}

func (s *Source) History(ctx context.Context, ticker string, from, to time.Time) ([]models.SeriesPoint, error) {
	if err := sleep(ctx, "history", s.historyDelay); err != nil {
		return nil, err
	}
	return s.gen.History(from, to), nil
}

// Forecast walks forward from q.History, or from a fresh synthetic history
// ending today when none is supplied.
func (s *Source) Forecast(ctx context.Context, q repository.ForecastQuery) (*models.ForecastResult, error) {
	if err := sleep(ctx, "forecast", s.forecastDelay); err != nil {
		return nil, err
	}
	history := q.History
	if len(history) == 0 {
		to := util.TruncateDay(s.now())
		history = s.gen.History(util.AddDays(to, -(s.historyDays-1)), to)
	}
	return &models.ForecastResult{
		Ticker:    q.Ticker,
		History:   history,
		Forecast:  s.gen.Forecast(history, q.Horizon),
		Source:    models.SourceDemo,
		CreatedAt: s.now(),
	}, nil
}

func (s *Source) Health(ctx context.Context) (*models.HealthStatus, error) {
	if err := sleep(ctx, "health", s.connectDelay); err != nil {
		return nil, err
	}
	return &models.HealthStatus{
		ModelStatus: "demo",
		Connection:  models.ConnConnected,
		Demo:        true,
		CheckedAt:   s.now(),
	}, nil
}

// sleep waits d, returning early with a taxonomy error when ctx ends.
func sleep(ctx context.Context, op string, d time.Duration) error {
	if d <= 0 {
		return ctxErr(op, ctx.Err())
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctxErr(op, ctx.Err())
	}
}

func ctxErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Timeout(op, err)
	default:
		return errs.Canceled(op, err)
	}
}

var (
	_ repository.ForecastSource = (*Source)(nil)
	_ repository.SymbolSource   = (*Source)(nil)
	_ repository.HealthChecker  = (*Source)(nil)
)
