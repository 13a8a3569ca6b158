package repository

import (
	"context"
	"time"

	"FxCast/internal/domain/models"
)

// ForecastQuery is what a ForecastSource needs to produce a result.
// History is only consulted by sources that forecast from client-supplied data.
type ForecastQuery struct {
	Ticker  string
	Horizon int
	History []models.SeriesPoint
}

type SymbolSource interface {
	Symbols(ctx context.Context) ([]models.Symbol, error)
}

// ForecastSource is either the remote backend or the local demo generator.
type ForecastSource interface {
	Forecast(ctx context.Context, q ForecastQuery) (*models.ForecastResult, error)
	History(ctx context.Context, ticker string, from, to time.Time) ([]models.SeriesPoint, error)
	Name() string
}

type HealthChecker interface {
	Health(ctx context.Context) (*models.HealthStatus, error)
}

// ChartView draws a frame. Implementations wrap a concrete chart surface.
type ChartView interface {
	Render(ctx context.Context, frame *models.ChartFrame) error
}

// Publisher ships completed forecasts to a message bus.
type Publisher interface {
	Publish(ctx context.Context, r *models.ForecastResult) error
	Close() error
}

// Archive stores completed forecasts.
type Archive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, r *models.ForecastResult) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordRequest(source, outcome string)
	RecordError(kind string)
	RecordLastPrice(ticker string, price float64)
	RecordLatency(op string, seconds float64)
}
