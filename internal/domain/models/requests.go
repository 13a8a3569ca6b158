package models

// Requests for the FxCast HTTP endpoints.

type SymbolsRequest struct {
	Query string `query:"q" json:"q"`
}

// ForecastRequest leaves the horizon range to the controller, which owns the
// configured bounds. A missing horizon is rejected; an explicit 0 reaches the range check.
type ForecastRequest struct {
	Ticker  string `json:"ticker" validate:"required"`
	Horizon *int   `json:"horizon" validate:"required"`
}

type HistoricalRequest struct {
	Ticker    string `param:"ticker" validate:"required"`
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type ChartRequest struct {
	View string `query:"view" json:"view" validate:"omitempty,oneof=historical forecast both"`
	Zoom string `query:"zoom" json:"zoom" validate:"omitempty,oneof=in out reset"`
}

type HealthRequest struct {
	Refresh bool `query:"refresh"`
}

type ZoomRequest struct {
	Direction string  `json:"direction" validate:"required,oneof=in out reset"`
	Factor    float64 `json:"factor" validate:"omitempty,gt=0"`
}

type ViewRequest struct {
	View string `json:"view" validate:"required,oneof=historical forecast both"`
}
