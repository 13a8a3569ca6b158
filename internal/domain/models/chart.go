package models

import (
	"time"

	"github.com/guregu/null/v5"
)

type View string

const (
	ViewHistorical View = "historical"
	ViewForecast   View = "forecast"
	ViewBoth       View = "both"
)

func ParseView(s string) (View, bool) {
	switch View(s) {
	case ViewHistorical, ViewForecast, ViewBoth:
		return View(s), true
	}
	return "", false
}

// DisplaySeries is one line on the chart. Null points are gaps.
type DisplaySeries struct {
	Label  string       `json:"label"`
	Points []null.Float `json:"points"`
	Color  string       `json:"color"`
	Dashed bool         `json:"dashed"`
	Hidden bool         `json:"hidden"`
}

// ChartFrame is everything a line chart needs to draw one state.
type ChartFrame struct {
	Ticker string          `json:"ticker"`
	Labels []string        `json:"labels"`
	Series []DisplaySeries `json:"series"`
	View   View            `json:"view"`
	Zoomed bool            `json:"zoomed"`
	// XMin and XMax are fractional positions into Labels.
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	// DateMin and DateMax bound the visible dates with two days of padding.
	DateMin string  `json:"date_min,omitempty"`
	DateMax string  `json:"date_max,omitempty"`
	YMin    float64 `json:"y_min"`
	YMax    float64 `json:"y_max"`
}

// Empty reports whether the frame has nothing to draw.
func (f *ChartFrame) Empty() bool {
	return f == nil || len(f.Labels) == 0
}

type Summary struct {
	CurrentPrice      float64 `json:"current_price"`
	ForecastPrice     float64 `json:"forecast_price"`
	ChangePct         float64 `json:"change_pct"`
	AvgDailyChangePct float64 `json:"avg_daily_change_pct"`
	Volatility        float64 `json:"volatility"`
	HistoryAvg        float64 `json:"history_avg"`
	ForecastAvg       float64 `json:"forecast_avg"`
	HistoryVolatility float64 `json:"history_volatility"`
}

type ForecastDetails struct {
	Ticker        string     `json:"ticker"`
	Kind          TickerKind `json:"kind"`
	KindLabel     string     `json:"kind_label"`
	HistoryPoints int        `json:"history_points"`
	ForecastDays  int        `json:"forecast_days"`
	ForecastStart string     `json:"forecast_start,omitempty"`
	ForecastEnd   string     `json:"forecast_end,omitempty"`
	Min           float64    `json:"min"`
	Max           float64    `json:"max"`
}

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type Connection string

const (
	ConnChecking     Connection = "checking"
	ConnConnected    Connection = "connected"
	ConnDisconnected Connection = "disconnected"
)

type HealthStatus struct {
	ModelStatus string     `json:"model_status"`
	Connection  Connection `json:"connection"`
	Demo        bool       `json:"demo"`
	CheckedAt   time.Time  `json:"checked_at"`
	Error       string     `json:"error,omitempty"`
	// Sink is "ok" or "unavailable" when a result sink is probed.
	Sink string `json:"sink,omitempty"`
}
