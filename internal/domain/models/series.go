package models

import (
	"encoding/json"
	"fmt"
	"time"

	"FxCast/pkg/util"
)

const (
	SourceRemote = "remote"
	SourceDemo   = "demo"
)

// SeriesPoint is a single dated value. Forecast points may carry a confidence.
type SeriesPoint struct {
	Date       time.Time
	Value      float64
	Confidence *float64
}

type seriesPointJSON struct {
	Date       string   `json:"date"`
	Value      float64  `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (p SeriesPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(seriesPointJSON{
		Date:       util.FormatDate(p.Date),
		Value:      p.Value,
		Confidence: p.Confidence,
	})
}

func (p *SeriesPoint) UnmarshalJSON(b []byte) error {
	var raw seriesPointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := util.ParseDate(raw.Date)
	if err != nil {
		return err
	}
	p.Date, p.Value, p.Confidence = d, raw.Value, raw.Confidence
	return nil
}

// ForecastResult is the canonical history+forecast pair every source produces.
type ForecastResult struct {
	Ticker    string        `json:"ticker"`
	History   []SeriesPoint `json:"history"`
	Forecast  []SeriesPoint `json:"forecast"`
	Source    string        `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}

// Prices extracts the values of a series in order.
func Prices(points []SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func (r *ForecastResult) HistoryPrices() []float64  { return Prices(r.History) }
func (r *ForecastResult) ForecastPrices() []float64 { return Prices(r.Forecast) }

// CheckContiguous verifies the first forecast date is exactly one day after the last history date.
func (r *ForecastResult) CheckContiguous() error {
	if len(r.History) == 0 || len(r.Forecast) == 0 {
		return nil
	}
	last := r.History[len(r.History)-1].Date
	first := r.Forecast[0].Date
	if util.DaysBetween(last, first) != 1 {
		return fmt.Errorf("forecast starts %s, expected day after %s",
			util.FormatDate(first), util.FormatDate(last))
	}
	return nil
}

// RequestState describes the one logical request in flight.
type RequestState struct {
	ID          string    `json:"id,omitempty"`
	IsLoading   bool      `json:"is_loading"`
	Ticker      string    `json:"ticker,omitempty"`
	HorizonDays int       `json:"horizon_days,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}
