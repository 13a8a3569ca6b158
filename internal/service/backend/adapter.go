package backend

import (
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	"FxCast/pkg/util"
)

// The backend answers in one of two shapes: columnar history/forecast
// blocks, or historical_data/forecast_data point lists. Both are
// normalized here into one ForecastResult.

type seriesPayload struct {
	Dates  []string  `json:"dates"`
	Prices []float64 `json:"prices"`
}

type pointPayload struct {
	Date         string   `json:"date"`
	Value        float64  `json:"value"`
	CurrencyPair string   `json:"currency_pair,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

type forecastResponse struct {
	Ticker         string          `json:"ticker"`
	History        *seriesPayload  `json:"history"`
	Forecast       *seriesPayload  `json:"forecast"`
	HistoricalData *[]pointPayload `json:"historical_data"`
	ForecastData   *[]pointPayload `json:"forecast_data"`
}

type historicalResponse struct {
	HistoricalData *[]pointPayload `json:"historical_data"`
}

// normalizeForecast builds the canonical result. sent is the history the
// request carried, used when the response only holds forecast_data.
func normalizeForecast(op, ticker string, resp *forecastResponse, sent []models.SeriesPoint) (*models.ForecastResult, error) {
	out := &models.ForecastResult{Ticker: ticker, Source: models.SourceRemote}
	if resp.Ticker != "" {
		out.Ticker = resp.Ticker
	}

	var err error
	switch {
	case resp.History != nil && resp.Forecast != nil:
		if out.History, err = fromColumns(op, "history", resp.History); err != nil {
			return nil, err
		}
		if out.Forecast, err = fromColumns(op, "forecast", resp.Forecast); err != nil {
			return nil, err
		}
	case resp.ForecastData != nil:
		if out.Forecast, err = fromPoints(op, "forecast_data", *resp.ForecastData); err != nil {
			return nil, err
		}
		switch {
		case resp.HistoricalData != nil:
			if out.History, err = fromPoints(op, "historical_data", *resp.HistoricalData); err != nil {
				return nil, err
			}
		case len(sent) > 0:
			out.History = append([]models.SeriesPoint(nil), sent...)
		default:
			return nil, errs.Protocol(op, "response has forecast_data but no history")
		}
	default:
		return nil, errs.Protocol(op, "response lacks history/forecast fields")
	}
	return out, nil
}

func fromColumns(op, field string, s *seriesPayload) ([]models.SeriesPoint, error) {
	if len(s.Dates) != len(s.Prices) {
		return nil, errs.Protocol(op, "%s has %d dates but %d prices", field, len(s.Dates), len(s.Prices))
	}
	points := make([]models.SeriesPoint, 0, len(s.Dates))
	for i, raw := range s.Dates {
		d, err := parseDay(raw)
		if err != nil {
			return nil, errs.Protocol(op, "%s date %d: %v", field, i, err)
		}
		points = append(points, models.SeriesPoint{Date: d, Value: s.Prices[i]})
	}
	return ordered(op, field, points)
}

func fromPoints(op, field string, raw []pointPayload) ([]models.SeriesPoint, error) {
	points := make([]models.SeriesPoint, 0, len(raw))
	for i, p := range raw {
		d, err := parseDay(p.Date)
		if err != nil {
			return nil, errs.Protocol(op, "%s point %d: %v", field, i, err)
		}
		points = append(points, models.SeriesPoint{Date: d, Value: p.Value, Confidence: p.Confidence})
	}
	return ordered(op, field, points)
}

// ordered requires strictly increasing dates.
func ordered(op, field string, points []models.SeriesPoint) ([]models.SeriesPoint, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Date.After(points[i-1].Date) {
			return nil, errs.Protocol(op, "%s dates not strictly increasing at %s", field, util.FormatDate(points[i].Date))
		}
	}
	return points, nil
}

// parseDay accepts YYYY-MM-DD optionally followed by a time component.
func parseDay(s string) (time.Time, error) {
	if len(s) > len(util.DateLayout) {
		s = s[:len(util.DateLayout)]
	}
	return util.ParseDate(s)
}

func toPayload(points []models.SeriesPoint, pair string) []pointPayload {
	out := make([]pointPayload, len(points))
	for i, p := range points {
		out[i] = pointPayload{Date: util.FormatDate(p.Date), Value: p.Value, CurrencyPair: pair}
	}
	return out
}
