package stats

import (
	"FxCast/internal/domain/models"
	"FxCast/pkg/util"
)

// Summarize derives the display metrics from the history and forecast prices.
func Summarize(history, forecast []float64) models.Summary {
	s := models.Summary{
		HistoryAvg:        Mean(history),
		ForecastAvg:       Mean(forecast),
		HistoryVolatility: Volatility(history),
		Volatility:        Volatility(forecast),
	}
	if len(history) > 0 {
		s.CurrentPrice = history[len(history)-1]
	}
	if len(forecast) > 0 {
		s.ForecastPrice = forecast[len(forecast)-1]
		if s.CurrentPrice != 0 {
			s.ChangePct = (s.ForecastPrice - s.CurrentPrice) / s.CurrentPrice * 100
			s.AvgDailyChangePct = s.ChangePct / float64(len(forecast))
		}
	}
	return s
}

// Details describes the forecast window of r.
func Details(r *models.ForecastResult) models.ForecastDetails {
	kind := models.ClassifyTicker(r.Ticker)
	d := models.ForecastDetails{
		Ticker:        r.Ticker,
		Kind:          kind,
		KindLabel:     kind.Label(),
		HistoryPoints: len(r.History),
		ForecastDays:  len(r.Forecast),
	}
	if len(r.Forecast) > 0 {
		d.ForecastStart = util.FormatDate(r.Forecast[0].Date)
		d.ForecastEnd = util.FormatDate(r.Forecast[len(r.Forecast)-1].Date)
		d.Min, d.Max = MinMax(r.ForecastPrices())
	}
	return d
}
