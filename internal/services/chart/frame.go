package chart

import (
	"math"

	"FxCast/internal/domain/models"
	"FxCast/pkg/util"

	"github.com/guregu/null/v5"
)

const (
	ColorHistory = "#3b82f6"
	ColorUp      = "#10b981"
	ColorDown    = "#ef4444"

	LabelHistory  = "История"
	LabelForecast = "Прогноз"

	axisPadding = 0.1
	datePadDays = 2
)

// BuildFrame shapes a result into display series.
//
// The history series holds one value per history date. The forecast series
// spans every label: nulls before the split, then the last history value
// repeated so the two lines join, then the forecast values.
func BuildFrame(r *models.ForecastResult, view models.View, w Window) *models.ChartFrame {
	f := &models.ChartFrame{View: view, Zoomed: w.Zoomed}
	if r == nil {
		return f
	}
	f.Ticker = r.Ticker

	h, n := len(r.History), len(r.Forecast)
	f.Labels = make([]string, 0, h+n)
	for _, p := range r.History {
		f.Labels = append(f.Labels, util.FormatDate(p.Date))
	}
	for _, p := range r.Forecast {
		f.Labels = append(f.Labels, util.FormatDate(p.Date))
	}

	history := models.DisplaySeries{
		Label:  LabelHistory,
		Points: make([]null.Float, h),
		Color:  ColorHistory,
		Hidden: view == models.ViewForecast,
	}
	for i, p := range r.History {
		history.Points[i] = null.FloatFrom(p.Value)
	}

	forecast := models.DisplaySeries{
		Label:  LabelForecast,
		Color:  ForecastColor(r),
		Dashed: true,
		Hidden: view == models.ViewHistorical,
	}
	if n > 0 {
		forecast.Points = make([]null.Float, h+n)
		if h > 0 {
			forecast.Points[h-1] = null.FloatFrom(r.History[h-1].Value)
		}
		for i, p := range r.Forecast {
			forecast.Points[h+i] = null.FloatFrom(p.Value)
		}
	}
	f.Series = []models.DisplaySeries{history, forecast}

	if !w.Zoomed {
		w = Full(len(f.Labels))
	}
	f.XMin, f.XMax = w.Min, w.Max
	f.DateMin, f.DateMax = dateBounds(f.Labels, w)
	f.YMin, f.YMax = valueBounds(f.Series)
	return f
}

// ForecastColor is green when the forecast ends at or above the last observed value.
func ForecastColor(r *models.ForecastResult) string {
	if len(r.History) == 0 || len(r.Forecast) == 0 {
		return ColorUp
	}
	if r.Forecast[len(r.Forecast)-1].Value >= r.History[len(r.History)-1].Value {
		return ColorUp
	}
	return ColorDown
}

func dateBounds(labels []string, w Window) (string, string) {
	if len(labels) == 0 {
		return "", ""
	}
	lo := int(math.Floor(w.Min))
	hi := int(math.Ceil(w.Max))
	if hi > len(labels)-1 {
		hi = len(labels) - 1
	}
	first, err1 := util.ParseDate(labels[lo])
	last, err2 := util.ParseDate(labels[hi])
	if err1 != nil || err2 != nil {
		return labels[lo], labels[hi]
	}
	return util.FormatDate(util.AddDays(first, -datePadDays)), util.FormatDate(util.AddDays(last, datePadDays))
}

// valueBounds pads the visible value range by 10% on each side.
func valueBounds(series []models.DisplaySeries) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if s.Hidden {
			continue
		}
		for _, p := range s.Points {
			if !p.Valid {
				continue
			}
			lo = math.Min(lo, p.Float64)
			hi = math.Max(hi, p.Float64)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	pad := (hi - lo) * axisPadding
	if pad == 0 {
		pad = math.Abs(hi) * axisPadding
	}
	return lo - pad, hi + pad
}
