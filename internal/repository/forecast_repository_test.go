package repository

import (
	"encoding/json"
	"testing"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/pkg/util"
)

func sampleResult() *models.ForecastResult {
	d1, _ := util.ParseDate("2024-01-01")
	d2, _ := util.ParseDate("2024-01-02")
	conf := 0.85
	return &models.ForecastResult{
		Ticker:    "USD_RUB",
		Source:    models.SourceDemo,
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		History:   []models.SeriesPoint{{Date: d1, Value: 90}},
		Forecast:  []models.SeriesPoint{{Date: d2, Value: 91, Confidence: &conf}},
	}
}

func TestArchiveRows(t *testing.T) {
	values, args := archiveRows(sampleResult())
	if len(values) != 2 || len(args) != 14 {
		t.Fatalf("unexpected rows %d args %d", len(values), len(args))
	}
	if args[3] != KindHistory || args[10] != KindForecast {
		t.Fatalf("unexpected kinds %v %v", args[3], args[10])
	}
	if args[6] != nil {
		t.Fatalf("history confidence must be NULL, got %v", args[6])
	}
	if args[13] != 0.85 {
		t.Fatalf("unexpected forecast confidence %v", args[13])
	}
}

func TestArchiveRowsNil(t *testing.T) {
	if v, a := archiveRows(nil); v != nil || a != nil {
		t.Fatalf("expected no rows")
	}
}

func TestForecastEvent(t *testing.T) {
	ev := NewForecastEvent(sampleResult())
	if ev.LastClose != 90 || ev.Start != "2024-01-02" || ev.End != "2024-01-02" {
		t.Fatalf("unexpected event %+v", ev)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]interface{}
	_ = json.Unmarshal(b, &back)
	pts := back["forecast"].([]interface{})
	if pts[0].(map[string]interface{})["date"] != "2024-01-02" {
		t.Fatalf("forecast dates must be calendar dates: %s", b)
	}
}
