package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FxCast/internal/service/ratelimit"
	"FxCast/internal/services/chart"
	"FxCast/internal/services/demo"
	"FxCast/internal/usecase"
	"FxCast/pkg/config"
	"FxCast/pkg/metrics"

	"github.com/labstack/echo/v4"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, rl *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	return newTestServerWithConfig(t, config.Default(), rl)
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config, rl *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	cfg.Demo.HistoryDelay = 0
	cfg.Demo.ForecastDelay = 0
	cfg.Demo.ConnectDelay = 0
	src := demo.NewSource(cfg, demo.NewGenerator(11))

	catalog := usecase.NewCatalogLoader(src, nil, time.Minute, nil)
	ctrl := usecase.NewForecastController(catalog, src, metrics.Nop{}, nil, nil, usecase.ControllerConfig{
		MinHorizon: cfg.Forecast.MinHorizon,
		MaxHorizon: cfg.Forecast.MaxHorizon,
	})
	session := usecase.NewSession(
		catalog,
		ctrl,
		chart.NewRenderer(chart.NewMemoryView(), nil),
		usecase.NewNotifier(time.Minute),
		usecase.NewHealthMonitor(src, true, time.Second, nil),
		usecase.SessionDefaults{Ticker: "USD_RUB", Horizon: 14},
		nil,
	)
	if err := session.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	e := echo.New()
	NewForecastEchoHandler(nil, session, rl, nil, cfg.Forecast.HistoryDays).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec, env
}

func TestSymbolsFiltered(t *testing.T) {
	e := newTestServer(t, nil)
	_, env := do(t, e, http.MethodGet, "/api/symbols?q=rub", "")
	if env.Status != http.StatusOK {
		t.Fatalf("unexpected status %d", env.Status)
	}
	var syms []struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(env.Data, &syms); err != nil {
		t.Fatalf("decode symbols: %v", err)
	}
	if len(syms) == 0 {
		t.Fatalf("expected rub symbols")
	}
	for _, s := range syms {
		if !strings.Contains(strings.ToLower(s.Value), "rub") {
			t.Fatalf("unexpected symbol %s", s.Value)
		}
	}
}

func TestForecastEndpoint(t *testing.T) {
	e := newTestServer(t, nil)
	_, env := do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"USD_RUB","horizon":7}`)
	if env.Status != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", env.Status, env.Data)
	}
	var body struct {
		Result struct {
			Forecast []json.RawMessage `json:"forecast"`
		} `json:"result"`
		Summary *struct {
			ForecastPrice float64 `json:"forecast_price"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Result.Forecast) != 7 || body.Summary == nil || body.Summary.ForecastPrice == 0 {
		t.Fatalf("unexpected forecast body %s", env.Data)
	}

	_, env = do(t, e, http.MethodGet, "/api/chart", "")
	var frame struct {
		Labels []string `json:"labels"`
	}
	_ = json.Unmarshal(env.Data, &frame)
	if len(frame.Labels) == 0 {
		t.Fatalf("chart frame empty after forecast")
	}
}

func TestForecastValidation(t *testing.T) {
	e := newTestServer(t, nil)
	cases := []string{
		`{"ticker":"","horizon":7}`,
		`{"ticker":"USD_RUB","horizon":2}`,
		`{"ticker":"USD_RUB","horizon":31}`,
		`{"ticker":"USD_RUB","horizon":0}`,
		`{"ticker":"USD_RUB"}`,
	}
	for _, body := range cases {
		_, env := do(t, e, http.MethodPost, "/api/forecast", body)
		if env.Status != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, env.Status)
		}
	}

	_, env := do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"NOPE","horizon":7}`)
	if env.Status != http.StatusBadRequest || !strings.Contains(string(env.Data), "ERR_VALIDATION") {
		t.Fatalf("unknown ticker: got %d %s", env.Status, env.Data)
	}
}

func TestForecastHorizonFollowsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.MaxHorizon = 45
	e := newTestServerWithConfig(t, cfg, nil)

	_, env := do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"USD_RUB","horizon":40}`)
	if env.Status != http.StatusOK {
		t.Fatalf("horizon inside configured bounds: got %d %s", env.Status, env.Data)
	}
	_, env = do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"USD_RUB","horizon":46}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("horizon above configured bound: got %d", env.Status)
	}
}

func TestForecastRateLimited(t *testing.T) {
	rl := ratelimit.New(1, 0.0001)
	e := newTestServer(t, rl)
	_, env := do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"USD_RUB","horizon":3}`)
	if env.Status != http.StatusOK {
		t.Fatalf("first request: %d", env.Status)
	}
	_, env = do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"USD_RUB","horizon":3}`)
	if env.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", env.Status)
	}
}

func TestExportAndReset(t *testing.T) {
	e := newTestServer(t, nil)
	_, env := do(t, e, http.MethodGet, "/api/export.csv", "")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("export without data: expected 400, got %d", env.Status)
	}

	do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"EUR_USD","horizon":3}`)
	rec, _ := do(t, e, http.MethodGet, "/api/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "EUR_USD_forecast_") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !strings.HasPrefix(rec.Body.String(), "Дата,Тип,Цена") {
		t.Fatalf("unexpected csv header %q", rec.Body.String())
	}

	_, env = do(t, e, http.MethodPost, "/api/reset", "")
	var snap struct {
		Ticker  string `json:"ticker"`
		Horizon int    `json:"horizon"`
		View    string `json:"view"`
	}
	_ = json.Unmarshal(env.Data, &snap)
	if snap.Ticker != "USD_RUB" || snap.Horizon != 14 || snap.View != "both" {
		t.Fatalf("reset did not restore defaults: %+v", snap)
	}
}

func TestChartViewAndZoom(t *testing.T) {
	e := newTestServer(t, nil)
	do(t, e, http.MethodPost, "/api/forecast", `{"ticker":"USD_RUB","horizon":5}`)

	_, env := do(t, e, http.MethodPost, "/api/chart/view", `{"view":"sideways"}`)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown view, got %d", env.Status)
	}
	_, env = do(t, e, http.MethodPost, "/api/chart/view", `{"view":"forecast"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("set view: %d", env.Status)
	}
	_, env = do(t, e, http.MethodPost, "/api/chart/zoom", `{"direction":"in"}`)
	var frame struct {
		Zoomed bool   `json:"zoomed"`
		View   string `json:"view"`
	}
	_ = json.Unmarshal(env.Data, &frame)
	if !frame.Zoomed || frame.View != "forecast" {
		t.Fatalf("unexpected frame %+v", frame)
	}
	_, env = do(t, e, http.MethodPost, "/api/chart/zoom", `{"direction":"reset"}`)
	_ = json.Unmarshal(env.Data, &frame)
	if frame.Zoomed {
		t.Fatalf("zoom not reset")
	}
}

func TestHistoricalAndNotifications(t *testing.T) {
	e := newTestServer(t, nil)
	_, env := do(t, e, http.MethodGet, "/api/historical/USD_RUB?start_date=2024-01-10&end_date=2024-01-01", "")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("reversed range: expected 400, got %d", env.Status)
	}
	_, env = do(t, e, http.MethodGet, "/api/historical/USD_RUB?start_date=2024-01-01&end_date=2024-01-10", "")
	if env.Status != http.StatusOK {
		t.Fatalf("historical: %d %s", env.Status, env.Data)
	}
	var body struct {
		Points []json.RawMessage `json:"historical_data"`
	}
	_ = json.Unmarshal(env.Data, &body)
	if len(body.Points) != 10 {
		t.Fatalf("expected 10 points, got %d", len(body.Points))
	}

	_, env = do(t, e, http.MethodGet, "/api/notifications", "")
	var notes []struct {
		Level string `json:"level"`
	}
	_ = json.Unmarshal(env.Data, &notes)
	if len(notes) != 2 || notes[0].Level != "error" || notes[1].Level != "success" {
		t.Fatalf("unexpected notifications %+v", notes)
	}
}
