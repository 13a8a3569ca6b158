package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/repository"
	"FxCast/pkg/config"
	"FxCast/pkg/util"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.Backend.DemoMode = false
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.Timeout = 200 * time.Millisecond
	return NewClient(cfg)
}

func TestForecastColumnarShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/forecast" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["ticker"] != "USD_RUB" || body["horizon"] != float64(5) {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"ticker":"USD_RUB",
			"history":{"dates":["2024-01-01","2024-01-02"],"prices":[100,102]},
			"forecast":{"dates":["2024-01-03"],"prices":[105]}}`))
	})

	res, err := c.Forecast(context.Background(), repository.ForecastQuery{Ticker: "USD_RUB", Horizon: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.History) != 2 || len(res.Forecast) != 1 {
		t.Fatalf("unexpected lengths %d/%d", len(res.History), len(res.Forecast))
	}
	if util.FormatDate(res.Forecast[0].Date) != "2024-01-03" || res.Forecast[0].Value != 105 {
		t.Fatalf("unexpected forecast point %+v", res.Forecast[0])
	}
	if res.Source != "remote" {
		t.Fatalf("unexpected source %q", res.Source)
	}
}

func TestForecastMissingFieldsIsProtocolError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ticker":"AAPL","history":{"dates":[],"prices":[]}}`))
	})
	_, err := c.Forecast(context.Background(), repository.ForecastQuery{Ticker: "AAPL", Horizon: 5})
	if !errors.Is(err, errs.ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestForecastMismatchedColumnsIsProtocolError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"history":{"dates":["2024-01-01"],"prices":[1,2]},"forecast":{"dates":[],"prices":[]}}`))
	})
	_, err := c.Forecast(context.Background(), repository.ForecastQuery{Ticker: "AAPL", Horizon: 5})
	if !errors.Is(err, errs.ErrProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestForecastServerErrorCarriesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})
	_, err := c.Forecast(context.Background(), repository.ForecastQuery{Ticker: "AAPL", Horizon: 5})
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.KindServer {
		t.Fatalf("expected server error, got %v", err)
	}
	if e.Status != http.StatusInternalServerError || e.Detail != "HTTP 500: model not loaded" {
		t.Fatalf("unexpected server error %+v", e)
	}
}

func TestForecastTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	_, err := c.Forecast(context.Background(), repository.ForecastQuery{Ticker: "AAPL", Horizon: 5})
	if !errors.Is(err, errs.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestForecastCanceledByCaller(t *testing.T) {
	stop := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-stop:
		}
	})
	// Runs before the server is closed.
	t.Cleanup(func() { close(stop) })
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Forecast(ctx, repository.ForecastQuery{Ticker: "AAPL", Horizon: 5})
	if !errors.Is(err, errs.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
}

func TestNetworkErrorWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.Default()
	cfg.Backend.DemoMode = false
	cfg.Backend.BaseURL = url
	c := NewClient(cfg)

	_, err := c.Symbols(context.Background())
	if !errors.Is(err, errs.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestPairModeSendsHistoryAndUsesForecastData(t *testing.T) {
	var got pairForecastRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/historical/USD_RUB":
			if r.URL.Query().Get("start_date") == "" || r.URL.Query().Get("end_date") == "" {
				t.Errorf("missing date range in %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"historical_data":[
				{"date":"2024-01-01","value":90,"currency_pair":"USD_RUB"},
				{"date":"2024-01-02","value":91,"currency_pair":"USD_RUB"}]}`))
		case "/api/forecast":
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"forecast_data":[
				{"date":"2024-01-03","value":92,"confidence":0.85},
				{"date":"2024-01-04","value":93,"confidence":0.84},
				{"date":"2024-01-05","value":94,"confidence":0.83}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	c.pairMode = true

	res, err := c.Forecast(context.Background(), repository.ForecastQuery{Ticker: "USD_RUB", Horizon: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CurrencyPair != "USD_RUB" || got.ForecastDays != 3 || len(got.HistoricalData) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(res.History) != 2 || len(res.Forecast) != 3 {
		t.Fatalf("unexpected lengths %d/%d", len(res.History), len(res.Forecast))
	}
	if res.Forecast[0].Confidence == nil || *res.Forecast[0].Confidence != 0.85 {
		t.Fatalf("expected confidence on forecast points")
	}
	if err := res.CheckContiguous(); err != nil {
		t.Fatalf("expected contiguous result: %v", err)
	}
}

func TestSymbolsMissingKeyIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	syms, err := c.Symbols(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if syms == nil || len(syms) != 0 {
		t.Fatalf("expected empty catalog, got %v", syms)
	}
}

func TestHistoryEscapesTicker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/historical/%5EGSPC" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{"historical_data":[]}`))
	})
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts, err := c.History(context.Background(), "^GSPC", from, from.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts) != 0 {
		t.Fatalf("expected no points")
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model_status":"loaded"}`))
	})
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ModelStatus != "loaded" || h.Connection != "connected" {
		t.Fatalf("unexpected health %+v", h)
	}
}
