package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	drepo "FxCast/internal/domain/repository"
	"FxCast/internal/services/chart"
	"FxCast/pkg/metrics"
)

func newSession(t *testing.T, src *stubSource) (*Session, *chart.MemoryView) {
	t.Helper()
	view := chart.NewMemoryView()
	return newSessionWithView(t, src, view), view
}

func newSessionWithView(t *testing.T, src *stubSource, view drepo.ChartView) *Session {
	t.Helper()
	catalog := NewCatalogLoader(src, nil, time.Minute, nil)
	ctrl := NewForecastController(catalog, src, metrics.Nop{}, nil, nil, ControllerConfig{MinHorizon: 3, MaxHorizon: 30})
	return NewSession(
		catalog,
		ctrl,
		chart.NewRenderer(view, nil),
		NewNotifier(time.Minute),
		NewHealthMonitor(stubChecker{status: "ok"}, false, time.Second, nil),
		SessionDefaults{Ticker: "USD_RUB", Horizon: 14},
		nil,
	)
}

func TestSessionBootstrapAndForecast(t *testing.T) {
	s, view := newSession(t, &stubSource{})
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.Health().Connection != models.ConnConnected {
		t.Fatalf("health not probed")
	}

	res, err := s.Forecast(context.Background(), "AAPL", 5)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	snap := s.Snapshot()
	if snap.Ticker != "AAPL" || snap.Horizon != 5 || len(snap.Forecast) != len(res.Forecast) {
		t.Fatalf("snapshot not updated: %+v", snap)
	}
	if snap.Summary == nil || snap.Summary.CurrentPrice != 104 || snap.Summary.ForecastPrice != 109 {
		t.Fatalf("unexpected summary %+v", snap.Summary)
	}
	if snap.Details == nil || snap.Details.ForecastDays != 5 {
		t.Fatalf("unexpected details %+v", snap.Details)
	}
	if view.Last().Empty() {
		t.Fatalf("chart not rendered")
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Level != models.LevelSuccess {
		t.Fatalf("expected success notification, got %+v", snap.Notifications)
	}
}

func TestSessionBootstrapFailureNotifies(t *testing.T) {
	s, _ := newSession(t, &stubSource{symErr: errors.New("down")})
	if err := s.Bootstrap(context.Background()); !errors.Is(err, errs.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	n := s.Notifications()
	if len(n) != 1 || n[0].Level != models.LevelError {
		t.Fatalf("expected error notification, got %+v", n)
	}
}

func TestSessionValidationErrorNotifies(t *testing.T) {
	s, _ := newSession(t, &stubSource{})
	_ = s.Bootstrap(context.Background())
	if _, err := s.Forecast(context.Background(), "AAPL", 40); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	n := s.Notifications()
	if len(n) != 1 || n[0].Level != models.LevelError {
		t.Fatalf("expected error notification, got %+v", n)
	}
}

func TestSessionResetRestoresDefaults(t *testing.T) {
	src := &stubSource{hold: make(chan struct{}), started: make(chan struct{})}
	s, view := newSession(t, src)
	_ = s.Bootstrap(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Forecast(context.Background(), "AAPL", 5)
		done <- err
	}()
	<-src.started
	if err := s.Reset(context.Background()); !errors.Is(err, errs.ErrBusy) {
		t.Fatalf("expected reset refused while loading, got %v", err)
	}
	close(src.hold)
	if err := <-done; err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if err := s.SetView(context.Background(), models.ViewForecast); err != nil {
		t.Fatalf("set view: %v", err)
	}

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap := s.Snapshot()
	if snap.Ticker != "USD_RUB" || snap.Horizon != 14 || snap.View != models.ViewBoth {
		t.Fatalf("defaults not restored: %+v", snap)
	}
	if len(snap.History) != 0 || len(snap.Forecast) != 0 || snap.Summary != nil {
		t.Fatalf("data not cleared: %+v", snap)
	}
	if !view.Last().Empty() {
		t.Fatalf("chart not cleared")
	}
}

func TestSessionExport(t *testing.T) {
	s, _ := newSession(t, &stubSource{})
	_ = s.Bootstrap(context.Background())

	var buf bytes.Buffer
	if _, err := s.Export(&buf); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error without data, got %v", err)
	}
	if _, err := s.Forecast(context.Background(), "AAPL", 3); err != nil {
		t.Fatalf("forecast: %v", err)
	}
	name, err := s.Export(&buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(name, "AAPL_forecast_") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("unexpected filename %q", name)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1+5+3 {
		t.Fatalf("expected 9 csv lines, got %d", len(lines))
	}
}

func TestSessionIgnoresOlderResult(t *testing.T) {
	s, _ := newSession(t, &stubSource{})
	newer := &models.ForecastResult{Ticker: "GC=F"}
	older := &models.ForecastResult{Ticker: "AAPL"}
	if !s.apply(2, "GC=F", 5, newer) {
		t.Fatalf("newer result rejected")
	}
	if s.apply(1, "AAPL", 5, older) {
		t.Fatalf("older result applied over newer one")
	}
	if s.Snapshot().Ticker != "GC=F" {
		t.Fatalf("state overwritten by stale result")
	}
}

func TestSessionHistoryFeedsForecast(t *testing.T) {
	s, _ := newSession(t, &stubSource{})
	_ = s.Bootstrap(context.Background())
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts, err := s.History(context.Background(), "USD_RUB", from, from.AddDate(0, 0, 9))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(pts) != 10 {
		t.Fatalf("expected 10 points, got %d", len(pts))
	}
	snap := s.Snapshot()
	if len(snap.History) != 10 || len(snap.Forecast) != 0 || snap.Summary != nil {
		t.Fatalf("unexpected snapshot after history: %+v", snap)
	}
}

// slowView holds its first frame until release is closed.
type slowView struct {
	mu      sync.Mutex
	calls   int
	last    string
	entered chan struct{}
	release chan struct{}
}

func (v *slowView) Render(_ context.Context, f *models.ChartFrame) error {
	v.mu.Lock()
	v.calls++
	first := v.calls == 1
	v.mu.Unlock()
	if first {
		close(v.entered)
		<-v.release
	}
	v.mu.Lock()
	v.last = f.Ticker
	v.mu.Unlock()
	return nil
}

func TestSessionSlowRenderKeepsNewestChart(t *testing.T) {
	view := &slowView{entered: make(chan struct{}), release: make(chan struct{})}
	s := newSessionWithView(t, &stubSource{}, view)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	first := make(chan error, 1)
	go func() {
		_, err := s.Forecast(context.Background(), "AAPL", 5)
		first <- err
	}()
	<-view.entered

	second := make(chan error, 1)
	go func() {
		_, err := s.Forecast(context.Background(), "GC=F", 5)
		second <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for s.Chart().Ticker != "GC=F" {
		if time.Now().After(deadline) {
			t.Fatalf("second forecast never reached the chart")
		}
		time.Sleep(time.Millisecond)
	}
	close(view.release)
	if err := <-first; err != nil {
		t.Fatalf("first forecast: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second forecast: %v", err)
	}

	view.mu.Lock()
	last := view.last
	view.mu.Unlock()
	if s.Snapshot().Ticker != "GC=F" || last != "GC=F" {
		t.Fatalf("session ticker=%s, chart shows %s", s.Snapshot().Ticker, last)
	}
}
