package chart

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/pkg/util"

	"github.com/guregu/null/v5"
)

func point(date string, v float64) models.SeriesPoint {
	d, _ := util.ParseDate(date)
	return models.SeriesPoint{Date: d, Value: v}
}

func sample() *models.ForecastResult {
	return &models.ForecastResult{
		Ticker:   "USD_RUB",
		History:  []models.SeriesPoint{point("2024-01-01", 100), point("2024-01-02", 102)},
		Forecast: []models.SeriesPoint{point("2024-01-03", 105)},
	}
}

func values(ps []null.Float) []interface{} {
	out := make([]interface{}, len(ps))
	for i, p := range ps {
		if p.Valid {
			out[i] = p.Float64
		}
	}
	return out
}

func TestBuildFrameDuplicatesBoundary(t *testing.T) {
	f := BuildFrame(sample(), models.ViewBoth, Window{})
	if len(f.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(f.Labels))
	}
	hist := values(f.Series[0].Points)
	if len(hist) != 2 || hist[0] != 100.0 || hist[1] != 102.0 {
		t.Fatalf("unexpected history series %v", hist)
	}
	fc := values(f.Series[1].Points)
	if len(fc) != 3 || fc[0] != nil || fc[1] != 102.0 || fc[2] != 105.0 {
		t.Fatalf("unexpected forecast series %v", fc)
	}
	if f.Series[1].Color != ColorUp {
		t.Fatalf("expected up colour, got %s", f.Series[1].Color)
	}
}

func TestBuildFrameDownColourAndView(t *testing.T) {
	r := sample()
	r.Forecast[0].Value = 90
	f := BuildFrame(r, models.ViewHistorical, Window{})
	if f.Series[1].Color != ColorDown {
		t.Fatalf("expected down colour")
	}
	if f.Series[0].Hidden || !f.Series[1].Hidden {
		t.Fatalf("historical view must hide only the forecast")
	}
	// y bounds only consider the history values
	if math.Abs(f.YMin-99.8) > 1e-9 || math.Abs(f.YMax-102.2) > 1e-9 {
		t.Fatalf("unexpected y bounds %v..%v", f.YMin, f.YMax)
	}
}

func TestBuildFramePadsDates(t *testing.T) {
	f := BuildFrame(sample(), models.ViewBoth, Window{})
	if f.DateMin != "2023-12-30" || f.DateMax != "2024-01-05" {
		t.Fatalf("unexpected date bounds %s..%s", f.DateMin, f.DateMax)
	}
	if f.XMin != 0 || f.XMax != 2 {
		t.Fatalf("unexpected x range %v..%v", f.XMin, f.XMax)
	}
}

func TestBuildFrameNil(t *testing.T) {
	if !BuildFrame(nil, models.ViewBoth, Window{}).Empty() {
		t.Fatalf("expected empty frame")
	}
}

func TestZoomFromRightEdge(t *testing.T) {
	w, err := Window{}.Zoom(ZoomIn, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// floor(100/1.2)=83 visible, start 17
	if !w.Zoomed || w.Min != 17 || w.Max != 99 {
		t.Fatalf("unexpected window %+v", w)
	}
}

func TestZoomAroundCentre(t *testing.T) {
	w := Window{Min: 20, Max: 80, Zoomed: true}
	got, _ := w.Zoom(2, 100)
	if got.Min != 35 || got.Max != 65 {
		t.Fatalf("unexpected window %+v", got)
	}
	out, _ := got.Zoom(ZoomOut, 100)
	if out.Max-out.Min <= got.Max-got.Min {
		t.Fatalf("zoom out must widen the window")
	}
	wide, _ := Window{Min: 0, Max: 99, Zoomed: true}.Zoom(0.5, 100)
	if wide.Min != 0 || wide.Max != 99 {
		t.Fatalf("window must stay inside the data, got %+v", wide)
	}
}

func TestZoomRejectsBadFactor(t *testing.T) {
	if _, err := (Window{}).Zoom(0, 10); err == nil {
		t.Fatalf("expected error for zero factor")
	}
}

func TestRendererPushesFrames(t *testing.T) {
	mem := NewMemoryView()
	r := NewRenderer(MultiView{mem}, nil)
	ctx := context.Background()

	if err := r.Zoom(ctx, ZoomIn); err != nil || mem.Renders() != 0 {
		t.Fatalf("zoom without data must be a no-op")
	}
	if err := r.Render(ctx, 1, sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.SetView(ctx, models.ViewForecast); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Zoom(ctx, ZoomIn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := mem.Last()
	if mem.Renders() != 3 || last.View != models.ViewForecast || !last.Zoomed {
		t.Fatalf("unexpected state renders=%d frame=%+v", mem.Renders(), last)
	}
	if err := r.SetView(ctx, "sideways"); err == nil {
		t.Fatalf("expected error for unknown view")
	}
	if err := r.Clear(ctx, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mem.Last().Empty() || r.View() != models.ViewBoth {
		t.Fatalf("clear must drop data and restore the default view")
	}
}

func TestRendererDropsOlderGeneration(t *testing.T) {
	mem := NewMemoryView()
	r := NewRenderer(mem, nil)
	ctx := context.Background()

	newer := sample()
	newer.Ticker = "GC=F"
	if err := r.Render(ctx, 2, newer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Render(ctx, 1, sample()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Clear(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mem.Renders() != 1 || mem.Last().Ticker != "GC=F" || r.Frame().Ticker != "GC=F" {
		t.Fatalf("older generation drawn over newer: renders=%d last=%q", mem.Renders(), mem.Last().Ticker)
	}
}

// gateView blocks its first Render until release is closed.
type gateView struct {
	mu      sync.Mutex
	calls   int
	frames  []string
	entered chan struct{}
	release chan struct{}
}

func (v *gateView) Render(_ context.Context, f *models.ChartFrame) error {
	v.mu.Lock()
	v.calls++
	first := v.calls == 1
	v.mu.Unlock()
	if first {
		close(v.entered)
		<-v.release
	}
	v.mu.Lock()
	v.frames = append(v.frames, f.Ticker)
	v.mu.Unlock()
	return nil
}

func (v *gateView) last() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.frames) == 0 {
		return ""
	}
	return v.frames[len(v.frames)-1]
}

func TestRendererPushesInOrder(t *testing.T) {
	view := &gateView{entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRenderer(view, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = r.Render(ctx, 1, sample())
	}()
	<-view.entered

	newer := sample()
	newer.Ticker = "GC=F"
	go func() {
		defer wg.Done()
		_ = r.Render(ctx, 2, newer)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for r.Frame().Ticker != "GC=F" {
		if time.Now().After(deadline) {
			t.Fatalf("newer frame was never built")
		}
		time.Sleep(time.Millisecond)
	}
	close(view.release)
	wg.Wait()

	if got := view.last(); got != "GC=F" {
		t.Fatalf("view ended on %q, want GC=F", got)
	}
}
