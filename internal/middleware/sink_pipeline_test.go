package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/pkg/metrics"
)

type flakyProc struct {
	mu    sync.Mutex
	fails int
	got   []string
}

func (f *flakyProc) Process(_ context.Context, r *models.ForecastResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("sink down")
	}
	f.got = append(f.got, r.Ticker)
	return nil
}

func (f *flakyProc) delivered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func TestSubmitDelivers(t *testing.T) {
	proc := &flakyProc{}
	p := NewSinkPipeline(proc, metrics.Nop{})
	if err := p.Submit(context.Background(), &models.ForecastResult{Ticker: "AAPL"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.delivered() != 1 || p.Pending() != 0 {
		t.Fatalf("expected direct delivery")
	}
}

func TestSubmitRejectsInvalid(t *testing.T) {
	p := NewSinkPipeline(&flakyProc{}, metrics.Nop{})
	if err := p.Submit(context.Background(), &models.ForecastResult{}); err == nil {
		t.Fatalf("expected error for empty ticker")
	}
}

func TestFailedDeliveryIsRetried(t *testing.T) {
	proc := &flakyProc{fails: 1}
	p := NewSinkPipeline(proc, metrics.Nop{}, WithBufferSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Submit(ctx, &models.ForecastResult{Ticker: "AAPL"}); err == nil {
		t.Fatalf("expected first delivery to fail")
	}
	if p.Pending() != 1 {
		t.Fatalf("expected buffered result")
	}
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for proc.delivered() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if proc.delivered() != 1 {
		t.Fatalf("expected buffered result to be delivered")
	}
}

func TestBufferFullDrops(t *testing.T) {
	proc := &flakyProc{fails: 10}
	p := NewSinkPipeline(proc, metrics.Nop{}, WithBufferSize(1))
	_ = p.Submit(context.Background(), &models.ForecastResult{Ticker: "A"})
	_ = p.Submit(context.Background(), &models.ForecastResult{Ticker: "B"})
	if p.Pending() != 1 {
		t.Fatalf("expected buffer capped at 1, got %d", p.Pending())
	}
}

type probedProc struct {
	flakyProc
	err error
}

func (p *probedProc) Health(context.Context) error { return p.err }

func TestPipelineHealthDelegates(t *testing.T) {
	if err := NewSinkPipeline(&flakyProc{}, metrics.Nop{}).Health(context.Background()); err != nil {
		t.Fatalf("processor without probe must be healthy, got %v", err)
	}
	p := NewSinkPipeline(&probedProc{err: errors.New("down")}, metrics.Nop{})
	if err := p.Health(context.Background()); err == nil {
		t.Fatalf("expected probe error")
	}
}
