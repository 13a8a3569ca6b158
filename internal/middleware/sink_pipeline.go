package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FxCast/internal/domain/models"
	domrepo "FxCast/internal/domain/repository"
	"FxCast/pkg/logger"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, r *models.ForecastResult) error
}

type healthProc interface {
	Health(ctx context.Context) error
}

// SinkPipeline sits between the forecast controller and the sinks.
// Delivery never blocks the caller; failed results are buffered and
// retried in the background with capped exponential backoff.
type SinkPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	log     *logger.Logger
	bufSize int
	timeout time.Duration
	bufCh   chan *models.ForecastResult
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*SinkPipeline)

// WithBufferSize sets the retry buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *SinkPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *SinkPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithLogger(l *logger.Logger) PipelineOption {
	return func(p *SinkPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// Health probes the processor when it supports it.
func (p *SinkPipeline) Health(ctx context.Context) error {
	if hp, ok := p.proc.(healthProc); ok {
		return hp.Health(ctx)
	}
	return nil
}

// NewSinkPipeline creates a new pipeline.
func NewSinkPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SinkPipeline {
	p := &SinkPipeline{
		proc:    proc,
		metrics: metrics,
		log:     logger.Nop(),
		bufSize: 256,
		timeout: 5 * time.Second,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.ForecastResult, p.bufSize)
	return p
}

// Start launches background delivery of buffered results.
func (p *SinkPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case r := <-p.bufCh:
				if err := p.deliver(ctx, r); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("sink_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					case <-ctx.Done():
						return
					}
					p.enqueue(r)
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Stop stops the background delivery and waits for it to exit.
func (p *SinkPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Submit hands a finished result to the sinks. It returns the first
// delivery error; the result stays buffered for retry.
func (p *SinkPipeline) Submit(ctx context.Context, r *models.ForecastResult) error {
	if r == nil || r.Ticker == "" {
		p.metrics.RecordError("sink_validate")
		return fmt.Errorf("invalid result")
	}
	start := time.Now()
	if err := p.deliver(ctx, r); err != nil {
		p.metrics.RecordError("sink_process")
		p.log.Warn("sink delivery failed, buffering",
			logger.String("ticker", r.Ticker),
			logger.Error(err),
		)
		p.enqueue(r)
		return fmt.Errorf("sink downstream: %w", err)
	}
	p.metrics.RecordLatency("sink_process", time.Since(start).Seconds())
	return nil
}

// Pending is the number of results waiting for retry.
func (p *SinkPipeline) Pending() int { return len(p.bufCh) }

func (p *SinkPipeline) deliver(ctx context.Context, r *models.ForecastResult) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.proc.Process(ctx, r)
}

func (p *SinkPipeline) enqueue(r *models.ForecastResult) {
	select {
	case p.bufCh <- r:
	default:
		p.metrics.RecordError("sink_buffer_full")
	}
}
