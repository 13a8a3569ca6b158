package usecase

import (
	"context"
	"fmt"
	"time"

	"FxCast/internal/domain/models"
	drepo "FxCast/internal/domain/repository"
)

const (
	SinkNone       = "none"
	SinkKafka      = "kafka"
	SinkClickHouse = "clickhouse"
)

// ResultProcessor routes completed forecasts to the configured sink.
type ResultProcessor struct {
	pub     drepo.Publisher
	store   drepo.Archive
	metrics drepo.Metrics
	backend string
}

// NewResultProcessor creates a new ResultProcessor instance.
func NewResultProcessor(pub drepo.Publisher, store drepo.Archive, metrics drepo.Metrics, backend string) *ResultProcessor {
	return &ResultProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process sends a single result to the configured backend.
func (p *ResultProcessor) Process(ctx context.Context, r *models.ForecastResult) error {
	if r == nil {
		return fmt.Errorf("result is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case SinkNone, "":
		return nil
	case SinkKafka:
		if p.pub == nil {
			return fmt.Errorf("kafka publisher not configured")
		}
		err = p.pub.Publish(ctx, r)
	case SinkClickHouse:
		if p.store == nil {
			return fmt.Errorf("clickhouse archive not configured")
		}
		err = p.store.Store(ctx, r)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("sink")
		return fmt.Errorf("process result: %w", err)
	}

	p.metrics.RecordLatency("sink_"+p.backend, time.Since(start).Seconds())
	return nil
}

// Health reports whether the configured sink can accept results.
// Only the ClickHouse archive can be probed; other sinks report healthy.
func (p *ResultProcessor) Health(ctx context.Context) error {
	if p.backend == SinkClickHouse && p.store != nil {
		return p.store.Health(ctx)
	}
	return nil
}

// Close closes underlying resources if available.
func (p *ResultProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
