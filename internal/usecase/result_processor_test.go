package usecase

import (
	"context"
	"errors"
	"testing"

	"FxCast/internal/domain/models"
	"FxCast/pkg/metrics"
)

type memArchive struct {
	stored []string
	down   error
}

func (a *memArchive) Init(context.Context) error { return nil }

func (a *memArchive) Store(_ context.Context, r *models.ForecastResult) error {
	a.stored = append(a.stored, r.Ticker)
	return nil
}

func (a *memArchive) Health(context.Context) error { return a.down }

func (a *memArchive) Close() error { return nil }

func TestResultProcessorStoresInArchive(t *testing.T) {
	archive := &memArchive{}
	p := NewResultProcessor(nil, archive, metrics.Nop{}, SinkClickHouse)
	if err := p.Process(context.Background(), &models.ForecastResult{Ticker: "AAPL"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(archive.stored) != 1 || archive.stored[0] != "AAPL" {
		t.Fatalf("unexpected stored %v", archive.stored)
	}
}

func TestResultProcessorHealth(t *testing.T) {
	archive := &memArchive{down: errors.New("ping failed")}
	if err := NewResultProcessor(nil, archive, metrics.Nop{}, SinkClickHouse).Health(context.Background()); err == nil {
		t.Fatalf("expected archive health error")
	}
	if err := NewResultProcessor(nil, nil, metrics.Nop{}, SinkKafka).Health(context.Background()); err != nil {
		t.Fatalf("kafka sink must report healthy, got %v", err)
	}
	archive.down = nil
	if err := NewResultProcessor(nil, archive, metrics.Nop{}, SinkClickHouse).Health(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
