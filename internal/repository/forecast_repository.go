package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/internal/domain/repository"
	pkgkafka "FxCast/pkg/kafka"
	"FxCast/pkg/util"
)

const (
	KindHistory  = "history"
	KindForecast = "forecast"
)

// Schema creates the forecast archive table.
func Schema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_at      DateTime64(3),
	ticker      LowCardinality(String),
	source      LowCardinality(String),
	kind        LowCardinality(String),
	day         Date,
	value       Float64,
	confidence  Nullable(Float64)
) ENGINE = MergeTree
ORDER BY (ticker, day, run_at)`, table)}
}

// ClickHouseArchive implements Archive for ClickHouse.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates ClickHouse archive storage.
func NewClickHouseArchive(db *sql.DB, table string) *ClickHouseArchive {
	return &ClickHouseArchive{db: db, table: table}
}

func (s *ClickHouseArchive) Init(ctx context.Context) error {
	for _, stmt := range Schema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
	}
	return nil
}

// Store writes every point of r as one row, history and forecast alike.
func (s *ClickHouseArchive) Store(ctx context.Context, r *models.ForecastResult) error {
	values, args := archiveRows(r)
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (run_at, ticker, source, kind, day, value, confidence) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store forecast: %w", err)
	}
	return nil
}

func (s *ClickHouseArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseArchive) Close() error {
	return nil // Managed by pkg
}

func archiveRows(r *models.ForecastResult) ([]string, []interface{}) {
	if r == nil {
		return nil, nil
	}
	n := len(r.History) + len(r.Forecast)
	values := make([]string, 0, n)
	args := make([]interface{}, 0, n*7)
	add := func(kind string, points []models.SeriesPoint) {
		for _, p := range points {
			var conf interface{}
			if p.Confidence != nil {
				conf = *p.Confidence
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, r.CreatedAt, r.Ticker, r.Source, kind, p.Date, p.Value, conf)
		}
	}
	add(KindHistory, r.History)
	add(KindForecast, r.Forecast)
	return values, args
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// ForecastEvent is the message body published per completed forecast.
type ForecastEvent struct {
	Ticker    string               `json:"ticker"`
	Source    string               `json:"source"`
	CreatedAt time.Time            `json:"created_at"`
	LastClose float64              `json:"last_close"`
	Forecast  []models.SeriesPoint `json:"forecast"`
	Start     string               `json:"start,omitempty"`
	End       string               `json:"end,omitempty"`
}

func NewForecastEvent(r *models.ForecastResult) ForecastEvent {
	ev := ForecastEvent{
		Ticker:    r.Ticker,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
		Forecast:  r.Forecast,
	}
	if len(r.History) > 0 {
		ev.LastClose = r.History[len(r.History)-1].Value
	}
	if len(r.Forecast) > 0 {
		ev.Start = util.FormatDate(r.Forecast[0].Date)
		ev.End = util.FormatDate(r.Forecast[len(r.Forecast)-1].Date)
	}
	return ev
}

func (p *KafkaPublisher) Publish(ctx context.Context, r *models.ForecastResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Ticker), NewForecastEvent(r))
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var (
	_ repository.Archive   = (*ClickHouseArchive)(nil)
	_ repository.Publisher = (*KafkaPublisher)(nil)
)
