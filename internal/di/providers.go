package di

import (
	"context"
	"fmt"
	"time"

	"FxCast/internal/domain/repository"
	"FxCast/internal/handler/api"
	mid "FxCast/internal/middleware"
	internalrepo "FxCast/internal/repository"
	"FxCast/internal/service/backend"
	"FxCast/internal/service/ratelimit"
	"FxCast/internal/service/stream"
	"FxCast/internal/services/chart"
	"FxCast/internal/services/demo"
	"FxCast/internal/usecase"
	"FxCast/pkg/cache"
	pkgch "FxCast/pkg/clickhouse"
	"FxCast/pkg/config"
	xhttp "FxCast/pkg/http"
	pkgkafka "FxCast/pkg/kafka"
	"FxCast/pkg/logger"
	"FxCast/pkg/metrics"
	"FxCast/pkg/server"
)

// Backend groups the three faces of the active forecast strategy.
type Backend struct {
	Symbols  repository.SymbolSource
	Forecast repository.ForecastSource
	Health   repository.HealthChecker
	Demo     bool
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBackend picks the demo generator or the remote ML backend.
func ProvideBackend(cfg *config.Config, l *logger.Logger) Backend {
	if cfg.UseDemo() {
		l.Info("forecast source: demo generator")
		src := demo.NewSource(cfg, demo.NewGenerator(cfg.Demo.Seed))
		return Backend{Symbols: src, Forecast: src, Health: src, Demo: true}
	}
	l.Info("forecast source: remote", logger.String("base_url", cfg.Backend.BaseURL))
	c := backend.NewClient(cfg)
	return Backend{Symbols: c, Forecast: c, Health: c}
}

// ProvideCache returns an in-process cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemorySize))
		return mem, func() { _ = mem.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("catalog cache: redis", logger.String("host", cfg.Cache.Redis.Host), logger.Int("port", cfg.Cache.Redis.Port))
	lc := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
		cache.WithLayeredMemoryTTL(time.Minute),
	)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSinkPipeline builds the delivery pipeline for the configured sink.
// It returns nil when sink.type is none.
func ProvideSinkPipeline(cfg *config.Config, m repository.Metrics, l *logger.Logger) (*mid.SinkPipeline, func(), error) {
	var (
		pub   repository.Publisher
		store repository.Archive
	)
	switch cfg.Sink.Type {
	case usecase.SinkNone:
		return nil, func() {}, nil
	case usecase.SinkKafka:
		producer, err := ProvideKafkaProducer(cfg)
		if err != nil {
			return nil, nil, err
		}
		pub = internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	case usecase.SinkClickHouse:
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		archive := internalrepo.NewClickHouseArchive(client.DB(), cfg.ClickHouse.Database+".forecasts")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := archive.Init(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		store = archive
	}

	proc := usecase.NewResultProcessor(pub, store, m, cfg.Sink.Type)
	pipe := mid.NewSinkPipeline(proc, m,
		mid.WithBufferSize(cfg.Sink.BufferSize),
		mid.WithTimeout(cfg.Sink.Timeout),
		mid.WithLogger(l),
	)
	l.Info("result sink enabled", logger.String("type", cfg.Sink.Type))
	return pipe, func() {
		pipe.Stop()
		proc.Close()
	}, nil
}

// ProvideHub creates the websocket chart stream.
func ProvideHub(l *logger.Logger) *stream.Hub {
	return stream.NewHub(30*time.Second, l)
}

func ProvideRenderer(hub *stream.Hub, l *logger.Logger) *chart.Renderer {
	return chart.NewRenderer(hub, l)
}

// ProvideNotifier forwards every notification to stream subscribers.
func ProvideNotifier(cfg *config.Config, hub *stream.Hub) *usecase.Notifier {
	n := usecase.NewNotifier(cfg.Notifications.DismissAfter)
	n.OnPush(hub.Notify)
	return n
}

func ProvideCatalog(b Backend, c cache.Service, cfg *config.Config, l *logger.Logger) *usecase.CatalogLoader {
	return usecase.NewCatalogLoader(b.Symbols, c, cfg.Cache.CatalogTTL, l)
}

func ProvideHealthMonitor(b Backend, cfg *config.Config, l *logger.Logger) *usecase.HealthMonitor {
	return usecase.NewHealthMonitor(b.Health, b.Demo, cfg.Backend.Timeout, l)
}

func ProvideController(
	catalog *usecase.CatalogLoader,
	b Backend,
	m repository.Metrics,
	pipe *mid.SinkPipeline,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.ForecastController {
	var sink usecase.ResultSink
	if pipe != nil {
		sink = pipe
	}
	return usecase.NewForecastController(catalog, b.Forecast, m, sink, l, usecase.ControllerConfig{
		MinHorizon: cfg.Forecast.MinHorizon,
		MaxHorizon: cfg.Forecast.MaxHorizon,
		Policy:     cfg.Forecast.Concurrency,
	})
}

func ProvideSession(
	catalog *usecase.CatalogLoader,
	ctrl *usecase.ForecastController,
	renderer *chart.Renderer,
	notifier *usecase.Notifier,
	health *usecase.HealthMonitor,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.Session {
	return usecase.NewSession(catalog, ctrl, renderer, notifier, health, usecase.SessionDefaults{
		Ticker:  cfg.Forecast.DefaultTicker,
		Horizon: cfg.Forecast.DefaultHorizon,
	}, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideHTTPHandler wires the echo routes.
func ProvideHTTPHandler(
	l *logger.Logger,
	session *usecase.Session,
	rl *ratelimit.Limiter,
	hub *stream.Hub,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewForecastEchoHandler(l, session, rl, hub, cfg.Forecast.HistoryDays)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	session *usecase.Session,
	health *usecase.HealthMonitor,
	hub *stream.Hub,
	handler xhttp.Handler,
	pipe *mid.SinkPipeline,
) *server.App {
	return server.New(cfg, l, session, health, hub, handler, pipe)
}
