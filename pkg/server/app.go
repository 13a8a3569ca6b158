package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mid "FxCast/internal/middleware"
	"FxCast/internal/service/stream"
	"FxCast/internal/usecase"
	"FxCast/pkg/config"
	xhttp "FxCast/pkg/http"
	applogger "FxCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	session     *usecase.Session
	health      *usecase.HealthMonitor
	hub         *stream.Hub
	pipe        *mid.SinkPipeline
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	session *usecase.Session,
	health *usecase.HealthMonitor,
	hub *stream.Hub,
	handler xhttp.Handler,
	pipe *mid.SinkPipeline,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:         cfg,
		l:           l,
		session:     session,
		health:      health,
		hub:         hub,
		httpHandler: handler,
		pipe:        pipe,
	}
}

// Session exposes the state for one-shot callers such as the CLI.
func (a *App) Session() *usecase.Session { return a.session }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	a.l.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start brings up background workers and the HTTP server without blocking.
func (a *App) Start(ctx context.Context) error {
	if a.pipe != nil {
		a.pipe.Start(ctx)
		a.health.WatchSink(a.pipe.Health)
	}

	if a.hub != nil {
		a.health.OnChange(a.hub.PublishHealth)
	}
	if err := a.session.Bootstrap(ctx); err != nil {
		// The catalog can be reloaded later through the API.
		a.l.Warn("bootstrap incomplete", applogger.Error(err))
	}
	if err := a.health.Start(ctx, a.cfg.Health.Schedule); err != nil {
		a.l.Error("health monitor start error", applogger.Error(err))
		return err
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithLogger(a.l),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(a.cfg.Metrics.Path, a.cfg.Metrics.SlowThreshold))
	} else {
		opts = append(opts, xhttp.WithMetrics("", 0))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, opts...)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("fxcast started",
		applogger.String("env", a.cfg.Environment),
		applogger.Bool("demo", a.cfg.UseDemo()),
		applogger.String("sink", a.cfg.Sink.Type),
	)
	return nil
}

// Shutdown gracefully stops all services.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	a.health.Stop()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.hub != nil {
		_ = a.hub.Close()
	}
	if a.pipe != nil {
		if n := a.pipe.Pending(); n > 0 {
			a.l.Warn("undelivered results dropped", applogger.Int("pending", n))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
