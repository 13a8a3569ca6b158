//go:build wireinject
// +build wireinject

package di

import (
	"FxCast/pkg/config"
	"FxCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideBackend,
		ProvideCache,
		ProvideSinkPipeline,
		ProvideHub,

		// Use cases
		ProvideRenderer,
		ProvideNotifier,
		ProvideCatalog,
		ProvideHealthMonitor,
		ProvideController,
		ProvideSession,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
