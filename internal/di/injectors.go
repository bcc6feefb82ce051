//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"fastd/internal"
	"fastd/internal/bridge"
	"fastd/internal/controllers"
	"fastd/internal/fasting"
	"fastd/internal/providers"
	"fastd/internal/services"
	"fastd/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		bridge.NewNotifier,
		bridge.NewHealthBridge,
		services.NewSessionService,

		fasting.NewZstdCompressor,
		fasting.NewFileManager,
		fasting.NewScheduler,
		fasting.NewTicker,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
