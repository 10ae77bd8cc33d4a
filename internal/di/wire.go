//go:build wireinject
// +build wireinject

package di

import (
	"WattCast/pkg/config"
	"WattCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories and sources
		ProvideReportStore,
		ProvideSensor,
		ProvideOutputSink,

		// Domain services
		ProvideHistory,
		ProvideForecaster,
		ProvideAdvisor,

		// Use case
		ProvideEnergyLoop,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
