//go:build wireinject
// +build wireinject

package di

import (
	"MarketBrief/pkg/config"
	"MarketBrief/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideFileStore,
	ProvideRedisCache,
	ProvideSharedCache,
	ProvideJobQueue,
)

// InitializeCollector wires the collector binary.
func InitializeCollector(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,

		// Providers
		ProvideProviderLimiter,
		ProvideFREDClient,
		ProvideYahooClient,
		ProvideNewsClient,
		ProvideGeminiClient,

		// Sinks
		ProvideEventPublisher,
		ProvideClickHouseClient,
		ProvideArchive,

		ProvideCollector,
		ProvideCollectorApp,
	)
	return &server.App{}, nil
}

// InitializeDashboard wires the dashboard binary.
func InitializeDashboard(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,

		ProvideSnapshotCache,
		ProvideDashboard,
		ProvideSnapshotHub,
		ProvideAPILimiter,
		ProvideCollectEnqueuer,
		ProvideDashboardHandler,
		ProvideHTTPServer,

		ProvideKafkaConsumer,
		ProvideSnapshotEventHandler,

		ProvideDashboardApp,
	)
	return &server.App{}, nil
}
