//go:build wireinject
// +build wireinject

package di

import (
	"PatternTrade/pkg/config"
	"PatternTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure tiers
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideOrderQueue,

		// Repositories
		ProvideSnapshotStore,
		ProvideRiskStore,
		ProvideOrderStore,
		ProvideSignalStore,
		ProvidePatternStore,
		ProvideCandleStore,

		// Decision pipeline
		ProvideMarketStateTracker,
		ProvideDetectors,
		ProvideRiskManager,
		ProvideOrderBook,
		ProvideOrderManager,
		ProvideDispatcher,

		// Ingestion and API
		ProvideCandleStream,
		ProvideQueryService,
		ProvideEngineHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
