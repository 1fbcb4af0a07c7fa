//go:build wireinject
// +build wireinject

package di

import (
	"ForePull/pkg/config"
	"ForePull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Metrics and logging
        ProvideMetrics,
        ProvideLogger,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideObservationStorage,
		ProvideForecastStorage,
		ProvideObservationPublisher,
		ProvideForecastPublisher,
		ProvideObservationStream,

        // Use cases
        ProvideObservationProcessor,
        ProvideObservationCollector,
        ProvideKafkaObservationsHandler,
        ProvidePanelBuilder,
        ProvideRunLock,
        ProvideForecastRunner,
        ProvideOutlierScanner,

        // API surface
        ProvideJobQueue,
        ProvideHTTPHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
