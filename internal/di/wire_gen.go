// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"ForePull/pkg/config"
	"ForePull/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	observationStream := ProvideObservationStream(cfg)
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	observationPublisher := ProvideObservationPublisher(producer, cfg)
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	observationStore := ProvideObservationStorage(client, cfg)
	metrics := ProvideMetrics()
	observationProcessor := ProvideObservationProcessor(observationPublisher, observationStore, metrics, cfg)
	observationCollector := ProvideObservationCollector(observationStream, observationProcessor, metrics, cfg)
	consumer, err := ProvideKafkaConsumer(cfg)
	if err != nil {
		return nil, err
	}
	kafkaObservationsHandler := ProvideKafkaObservationsHandler(observationStore, metrics, cfg)
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	clickHouseForecasts := ProvideForecastStorage(client, cfg)
	panelBuilder := ProvidePanelBuilder(observationStore)
	publisher := ProvideForecastPublisher(producer, cfg)
	service := ProvideRunLock(cfg, logger)
	forecaster := ProvideForecastRunner(panelBuilder, clickHouseForecasts, publisher, metrics, service, cfg)
	outlierScanner := ProvideOutlierScanner(panelBuilder, clickHouseForecasts, metrics)
	redisQueue := ProvideJobQueue(cfg, logger, forecaster, outlierScanner)
	forecastsEchoHandler := ProvideHTTPHandler(logger, clickHouseForecasts, observationStore, forecaster, outlierScanner, redisQueue)
	app := ProvideApp(cfg, observationCollector, consumer, kafkaObservationsHandler, client, forecastsEchoHandler, redisQueue, observationProcessor)
	return app, nil
}
