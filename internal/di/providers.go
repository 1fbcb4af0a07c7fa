package di

import (
    "context"
    "fmt"
    "net"
    "strconv"
    "time"

    "ForePull/internal/domain/repository"
    domsvc "ForePull/internal/domain/service"
    "ForePull/internal/handler/api"
    mid "ForePull/internal/middleware"
    internalrepo "ForePull/internal/repository"
    "ForePull/internal/service/obsfeed"
    "ForePull/internal/services/remote"
    "ForePull/internal/usecase"
    pkgcache "ForePull/pkg/cache"
    pkgch "ForePull/pkg/clickhouse"
    "ForePull/pkg/config"
    pkgkafka "ForePull/pkg/kafka"
    applogger "ForePull/pkg/logger"
    "ForePull/pkg/metrics"
    "ForePull/pkg/queue"
    "ForePull/pkg/server"

    "github.com/redis/go-redis/v9"
)

func observationTable(cfg *config.Config) string {
	if t := cfg.ClickHouse.Tables.Observations; t != "" {
		return t
	}
	return cfg.ClickHouse.Database + ".observations_raw"
}

func forecastTable(cfg *config.Config) string {
	if t := cfg.ClickHouse.Tables.Forecasts; t != "" {
		return t
	}
	return cfg.ClickHouse.Database + ".forecasts"
}

func outlierTable(cfg *config.Config) string {
	if t := cfg.ClickHouse.Tables.Outliers; t != "" {
		return t
	}
	return cfg.ClickHouse.Database + ".outliers"
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if db == "" {
		db = "forepull"
	}
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime, segment String, value Float64, event_id String) ENGINE=MergeTree ORDER BY (segment, ts)", observationTable(cfg)),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (run_id String, model String, horizon UInt16, segment String, ts DateTime, value Float64, lower Nullable(Float64), upper Nullable(Float64)) ENGINE=MergeTree ORDER BY (segment, ts)", forecastTable(cfg)),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (segment String, ts DateTime, value Float64, model String, width Float64, detected_at DateTime) ENGINE=MergeTree ORDER BY (segment, ts)", outlierTable(cfg)),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLogger creates the application logger shared by wired components.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideObservationStorage creates ClickHouse observation storage.
func ProvideObservationStorage(chClient *pkgch.Client, cfg *config.Config) repository.ObservationStore {
	return internalrepo.NewClickHouseObservations(chClient, observationTable(cfg))
}

// ProvideForecastStorage creates ClickHouse forecast and outlier storage.
func ProvideForecastStorage(chClient *pkgch.Client, cfg *config.Config) *internalrepo.ClickHouseForecasts {
	return internalrepo.NewClickHouseForecasts(chClient, forecastTable(cfg), outlierTable(cfg))
}

// ProvideObservationPublisher creates the Kafka observation publisher.
func ProvideObservationPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ObservationPublisher {
	return internalrepo.NewKafkaObservationPublisher(producer, cfg.Kafka.Topic)
}

// ProvideForecastPublisher creates the Kafka forecast publisher.
func ProvideForecastPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	topic := cfg.Kafka.ForecastTopic
	if topic == "" {
		topic = "forecasts"
	}
	return internalrepo.NewKafkaForecastPublisher(producer, topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaObservationsHandler registers the handler for the observations topic.
func ProvideKafkaObservationsHandler(store repository.ObservationStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideObservationStream creates the WebSocket observation feed.
// Returns nil when no feed is configured; the collector and app treat
// a nil stream as "no live ingest".
func ProvideObservationStream(cfg *config.Config) repository.ObservationStream {
	if cfg.Feed.WebSocketURL == "" {
		return nil
	}
	return obsfeed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideObservationProcessor creates the observation processor use case.
func ProvideObservationProcessor(
	pub repository.ObservationPublisher,
	store repository.ObservationStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.ObservationProcessor {
	return usecase.NewObservationProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvideObservationCollector creates the observation collector use case.
func ProvideObservationCollector(
    stream repository.ObservationStream,
    processor *usecase.ObservationProcessor,
    metrics repository.Metrics,
    cfg *config.Config,
) *usecase.ObservationCollector {
    if stream == nil {
        return nil
    }
    // Build middleware pipeline between the feed and the backend
    pipe := mid.NewIngestPipeline(processor, metrics,
        mid.WithMaxRPS(50),
        mid.WithBufferSize(2000),
    )
    return usecase.NewObservationCollector(stream, processor, metrics, pipe, cfg.Feed.Segments)
}

// ProvidePanelBuilder creates the panel builder shared by forecasting use cases.
func ProvidePanelBuilder(store repository.ObservationStore) *usecase.PanelBuilder {
	return usecase.NewPanelBuilder(store)
}

// ProvideRunLock builds the lock service that serializes forecast runs.
// Redis-backed when the queue Redis is enabled so the lock holds across
// replicas, otherwise a per-process memory cache.
func ProvideRunLock(cfg *config.Config, l *applogger.Logger) pkgcache.Service {
	if cfg.Forecast.Redis.Enabled {
		host, port := splitHostPort(cfg.Forecast.Redis.Addr)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Forecast.Redis.Password),
			pkgcache.WithRedisDB(cfg.Forecast.Redis.DB),
			pkgcache.WithRedisPrefix("forepull:lock"),
		)
		if err == nil {
			return rc
		}
		l.Warn("redis run lock unavailable, falling back to memory", applogger.Error(err))
	}
	return pkgcache.NewMemoryCache()
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideForecastRunner creates the forecast runner use case. Remote
// models are registered into the model registry when a remote service
// is configured.
func ProvideForecastRunner(
	builder *usecase.PanelBuilder,
	forecasts *internalrepo.ClickHouseForecasts,
	pub repository.Publisher,
	metrics repository.Metrics,
	lock pkgcache.Service,
	cfg *config.Config,
) domsvc.Forecaster {
	if cfg.Forecast.RemoteServiceURL != "" {
		remote.RegisterModel(cfg, "prophet")
		remote.RegisterModel(cfg, "tft")
	}
	r := usecase.NewForecastRunner(builder, forecasts, pub, metrics)
	r.SetRunLock(lock)
	return r
}

// ProvideOutlierScanner creates the outlier scan use case.
func ProvideOutlierScanner(
	builder *usecase.PanelBuilder,
	forecasts *internalrepo.ClickHouseForecasts,
	metrics repository.Metrics,
) domsvc.OutlierScanner {
	return usecase.NewOutlierScanUseCase(builder, forecasts, metrics)
}

// ProvideJobQueue creates the Redis-backed job queue. Returns nil when
// Redis is disabled; the API falls back to synchronous execution.
func ProvideJobQueue(
	cfg *config.Config,
	l *applogger.Logger,
	runner domsvc.Forecaster,
	scanner domsvc.OutlierScanner,
) *queue.RedisQueue {
	if !cfg.Forecast.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Forecast.Redis.Addr,
		Password: cfg.Forecast.Redis.Password,
		DB:       cfg.Forecast.Redis.DB,
	})
	q := queue.NewRedisQueue(l, &queue.QueueConfig{Workers: 2, RetryLimit: 3}, client, queue.ModeProducerConsumer)
	q.RegisterJobs([]queue.Job{
		usecase.NewForecastRunJob(runner),
		usecase.NewOutlierScanJob(scanner),
	})
	return q
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	forecasts *internalrepo.ClickHouseForecasts,
	obs repository.ObservationStore,
	runner domsvc.Forecaster,
	scanner domsvc.OutlierScanner,
	q *queue.RedisQueue,
) *api.ForecastsEchoHandler {
	h := api.NewForecastsEchoHandler(l, forecasts, forecasts, obs, runner, scanner)
	if q != nil {
		h.SetQueue(q)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
    cfg *config.Config,
    collector *usecase.ObservationCollector,
    consumer *pkgkafka.Consumer,
    kh *usecase.KafkaObservationsHandler,
    chClient *pkgch.Client,
    handler *api.ForecastsEchoHandler,
    jobQueue *queue.RedisQueue,
    proc *usecase.ObservationProcessor,
) *server.App {
    // Attach hook to consumer: example NoopHook for now; can be replaced via config
    if consumer != nil {
        consumer.WithConsumerHook(pkgkafka.NoopHook{})
    }
    app := server.New(cfg, collector, consumer, kh, chClient)
    app.SetHTTPHandler(handler)
    if jobQueue != nil {
        app.SetJobQueue(jobQueue)
    }
    app.ObsProc = proc
    return app
}
