package di

import (
	"context"
	"fmt"
	"time"

	"MarketBrief/internal/domain/repository"
	"MarketBrief/internal/handler/api"
	internalrepo "MarketBrief/internal/repository"
	icache "MarketBrief/internal/service/cache"
	"MarketBrief/internal/service/fred"
	"MarketBrief/internal/service/gemini"
	"MarketBrief/internal/service/newsapi"
	"MarketBrief/internal/service/provider"
	"MarketBrief/internal/service/ratelimit"
	"MarketBrief/internal/service/yahoo"
	"MarketBrief/internal/usecase"
	pkgcache "MarketBrief/pkg/cache"
	pkgch "MarketBrief/pkg/clickhouse"
	"MarketBrief/pkg/config"
	xhttp "MarketBrief/pkg/http"
	"MarketBrief/pkg/http/middleware"
	pkgkafka "MarketBrief/pkg/kafka"
	applogger "MarketBrief/pkg/logger"
	"MarketBrief/pkg/metrics"
	"MarketBrief/pkg/queue"
	"MarketBrief/pkg/server"
)

// ProvideLogger creates the root logger. When a digest topic is configured
// and Kafka is enabled, errors are also aggregated into periodic digests.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Logging.DigestTopic != "" {
		l.AttachDigest(&applogger.DigestConfig{
			Interval:  cfg.Logging.DigestInterval,
			Topic:     cfg.Logging.DigestTopic,
			Publisher: producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus recorder, or a no-op one when metrics are off.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideProviderLimiter throttles outbound provider calls.
func ProvideProviderLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Providers.Burst, cfg.Providers.RefillPerSec)
}

func providerOptions(name, baseURL, apiKey string, timeout time.Duration, retries int, lim *ratelimit.Limiter, l *applogger.Logger) provider.Options {
	return provider.Options{
		Name:    name,
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: timeout,
		Retries: retries,
		Limiter: lim,
		Logger:  l,
	}
}

// ProvideFREDClient creates the Treasury and macro series client.
func ProvideFREDClient(cfg *config.Config, lim *ratelimit.Limiter, l *applogger.Logger) *fred.Client {
	p := cfg.Providers.FRED
	return fred.New(providerOptions("fred", p.BaseURL, p.APIKey, p.Timeout, p.Retries, lim, l))
}

// ProvideYahooClient creates the daily bars client.
func ProvideYahooClient(cfg *config.Config, lim *ratelimit.Limiter, l *applogger.Logger) *yahoo.Client {
	p := cfg.Providers.Yahoo
	return yahoo.New(providerOptions("yahoo", p.BaseURL, "", p.Timeout, p.Retries, lim, l))
}

// ProvideNewsClient creates the headline client.
func ProvideNewsClient(cfg *config.Config, lim *ratelimit.Limiter, l *applogger.Logger) *newsapi.Client {
	p := cfg.Providers.NewsAPI
	return newsapi.New(providerOptions("newsapi", p.BaseURL, p.APIKey, p.Timeout, p.Retries, lim, l), p.Queries, p.PageSize)
}

// ProvideGeminiClient creates the brief summarizer, or nil without an API key.
func ProvideGeminiClient(cfg *config.Config, lim *ratelimit.Limiter, l *applogger.Logger) repository.Summarizer {
	p := cfg.Providers.Gemini
	if p.APIKey == "" {
		l.Warn("gemini api key not set, daily brief disabled")
		return nil
	}
	return gemini.New(providerOptions("gemini", p.BaseURL, p.APIKey, p.Timeout, p.Retries, lim, l), p.Model)
}

// ProvideFileStore creates the snapshot and writeup store.
func ProvideFileStore(cfg *config.Config) *internalrepo.FileStore {
	return internalrepo.NewFileStore(cfg.Storage.DataDir, cfg.Storage.SnapshotFile, cfg.Storage.WriteupDir)
}

// ProvideRedisCache connects to Redis, or returns nil when Redis is off.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	rc := cfg.Cache.Redis
	if !rc.Enabled {
		return nil, nil
	}
	redis, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(rc.Host, rc.Port),
		pkgcache.WithRedisAuth(rc.Password, rc.DB),
		pkgcache.WithRedisPrefix(rc.Prefix),
		pkgcache.WithRedisPool(rc.PoolSize, rc.MinIdle, rc.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return redis, nil
}

// ProvideSharedCache layers a memory cache over Redis, or returns nil when Redis is off.
func ProvideSharedCache(cfg *config.Config, redis *pkgcache.RedisCache) pkgcache.Service {
	if redis == nil {
		return nil
	}
	return pkgcache.NewLayeredCache(redis,
		pkgcache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		pkgcache.WithLayeredMemoryTTL(time.Minute),
	)
}

// ProvideJobQueue creates the collection queue on the Redis connection, or nil when disabled.
func ProvideJobQueue(cfg *config.Config, redis *pkgcache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || redis == nil {
		return nil
	}
	return queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		Prefix:     cfg.Queue.Prefix,
	}, redis.Client())
}

// ProvideCollectEnqueuer exposes the queue to the dashboard.
func ProvideCollectEnqueuer(q *queue.RedisQueue) queue.Enqueuer {
	if q == nil {
		return nil
	}
	return q
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.Producer.AutoCreateTopics),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes snapshot events when Kafka is on.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SnapshotTopic)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the archive is off.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithConnMaxLifetime(cfg.ClickHouse.ConnMaxLifetime),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchive creates the snapshot archive and its tables.
func ProvideArchive(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.Archive, error) {
	if client == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHArchive(client, cfg.ClickHouse.Database, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideCollector creates the collection use case.
func ProvideCollector(
	cfg *config.Config,
	series *fred.Client,
	quotes *yahoo.Client,
	news *newsapi.Client,
	summarizer repository.Summarizer,
	store *internalrepo.FileStore,
	archive repository.Archive,
	publisher repository.EventPublisher,
	shared pkgcache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Collector {
	return usecase.NewCollector(usecase.CollectorConfig{
		Tickers:      cfg.Collector.Tickers,
		Indices:      cfg.Collector.Indices,
		CurveSeries:  fred.CurveSeries,
		Indicators:   fred.Indicators,
		LookbackDays: cfg.Collector.LookbackDays,
		Interval:     cfg.Collector.Interval,
		RunLockTTL:   cfg.Collector.RunLockTTL,
		SnapshotTTL:  cfg.Cache.TTL,
		SkipWriteup:  cfg.Collector.SkipWriteup,
	}, usecase.CollectorDeps{
		Series:     series,
		Quotes:     quotes,
		News:       news,
		Summarizer: summarizer,
		Store:      store,
		Writeups:   store,
		Archive:    archive,
		Publisher:  publisher,
		Shared:     shared,
		Metrics:    m,
		Logger:     l,
	})
}

// ProvideSnapshotCache creates the dashboard's snapshot cache.
func ProvideSnapshotCache(cfg *config.Config, store *internalrepo.FileStore, shared pkgcache.Service) *icache.SnapshotCache {
	return icache.NewSnapshotCache(store.Load, shared, cfg.Cache.TTL)
}

// ProvideDashboard creates the dashboard use case.
func ProvideDashboard(cache *icache.SnapshotCache, store *internalrepo.FileStore, m repository.Metrics, l *applogger.Logger) *usecase.Dashboard {
	return usecase.NewDashboard(cache, store, m, l)
}

// ProvideSnapshotHub creates the websocket hub.
func ProvideSnapshotHub(cfg *config.Config, l *applogger.Logger) *api.SnapshotHub {
	return api.NewSnapshotHub(cfg.Server.WSBuffer, cfg.Server.WSPing, l)
}

// ProvideAPILimiter creates the per-client limiter, or nil when disabled.
func ProvideAPILimiter(cfg *config.Config) middleware.Allower {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideDashboardHandler creates the HTTP handler.
func ProvideDashboardHandler(l *applogger.Logger, uc *usecase.Dashboard, hub *api.SnapshotHub, limiter middleware.Allower, collect queue.Enqueuer) *api.DashboardHandler {
	return api.NewDashboardHandler(l, uc, hub, limiter).WithCollectQueue(collect)
}

func serverOptions(cfg *config.Config, l *applogger.Logger) []xhttp.ServerOption {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Server.SlowThreshold))
	}
	return opts
}

// ProvideHTTPServer creates the dashboard HTTP server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.DashboardHandler) *xhttp.Server {
	return xhttp.NewServer(serverOptions(cfg, l), h)
}

// ProvideKafkaConsumer creates a consumer, or nil when Kafka is off.
// Handler failures are counted per topic.
func ProvideKafkaConsumer(cfg *config.Config, m repository.Metrics, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLatest(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		After: func(_ context.Context, topic string, _ []byte, err error) {
			if err != nil {
				m.RecordError("consume:" + topic)
			}
		},
	})
	return consumer, nil
}

// ProvideSnapshotEventHandler handles snapshot events for the dashboard.
func ProvideSnapshotEventHandler(cfg *config.Config, cache *icache.SnapshotCache, hub *api.SnapshotHub, m repository.Metrics, l *applogger.Logger) *usecase.SnapshotEventHandler {
	return usecase.NewSnapshotEventHandler(cfg.Kafka.SnapshotTopic, cache, hub, m, l)
}

// ProvideCollectorApp assembles the collector binary. In loop mode it also
// serves health and metrics and consumes on-demand collection requests.
func ProvideCollectorApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.Collector,
	jobs *queue.RedisQueue,
	producer *pkgkafka.Producer,
	shared pkgcache.Service,
	archive repository.Archive,
) *server.App {
	app := server.New(cfg, l)
	app.SetCollector(collector)
	if cfg.Collector.Interval > 0 {
		app.SetHTTPServer(xhttp.NewServer(serverOptions(cfg, l)))
		if jobs != nil {
			jobs.RegisterJob(usecase.NewCollectJob(collector, l))
			app.AddWorker("collect queue", jobs)
		}
	}
	registerClosers(app, l, producer, shared)
	if archive != nil {
		app.OnShutdown("clickhouse", archive.Close)
	}
	return app
}

// ProvideDashboardApp assembles the dashboard binary.
func ProvideDashboardApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	events *usecase.SnapshotEventHandler,
	hub *api.SnapshotHub,
	producer *pkgkafka.Producer,
	shared pkgcache.Service,
) *server.App {
	app := server.New(cfg, l)
	app.SetHTTPServer(srv)
	if consumer != nil {
		app.SetConsumer(consumer, events)
	}
	registerClosers(app, l, producer, shared)
	app.OnShutdown("websocket hub", func() error { hub.Close(); return nil })
	return app
}

// registerClosers releases shared infrastructure. The log digest is flushed
// before the producer it publishes through is closed.
func registerClosers(app *server.App, l *applogger.Logger, producer *pkgkafka.Producer, shared pkgcache.Service) {
	if shared != nil {
		app.OnShutdown("cache", shared.Close)
	}
	if producer != nil {
		app.OnShutdown("kafka producer", producer.Close)
		app.OnShutdown("log digest", func() error { l.DetachDigest(); return nil })
	}
}
