package di

import (
	"context"
	"fmt"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
	"PatternTrade/internal/handler/api"
	internalrepo "PatternTrade/internal/repository"
	"PatternTrade/internal/service/feed"
	"PatternTrade/internal/service/notify"
	"PatternTrade/internal/usecase"
	"PatternTrade/pkg/cache"
	pkgch "PatternTrade/pkg/clickhouse"
	"PatternTrade/pkg/config"
	pkgkafka "PatternTrade/pkg/kafka"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/metrics"
	"PatternTrade/pkg/queue"
	"PatternTrade/pkg/server"
	"PatternTrade/pkg/util"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the Redis cache tier.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	c, err := cache.NewRedisCache(
		cache.WithAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithPassword(cfg.Redis.Password),
		cache.WithDB(cfg.Redis.DB),
		cache.WithPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns),
		cache.WithPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideCache exposes the Redis cache behind the Service interface.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	return rc
}

// ProvideClickHouseClient creates the durable tier and applies the
// idempotent schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideSnapshotStore creates the market-state repository.
func ProvideSnapshotStore(c cache.Service, ch *pkgch.Client, cfg *config.Config, l *logger.Logger, m repository.Metrics) repository.SnapshotStore {
	return internalrepo.NewSnapshotStore(c, ch.DB(), cfg.ClickHouse.Database, l, m)
}

// ProvideRiskStore creates the risk repository.
func ProvideRiskStore(c cache.Service, ch *pkgch.Client, cfg *config.Config, l *logger.Logger, m repository.Metrics) repository.RiskStore {
	return internalrepo.NewRiskStore(c, ch.DB(), cfg.ClickHouse.Database, l, m)
}

// ProvideOrderStore creates the order repository.
func ProvideOrderStore(c cache.Service, ch *pkgch.Client, cfg *config.Config, l *logger.Logger, m repository.Metrics) repository.OrderStore {
	return internalrepo.NewOrderStore(c, ch.DB(), cfg.ClickHouse.Database, l, m)
}

// ProvideSignalStore creates the signal audit repository.
func ProvideSignalStore(c cache.Service, ch *pkgch.Client, cfg *config.Config, l *logger.Logger, m repository.Metrics) repository.SignalStore {
	return internalrepo.NewSignalStore(c, ch.DB(), cfg.ClickHouse.Database, l, m)
}

// ProvidePatternStore creates the pattern audit repository.
func ProvidePatternStore(c cache.Service, ch *pkgch.Client, cfg *config.Config, l *logger.Logger, m repository.Metrics) repository.PatternStore {
	return internalrepo.NewPatternStore(c, ch.DB(), cfg.ClickHouse.Database, l, m)
}

// ProvideCandleStore creates the raw candle repository.
func ProvideCandleStore(c cache.Service, ch *pkgch.Client, cfg *config.Config, l *logger.Logger, m repository.Metrics) repository.CandleStore {
	return internalrepo.NewCandleStore(c, ch.DB(), cfg.ClickHouse.Database, l, m)
}

// ProvideMarketStateTracker creates the market-state tracker.
func ProvideMarketStateTracker(snapshots repository.SnapshotStore, l *logger.Logger, cfg *config.Config) *usecase.MarketStateTracker {
	return usecase.NewMarketStateTracker(snapshots, l, cfg.Engine)
}

// ProvideDetectors builds the configured pattern detectors. Unknown
// algorithm names are skipped so a typo disables one detector instead
// of the whole engine.
func ProvideDetectors(cfg *config.Config, l *logger.Logger) []usecase.PatternDetector {
	var out []usecase.PatternDetector
	for _, name := range cfg.Engine.Algos {
		switch name {
		case "hammer":
			out = append(out, usecase.NewHammerDetector(cfg.Engine.Hammer))
		case "shooting_star":
			out = append(out, usecase.NewShootingStarDetector(cfg.Engine.Hammer))
		default:
			l.Warn("unknown algo in config, skipping", logger.String("algo", name))
		}
	}
	return out
}

// ProvideRiskManager creates the risk gate.
func ProvideRiskManager(risk repository.RiskStore, l *logger.Logger, m repository.Metrics) *usecase.RiskManager {
	return usecase.NewRiskManager(risk, l, m)
}

// ProvideOrderBook creates the in-process open-order ledger.
func ProvideOrderBook() *usecase.OrderBook {
	return usecase.NewOrderBook()
}

// ProvideOrderQueue creates the Redis queue carrying order lifecycle
// events; the audit job consumes them off the same queue.
func ProvideOrderQueue(rc *cache.RedisCache, cfg *config.Config, l *logger.Logger) *queue.RedisQueue {
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(notify.NewOrderEventJob(l, cfg.Queue.WebhookURL))
	return q
}

// ProvideOrderManager creates the order lifecycle manager with the
// configured end-of-day cutoff.
func ProvideOrderManager(
	book *usecase.OrderBook,
	orders repository.OrderStore,
	risk *usecase.RiskManager,
	q *queue.RedisQueue,
	cfg *config.Config,
	l *logger.Logger,
	m repository.Metrics,
) (*usecase.OrderManager, error) {
	hour, minute, err := util.ParseClock(cfg.Engine.TradeEndCutoff)
	if err != nil {
		return nil, fmt.Errorf("trade end cutoff: %w", err)
	}
	return usecase.NewOrderManager(book, orders, risk, l, m, hour, minute,
		usecase.WithOrderEvents(notify.NewOrderEventPublisher(q, l)),
	), nil
}

// ProvideDispatcher creates the per-tick pipeline.
func ProvideDispatcher(
	tracker *usecase.MarketStateTracker,
	detectors []usecase.PatternDetector,
	orders *usecase.OrderManager,
	risk *usecase.RiskManager,
	candles repository.CandleStore,
	patterns repository.PatternStore,
	signals repository.SignalStore,
	l *logger.Logger,
	m repository.Metrics,
) *usecase.Dispatcher {
	return usecase.NewDispatcher(tracker, detectors, orders, risk, candles, patterns, signals, l, m)
}

// ProvideQueryService creates the read-only query facade for the API.
func ProvideQueryService(
	candles repository.CandleStore,
	snapshots repository.SnapshotStore,
	risk repository.RiskStore,
	orders repository.OrderStore,
	signals repository.SignalStore,
	patterns repository.PatternStore,
) *usecase.QueryService {
	return usecase.NewQueryService(candles, snapshots, risk, orders, signals, patterns)
}

// ProvideEngineHandler creates the HTTP handler.
func ProvideEngineHandler(l *logger.Logger, queries *usecase.QueryService, risk repository.RiskStore) *api.EngineHandler {
	return api.NewEngineHandler(l, queries, risk)
}

// ProvideCandleStream selects the candle input by config: a Kafka
// topic, a raw WebSocket feed, or a bounded replay for backtests.
func ProvideCandleStream(cfg *config.Config, candles repository.CandleStore, l *logger.Logger) (repository.CandleStream, error) {
	switch cfg.Feed.Source {
	case "kafka":
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
		return feed.NewKafkaFeed(cfg.Kafka.Topic, consumer, l), nil

	case "socket":
		stream := feed.NewSocketFeed(
			cfg.Feed.SocketURL,
			cfg.Feed.Symbols,
			cfg.Feed.Timeframes,
			cfg.Feed.ReconnectDelay,
			cfg.Feed.PingInterval,
			l,
		)
		// With brokers configured the socket feed also republishes
		// onto the candle topic so other consumers see the same flow.
		if len(cfg.Kafka.Brokers) > 0 {
			producer, err := pkgkafka.NewProducer(
				pkgkafka.WithBrokers(cfg.Kafka.Brokers),
				pkgkafka.WithHashByKey(true),
			)
			if err != nil {
				return nil, fmt.Errorf("kafka producer: %w", err)
			}
			stream = feed.NewKafkaBridge(stream, producer, cfg.Kafka.Topic, l)
		}
		return stream, nil

	case "replay":
		from := util.ParseTimeDefault(cfg.Feed.ReplayFrom, time.Time{})
		to := util.ParseTimeDefault(cfg.Feed.ReplayTo, time.Now().UTC())
		tf := models.NormalizeTimeframe(cfg.Feed.ReplayTimeframe)
		return feed.NewReplayFeed(candles, cfg.Feed.ReplayCSV, cfg.Feed.ReplaySymbol, tf, from, to, l), nil

	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
	}
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	dispatcher *usecase.Dispatcher,
	stream repository.CandleStream,
	handler *api.EngineHandler,
	q *queue.RedisQueue,
	rc *cache.RedisCache,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, dispatcher, stream, handler, q, rc, chClient)
}
