package di

import (
	"context"
	"fmt"
	"os"
	"time"

	domrepo "WattCast/internal/domain/repository"
	domsvc "WattCast/internal/domain/service"
	"WattCast/internal/handler/api"
	mid "WattCast/internal/middleware"
	internalrepo "WattCast/internal/repository"
	"WattCast/internal/service/ratelimit"
	"WattCast/internal/service/sensor"
	"WattCast/internal/services/advisor"
	"WattCast/internal/services/forecast"
	"WattCast/internal/services/history"
	"WattCast/internal/usecase"
	"WattCast/pkg/cache"
	pkgch "WattCast/pkg/clickhouse"
	"WattCast/pkg/config"
	xhttp "WattCast/pkg/http"
	"WattCast/pkg/http/middleware"
	pkgkafka "WattCast/pkg/kafka"
	applogger "WattCast/pkg/logger"
	"WattCast/pkg/metrics"
	"WattCast/pkg/server"

	"github.com/labstack/echo/v4"
)

// ProvideLogger builds the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when nothing publishes.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.NeedsKafkaProducer() {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient connects and creates the report table, or returns
// nil when the ClickHouse sink is off.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Sinks.ClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCache returns an in-process cache, layered over Redis when the
// redis sink is on so the latest report and notify cooldowns are shared.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Sinks.Redis {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, cache.WithMemoryMaxSize(64)), nil
}

func ProvideReportStore(cfg *config.Config, c cache.Service) *internalrepo.CacheReportStore {
	return internalrepo.NewCacheReportStore(c, cfg.Redis.TTL)
}

// ProvideSensor builds the reading source selected by sensor.type.
func ProvideSensor(cfg *config.Config, log *applogger.Logger) (domrepo.SensorSource, error) {
	sc := cfg.Sensor
	switch sc.Type {
	case "http":
		return sensor.NewHTTPPoller(sc.HTTP.URL, sc.HTTP.Headers, sc.Timeout), nil
	case "websocket":
		ctx, cancel := context.WithTimeout(context.Background(), sc.Timeout)
		defer cancel()
		ws, err := sensor.NewWebSocket(ctx, sc.WebSocket.URL, sc.WebSocket.ReconnectDelay,
			sc.WebSocket.PingInterval, sc.WebSocket.BufferSize, log)
		if err != nil {
			return nil, fmt.Errorf("websocket sensor: %w", err)
		}
		return ws, nil
	case "mqtt":
		m, err := sensor.NewMQTT(sensor.MQTTConfig{
			Broker:     sc.MQTT.Broker,
			Topic:      sc.MQTT.Topic,
			ClientID:   sc.MQTT.ClientID,
			Username:   sc.MQTT.Username,
			Password:   sc.MQTT.Password,
			QoS:        sc.MQTT.QoS,
			BufferSize: sc.MQTT.BufferSize,
			Timeout:    sc.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("mqtt sensor: %w", err)
		}
		return m, nil
	case "kafka":
		k, err := sensor.NewKafka(sc.Kafka.BufferSize, log,
			pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithConsumerTopic(sc.Kafka.Topic),
			pkgkafka.WithConsumerGroupID(sc.Kafka.GroupID),
			pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes, cfg.Kafka.Consumer.MaxWait),
		)
		if err != nil {
			return nil, err
		}
		return k, nil
	default:
		return sensor.NewSimulated(sc.Simulated.Min, sc.Simulated.Max, sc.Simulated.Seed), nil
	}
}

func ProvideHistory(cfg *config.Config) *history.Store {
	return history.New(
		history.WithMinSamples(cfg.Loop.MinSamples),
		history.WithMaxSamples(cfg.Loop.MaxSamples),
		history.WithMaxWindow(cfg.Loop.MaxWindow),
	)
}

func ProvideForecaster(cfg *config.Config) domsvc.Forecaster {
	return forecast.NewLinear(cfg.Loop.MinSamples)
}

func ProvideAdvisor(cfg *config.Config) domsvc.Advisor {
	return advisor.NewThreshold(cfg.Loop.Threshold)
}

// ProvideOutputSink fans reports out to every enabled sink. Remote sinks are
// buffered so an outage delays their reports instead of dropping them.
func ProvideOutputSink(
	cfg *config.Config,
	log *applogger.Logger,
	m domrepo.Metrics,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	store *internalrepo.CacheReportStore,
	c cache.Service,
) (domrepo.OutputSink, error) {
	buffered := func(s domrepo.OutputSink) domrepo.OutputSink {
		b := mid.NewBufferedSink(s, m, mid.WithBufferSize(cfg.Sinks.BufferSize))
		b.Start()
		return b
	}

	sinks := []domrepo.OutputSink{store}
	if cfg.Sinks.Stdout {
		sinks = append(sinks, internalrepo.NewStdoutSink(os.Stdout, cfg.Loop.HorizonHours))
	}
	if cfg.Sinks.Kafka && producer != nil {
		sinks = append(sinks, buffered(internalrepo.NewKafkaReportSink(producer, cfg.Kafka.ReportTopic)))
	}
	if cfg.Sinks.ClickHouse && ch != nil {
		sinks = append(sinks, buffered(internalrepo.NewClickHouseReportSink(ch, log)))
	}
	if cfg.Sinks.Postgres {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := internalrepo.NewPostgresReportSink(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres sink: %w", err)
		}
		sinks = append(sinks, buffered(pg))
	}
	if cfg.Sinks.Notify {
		sinks = append(sinks, internalrepo.NewNotifySink(internalrepo.DesktopNotifier, c, cfg.Notify.Title, cfg.Notify.Cooldown))
	}
	return internalrepo.NewMultiSink(m, sinks...), nil
}

func ProvideEnergyLoop(
	cfg *config.Config,
	src domrepo.SensorSource,
	hist *history.Store,
	fc domsvc.Forecaster,
	adv domsvc.Advisor,
	sink domrepo.OutputSink,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.EnergyLoop {
	return usecase.NewEnergyLoop(src, hist, fc, adv, sink, m, log,
		usecase.WithInterval(cfg.Loop.Interval),
		usecase.WithHorizon(cfg.Loop.HorizonHours),
		usecase.WithThreshold(cfg.Loop.Threshold),
	)
}

// ProvideHTTPServer builds the API server, or nil when disabled.
func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, loop *usecase.EnergyLoop, store *internalrepo.CacheReportStore) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	var mw []echo.MiddlewareFunc
	if cfg.Server.RateLimit > 0 {
		mw = append(mw, middleware.RateLimit(ratelimit.New(2*cfg.Server.RateLimit, cfg.Server.RateLimit)))
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	h := api.NewEnergyEchoHandler(log, loop, store, mw...)
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(log),
	)
}

// ProvideApp attaches the log collector and assembles shutdown order:
// closers run last-in first-out, so the collector flushes through the
// producer and buffered sinks drain before their clients close.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	loop *usecase.EnergyLoop,
	srv *xhttp.Server,
	src domrepo.SensorSource,
	sink domrepo.OutputSink,
	c cache.Service,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *server.App {
	var closers []server.Closer
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	closers = append(closers,
		server.Closer{Name: "cache", Close: c.Close},
		server.Closer{Name: "sensor", Close: src.Close},
		server.Closer{Name: "sink", Close: sink.Close},
	)

	if cfg.Log.Collector.Enabled && producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.MaxCount,
			Topic:          cfg.Log.Collector.Topic,
			Source:         loop.RunID(),
			Publisher:      producer,
		})
		closers = append(closers, server.Closer{Name: "log collector", Close: func() error {
			log.RemoveCollector()
			return nil
		}})
	}

	log.Info("wattcast ready",
		applogger.String("sensor", cfg.Sensor.Type),
		applogger.String("sink", sink.Name()),
		applogger.Duration("interval", cfg.Loop.Interval),
		applogger.Float64("threshold", cfg.Loop.Threshold),
		applogger.Bool("http", srv != nil))

	return server.New(loop, srv, log, closers...)
}
