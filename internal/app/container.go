package app

import (
	"context"
	"fmt"
	"os"

	"orderservice/internal/catalog"
	"orderservice/internal/config"
	"orderservice/internal/notifications"
	"orderservice/internal/orders"
	"orderservice/internal/platform/kafka"
	"orderservice/internal/platform/observability"
	"orderservice/internal/storage/postgres"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Container holds expensive-to-create singleton resources and dependencies.
// Initialization order is fixed: config, logger, observability, storage,
// cache, kafka, services. Shutdown releases everything in reverse.
type Container struct {
	config            *config.Config
	logger            observability.Logger
	tracer            observability.Tracer
	store             *postgres.Store
	cache             *catalog.Cache
	images            catalog.ImageStore
	broadcaster       *notifications.Broadcaster
	orderConsumer     kafka.Consumer
	orderProducer     kafka.Producer
	notifyProducer    kafka.Producer
	notifier          *notifications.Notifier
	coordinator       *orders.Coordinator
	statusHandler     *orders.StatusHandler
	catalogService    *catalog.Service
	consumerService   orders.ConsumerService
	otelLogShutdown   func(context.Context) error
	otelTraceShutdown func(context.Context) error
}

// NewContainer creates and initializes all infrastructure components.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container := &Container{
		config: cfg,
	}

	if err := container.setupLogger(ctx); err != nil {
		return nil, err
	}

	tp, err := container.setupObservability(ctx)
	if err != nil {
		return nil, err
	}

	if err := container.setupStorage(ctx); err != nil {
		return nil, err
	}

	if err := container.setupKafkaWithTracer(tp); err != nil {
		return nil, err
	}

	container.wireServices()
	return container, nil
}

// setupLogger initializes a basic logger before anything else can fail.
func (c *Container) setupLogger(ctx context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}

	c.logger = logger
	return nil
}

// setupObservability configures OpenTelemetry logging and tracing. With no
// OTLP endpoint configured the SDK setup is skipped and the global noop
// providers stay in place.
func (c *Container) setupObservability(ctx context.Context) (trace.TracerProvider, error) {
	var tp trace.TracerProvider = otel.GetTracerProvider()

	if c.config.OtelEndpoint != "" {
		otelLogShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
		if err != nil {
			c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
		}
		c.otelLogShutdown = otelLogShutdown

		sdkTP, otelTraceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
		if err != nil {
			c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
		}
		c.otelTraceShutdown = otelTraceShutdown
		if sdkTP != nil {
			tp = sdkTP
		}

		// Re-initialize logger with OTel bridge
		c.reinitializeLoggerWithOTel()
	}

	c.tracer = otel.Tracer(config.ServiceName)
	return tp, nil
}

// reinitializeLoggerWithOTel creates a new logger with OpenTelemetry integration
func (c *Container) reinitializeLoggerWithOTel() {
	logProvider := global.GetLoggerProvider()
	instrumentationScopeName := "order-service.manual"
	otelZapCore := otelzap.NewCore(instrumentationScopeName,
		otelzap.WithLoggerProvider(logProvider),
	)

	consoleEncoderConfig := zap.NewProductionEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	finalCore := zapcore.NewTee(otelZapCore, consoleCore)
	logger := zap.New(finalCore,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	)

	c.logger = logger
	c.logger.Info("Logger re-initialized with OpenTelemetry bridge")
}

// setupStorage opens postgres, ensures the schema, and connects the
// optional redis product cache and the image store.
func (c *Container) setupStorage(ctx context.Context) error {
	store, err := postgres.NewStore(ctx, c.config.DatabaseURL)
	if err != nil {
		return err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return err
	}
	c.store = store
	c.logger.Info("Connected to PostgreSQL")

	if c.config.RedisAddr != "" {
		cache, err := catalog.NewCache(ctx, c.config.RedisAddr, c.logger)
		if err != nil {
			return err
		}
		c.cache = cache
		c.logger.Info("Connected to Redis product cache")
	}

	c.images = catalog.NewDiskImageStore(c.config.ImageDir, c.config.ImageBaseURL)
	return nil
}

// setupKafkaWithTracer initializes the order-request consumer and the two
// producers (order results, notifications) with OpenTelemetry.
func (c *Container) setupKafkaWithTracer(tp trace.TracerProvider) error {
	readerConfig := kafkago.ReaderConfig{
		Brokers: []string{c.config.KafkaBroker},
		Topic:   config.OrderRequestedTopic,
		GroupID: config.GroupID,
	}

	baseReader := kafkago.NewReader(readerConfig)
	reader, err := otelkafka.NewReader(baseReader)
	if err != nil {
		return err
	}
	c.orderConsumer = reader

	orderProducer, err := c.newWriter(tp, config.OrderPlacedTopic)
	if err != nil {
		return err
	}
	c.orderProducer = orderProducer

	notifyProducer, err := c.newWriter(tp, config.NotificationTopic)
	if err != nil {
		return err
	}
	c.notifyProducer = notifyProducer

	return nil
}

func (c *Container) newWriter(tp trace.TracerProvider, topic string) (kafka.Producer, error) {
	baseWriter := &kafkago.Writer{
		Addr:         kafkago.TCP(c.config.KafkaBroker),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: config.BatchTimeout,
		BatchSize:    config.BatchSize,
	}

	return otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(topic),
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
}

// wireServices builds the business services on top of the infrastructure:
// the notifier first, then the coordinator and handlers that depend on it.
func (c *Container) wireServices() {
	c.broadcaster = notifications.NewBroadcaster()

	factory := NewServiceFactory(c)
	c.notifier = factory.CreateNotifier()
	c.coordinator = factory.CreateCoordinator(c.notifier)
	c.statusHandler = factory.CreateStatusHandler(c.notifier)
	c.catalogService = factory.CreateCatalogService(c.notifier)
	c.consumerService = factory.CreateConsumerService(factory.CreateMessageHandler(c.coordinator))
}

// Shutdown gracefully shuts down all infrastructure components.
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	if c.orderConsumer != nil {
		if err := c.orderConsumer.Close(); err != nil {
			c.logger.Error("Failed to close order consumer", zap.Error(err))
		}
	}

	if c.orderProducer != nil {
		if err := c.orderProducer.Close(); err != nil {
			c.logger.Error("Failed to close order producer", zap.Error(err))
		}
	}

	if c.notifyProducer != nil {
		if err := c.notifyProducer.Close(); err != nil {
			c.logger.Error("Failed to close notification producer", zap.Error(err))
		}
	}

	if c.broadcaster != nil {
		c.broadcaster.Close()
	}

	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			c.logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Error("Failed to close PostgreSQL pool", zap.Error(err))
		}
	}

	if c.otelTraceShutdown != nil {
		if err := c.otelTraceShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel tracing", zap.Error(err))
		}
	}

	if c.otelLogShutdown != nil {
		if err := c.otelLogShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel logging", zap.Error(err))
		}
	}

	if err := c.logger.Sync(); err != nil {
		// Can't log this error since logger might be closed
		fmt.Printf("Failed to sync logger: %v\n", err)
	}

	c.logger.Info("Infrastructure shutdown complete")
}

// Getters for accessing infrastructure components and services.
func (c *Container) Logger() observability.Logger            { return c.logger }
func (c *Container) Tracer() observability.Tracer            { return c.tracer }
func (c *Container) Notifier() *notifications.Notifier       { return c.notifier }
func (c *Container) Coordinator() *orders.Coordinator        { return c.coordinator }
func (c *Container) StatusHandler() *orders.StatusHandler    { return c.statusHandler }
func (c *Container) CatalogService() *catalog.Service        { return c.catalogService }
func (c *Container) Broadcaster() *notifications.Broadcaster { return c.broadcaster }
func (c *Container) ConsumerService() orders.ConsumerService { return c.consumerService }
