package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	apihttp "github.com/wms-platform/warehouse-state/internal/api/http"
	"github.com/wms-platform/warehouse-state/internal/application"
	"github.com/wms-platform/warehouse-state/internal/config"
	"github.com/wms-platform/warehouse-state/internal/domain"
	kafkaPublisher "github.com/wms-platform/warehouse-state/internal/infrastructure/kafka"
	"github.com/wms-platform/warehouse-state/internal/infrastructure/layout"
	mongoRepo "github.com/wms-platform/warehouse-state/internal/infrastructure/mongodb"
	"github.com/wms-platform/warehouse-state/internal/infrastructure/orderapi"
	"github.com/wms-platform/warehouse-state/pkg/cloudevents"
	"github.com/wms-platform/warehouse-state/pkg/contracts/asyncapi"
	"github.com/wms-platform/warehouse-state/pkg/kafka"
	"github.com/wms-platform/warehouse-state/pkg/logging"
	"github.com/wms-platform/warehouse-state/pkg/metrics"
	"github.com/wms-platform/warehouse-state/pkg/middleware"
	"github.com/wms-platform/warehouse-state/pkg/mongodb"
	"github.com/wms-platform/warehouse-state/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(config.ServiceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	// Setup logger
	logConfig := logging.DefaultConfig(config.ServiceName)
	logConfig.Level = logging.LogLevel(cfg.Log.Level)
	logConfig.Environment = cfg.Server.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logger.Info("Starting warehouse state service")
	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(config.ServiceName)
	tracingConfig.Enabled = cfg.Tracing.Enabled
	tracingConfig.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tracingConfig.SampleRate = cfg.Tracing.SampleRate
	tracingConfig.Environment = cfg.Server.Environment

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", tracingConfig.Enabled, "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(config.ServiceName))
	logger.Info("Metrics initialized")

	// MongoDB keeps the last good order list across restarts
	var (
		mongoClient *mongodb.Client
		snapshots   domain.OrderSnapshotRepository
	)
	if cfg.MongoDB.Enabled {
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = cfg.MongoDB.URI
		mongoConfig.Database = cfg.MongoDB.Database

		mongoClient, err = mongodb.NewClient(ctx, mongoConfig)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Close(closeCtx)
		}()
		snapshots = mongoRepo.NewOrderSnapshotRepository(mongoClient.Database(), logger, m)
		logger.Info("Connected to MongoDB", "database", mongoConfig.Database)
	}

	// Kafka receives order status, dispatch and projection events
	var publisher application.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaConfig := kafka.DefaultConfig()
		kafkaConfig.Brokers = cfg.Kafka.Brokers
		kafkaConfig.ClientID = config.ServiceName

		validator, err := asyncapi.NewWarehouseStateValidator()
		if err != nil {
			logger.WithError(err).Error("Failed to load event contracts")
			os.Exit(1)
		}

		producer := kafka.NewProducer(kafkaConfig)
		defer producer.Close()
		publisher = kafkaPublisher.NewEventPublisher(producer, cfg.Kafka.Topic, logger, m).WithValidator(validator)
		logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	eventFactory := cloudevents.NewEventFactory("/" + config.ServiceName)

	// Order API client
	orderAPIConfig := orderapi.DefaultConfig(cfg.OrderAPI.BaseURL)
	orderAPIConfig.Timeout = cfg.OrderAPI.Timeout
	orderAPIConfig.Retry.MaxAttempts = cfg.OrderAPI.MaxRetries + 1
	orderAPIConfig.Retry.InitialDelay = cfg.OrderAPI.RetryBackoff
	orderAPIConfig.Breaker.FailureThreshold = cfg.OrderAPI.BreakerTrips
	orderAPIConfig.Breaker.Timeout = cfg.OrderAPI.BreakerOpen
	orderAPIConfig.Observer = func(name string, state int) {
		m.SetCircuitBreakerState(name, state)
		if state == 2 {
			m.RecordCircuitBreakerTrip(name)
		}
	}
	orderClient := orderapi.NewClient(orderAPIConfig, logger, m)

	// Floor plan and fleet
	floor, fleet, err := layout.Load(cfg.Layout.File)
	if err != nil {
		logger.WithError(err).Error("Failed to load warehouse layout", "file", cfg.Layout.File)
		os.Exit(1)
	}
	logger.Info("Layout loaded", "zones", len(floor.Zones), "amrs", len(fleet))

	simulator, err := application.NewFleetSimulator(fleet, floor, simulatorConfig(cfg.Simulator), logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to create fleet simulator")
		os.Exit(1)
	}

	dispatcher, err := application.NewDispatchPolicy(simulator, floor, domain.Point{
		X: cfg.Simulator.ApproachOffsetX,
		Y: cfg.Simulator.ApproachOffsetY,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create dispatch policy")
		os.Exit(1)
	}

	orderSync := application.NewOrderSyncService(orderClient, snapshots, application.OrderSyncConfig{
		Schedule:       cfg.Sync.Schedule,
		RequestTimeout: cfg.OrderAPI.Timeout,
	}, logger, m)

	state := application.NewWarehouseState(application.WarehouseStateDeps{
		Orders:       orderSync,
		Projections:  application.NewProjectionCache(application.NewInventoryProjector(logger)),
		Simulator:    simulator,
		Dispatcher:   dispatcher,
		Gateway:      orderClient,
		Publisher:    publisher,
		EventFactory: eventFactory,
		Metrics:      m,
		Logger:       logger,
	})

	if err := orderSync.Restore(ctx); err != nil {
		logger.WithError(err).Warn("Failed to restore order snapshot")
	}

	// Start background workers
	if err := orderSync.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start order sync")
		os.Exit(1)
	}
	defer orderSync.Stop()

	if err := simulator.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start fleet simulator")
		os.Exit(1)
	}
	defer simulator.Stop()
	logger.Info("Background workers started", "syncSchedule", cfg.Sync.Schedule, "tickInterval", cfg.Simulator.TickInterval)

	// Setup Gin router with middleware
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := apihttp.RegisterValidators(); err != nil {
		logger.WithError(err).Error("Failed to register validators")
		os.Exit(1)
	}

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(config.ServiceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(config.ServiceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, func() error {
		if mongoClient != nil {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := mongoClient.HealthCheck(checkCtx); err != nil {
				return err
			}
		}
		if !simulator.IsRunning() {
			return errors.New("fleet simulator is not running")
		}
		if !orderSync.IsRunning() {
			return errors.New("order sync is not running")
		}
		return nil
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	handlers := apihttp.NewHandlers(state, logger).WithStreamBuffer(cfg.Simulator.SubscriberBuffer)
	apihttp.SetupRoutes(router, handlers)

	// Start server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
			cancelRun()
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	// Ends open AMR streams
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

func simulatorConfig(c config.SimulatorConfig) application.SimulatorConfig {
	return application.SimulatorConfig{
		TickInterval:      c.TickInterval,
		WanderProbability: c.WanderProbability,
		TrailLength:       c.TrailLength,
		SubscriberBuffer:  c.SubscriberBuffer,
		DefaultSpeed:      c.DefaultSpeed,
		Seed:              c.Seed,
		Charging: application.ChargingPolicy{
			Mode:        application.ChargingExitMode(c.ChargingExit),
			ChargeRate:  c.ChargeRate,
			ResumeLevel: c.ResumeLevel,
		},
	}
}
