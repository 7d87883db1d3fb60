package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/booking-payment-service/internal/adapters/exchangerate"
	"github.com/kevin07696/booking-payment-service/internal/adapters/garanti"
	"github.com/kevin07696/booking-payment-service/internal/adapters/kafka"
	"github.com/kevin07696/booking-payment-service/internal/adapters/postgres"
	"github.com/kevin07696/booking-payment-service/internal/adapters/secrets"
	"github.com/kevin07696/booking-payment-service/internal/config"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	paymentHandler "github.com/kevin07696/booking-payment-service/internal/handlers/payment"
	promotionHandler "github.com/kevin07696/booking-payment-service/internal/handlers/promotion"
	bookingService "github.com/kevin07696/booking-payment-service/internal/services/booking"
	discountService "github.com/kevin07696/booking-payment-service/internal/services/discount"
	paymentService "github.com/kevin07696/booking-payment-service/internal/services/payment"
	"github.com/kevin07696/booking-payment-service/pkg/middleware"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
	"github.com/kevin07696/booking-payment-service/pkg/security"
	"github.com/kevin07696/booking-payment-service/pkg/shutdown"
	"github.com/kevin07696/booking-payment-service/pkg/timeutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config comes from cfg, so this is the one plain panic
		panic(fmt.Sprintf("load configuration: %v", err))
	}

	logger := initLogger(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting booking payment service",
		zap.String("environment", cfg.Server.Environment),
		zap.String("gateway_mode", cfg.Gateway.Mode),
		zap.String("terminal_id", cfg.Gateway.TerminalID),
		zap.String("secret_manager", cfg.Secrets.Manager),
	)

	shutdownMgr := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	healthChecker := observability.NewHealthChecker()

	// Initialize database connection pool
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.ConnectionString())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	pool, err := postgres.Connect(startupCtx, poolCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	shutdownMgr.RegisterNoErr("database", pool.Close)

	db := postgres.NewDBExecutor(pool)
	healthChecker.Register("database", db)

	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	// Terminal credentials
	secretStore, err := initSecretStore(startupCtx, cfg.Secrets, shutdownMgr, logger)
	if err != nil {
		logger.Fatal("Failed to initialize secret store", zap.Error(err))
	}
	creds, err := secrets.LoadTerminalCredentials(startupCtx, secretStore, cfg.Secrets.Path)
	if err != nil {
		logger.Fatal("Failed to load terminal credentials",
			zap.String("path", cfg.Secrets.Path),
			zap.Error(err),
		)
	}

	gateway := garanti.NewGateway(gatewayConfig(cfg.Gateway), creds, nil, cfg.Gateway.VerifyCallbackHash, logger)

	// Events
	events := initEventPublisher(cfg.Events, healthChecker, logger)
	shutdownMgr.RegisterCloser("events", events)

	rates, err := exchangerate.NewFixedProvider(cfg.Rates.EURTRY)
	if err != nil {
		logger.Fatal("Invalid EUR_TRY_RATE", zap.String("value", cfg.Rates.EURTRY), zap.Error(err))
	}

	// Initialize services
	clock := ports.Clock(timeutil.Now)
	loggerAdapter := security.NewZapLogger(logger)

	bookingRepo := postgres.NewBookingRepository(db)
	discountRepo := postgres.NewDiscountRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)

	bookings := bookingService.NewService(bookingRepo, events, clock, loggerAdapter)
	promotions := discountService.NewService(discountRepo, rates, clock, loggerAdapter)
	payments := paymentService.NewService(
		db,
		ledgerRepo,
		bookings,
		promotions,
		gateway,
		clock,
		paymentService.Config{
			OrderPrefix:         cfg.Gateway.OrderPrefix,
			ResponseOnlyVerdict: cfg.Gateway.ResponseOnlyVerdict,
		},
		loggerAdapter,
	)

	if cfg.Gateway.ResponseOnlyVerdict {
		logger.Warn("Callbacks are approved on response alone; return code is ignored")
	}

	// Initialize handlers
	mux := http.NewServeMux()
	paymentHandler.NewHandler(payments, bookings, paymentHandler.LandingPages{
		Success: cfg.Pages.Success,
		Failure: cfg.Pages.Failure,
	}, logger).Register(mux)
	promotionHandler.NewHandler(promotions, logger).Register(mux)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	shutdownMgr.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)
	securityHeaders := middleware.NewSecurityHeaders(!cfg.Server.IsProduction())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           securityHeaders.Middleware(rateLimiter.Middleware(mux)),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()
	// Stopped before everything registered above it
	shutdownMgr.RegisterHTTPServer("http", httpServer)

	metricsServer := observability.StartMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker, logger)
	shutdownMgr.Register("metrics", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	shutdownMgr.WaitForShutdown()
}

// initLogger initializes the logger
func initLogger(cfg config.LoggerConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("build logger: %v", err))
	}
	return logger.Named("booking-payments")
}

// gatewayConfig starts from the mode's endpoints and applies overrides
func gatewayConfig(gc config.GatewayConfig) garanti.Config {
	cfg := garanti.DefaultConfig(garanti.Mode(gc.Mode))
	cfg.TerminalID = gc.TerminalID
	cfg.MerchantID = gc.MerchantID
	cfg.UserID = gc.UserID
	cfg.ProvUserID = gc.ProvUserID
	cfg.RefundProvUserID = gc.RefundProvUserID
	cfg.SuccessURL = gc.SuccessURL
	cfg.ErrorURL = gc.ErrorURL
	cfg.CompanyName = gc.CompanyName
	cfg.Lang = gc.Lang
	cfg.Timeout = gc.Timeout
	cfg.MaxRetries = gc.MaxRetries
	if gc.RedirectURL != "" {
		cfg.RedirectURL = gc.RedirectURL
	}
	if gc.APIURL != "" {
		cfg.APIURL = gc.APIURL
	}
	return cfg
}

// initEventPublisher returns a Kafka publisher, or a no-op one when no brokers are set
func initEventPublisher(cfg config.EventsConfig, hc *observability.HealthChecker, logger *zap.Logger) ports.EventPublisher {
	if len(cfg.Brokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, payment events will be dropped")
		return kafka.NewNoopPublisher(logger)
	}

	publisher := kafka.NewPublisher(cfg.Brokers, cfg.Topic, logger)
	hc.Register("kafka", publisher)
	logger.Info("Kafka publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return publisher
}
