package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	connectionapp "github.com/kossanah/woocommerce-fusion/internal/application/connection"
	integrationapp "github.com/kossanah/woocommerce-fusion/internal/application/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/cache"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/config"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/ecommerce"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/event"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/logger"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/migration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/persistence"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/scheduler"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/sealer"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/storage"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/telemetry"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/handler"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/middleware"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/router"
	"github.com/kossanah/woocommerce-fusion/migrations"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting WooCommerce fusion",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so the database instrumentation picks up the meter
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    handler.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	meter := tp.Meter("woocommerce-fusion")

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Open(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := migrate(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if err := telemetry.InstrumentDB(db.DB, telemetry.DBConfig{
		TraceEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:           "postgresql",
	}, meter, log); err != nil {
		log.Warn("Database instrumentation disabled", zap.Error(err))
	}

	box, err := secretSealer(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize credential sealer", zap.Error(err))
	}

	// Repositories
	profileRepo := persistence.NewGormProfileRepository(db.DB, box)
	linkRepo := persistence.NewGormItemLinkRepository(db.DB)
	priceRepo := persistence.NewGormItemPriceRepository(db.DB)
	binRepo := persistence.NewGormBinRepository(db.DB)
	itemRepo := persistence.NewGormItemRepository(db.DB)

	deliveries, err := cache.NewDeliveryStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create webhook delivery store", zap.Error(err))
	}
	defer func() {
		if err := deliveries.Close(); err != nil {
			log.Error("Error closing webhook delivery store", zap.Error(err))
		}
	}()

	// Event bus: accepted deliveries are logged against their item links and
	// optionally archived
	eventBus := event.NewInMemoryEventBus(log)
	deliveryLog := integrationapp.NewDeliveryLogHandler(linkRepo, log)
	eventBus.Subscribe(deliveryLog, deliveryLog.EventTypes()...)
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3Archive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create webhook archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare webhook archive bucket", zap.Error(err))
		}
		archiver := integrationapp.NewDeliveryArchiveHandler(archive, cfg.Storage.Prefix, log)
		eventBus.Subscribe(archiver, archiver.EventTypes()...)
		log.Info("Archiving webhook payloads", zap.String("bucket", archive.Bucket()))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:           meter,
		Logger:          log,
		CollectInterval: cfg.Sync.MetricsInterval,
		ProfileProvider: telemetry.NewGormProfileMetricsProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}
	tenants := telemetry.NewGormTenantProvider(db.DB)
	syncMetrics.StartPeriodicCollection(ctx, tenants, cfg.Sync.MetricsInterval)
	defer syncMetrics.Stop()

	// Application services
	profileService := connectionapp.NewProfileService(profileRepo, log,
		connectionapp.WithEventPublisher(eventBus))
	webhookService := connectionapp.NewWebhookService(profileService, deliveries, eventBus, log)
	webhookService.SetDedupConfig(shared.IdempotencyConfig{
		Enabled: cfg.Webhook.DedupEnabled,
		TTL:     cfg.Webhook.DedupTTL,
	})
	webhookService.SetSyncMetrics(syncMetrics)

	storefront := ecommerce.NewWooCommerceClient(cfg.Sync.StorefrontTimeout, ecommerce.WithLogger(log))
	linkService := integrationapp.NewItemLinkService(linkRepo, profileService, log)
	priceListService := integrationapp.NewPriceListSyncService(profileService, linkRepo, priceRepo, storefront,
		connection.NewThrottleController(nil), log)
	priceListService.SetSyncMetrics(syncMetrics)
	stockService := integrationapp.NewStockSyncService(profileService, linkRepo, binRepo, storefront, log)
	stockService.SetSyncMetrics(syncMetrics)
	itemSyncService := integrationapp.NewItemSyncService(profileService, linkRepo, itemRepo, storefront, log)
	itemSyncService.SetSyncMetrics(syncMetrics)

	// Background sync jobs (optional; without them sync requests run inline)
	var syncScheduler *scheduler.SyncScheduler
	if cfg.Scheduler.Enabled {
		syncScheduler, err = scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			QueueSize:         cfg.Scheduler.QueueSize,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
			HistorySize:       cfg.Scheduler.HistorySize,
		}, integrationapp.NewSyncJobExecutor(priceListService, stockService, itemSyncService, log), log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			if err := syncScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()

		deliveryLog.SetItemSyncTrigger(syncScheduler)

		trigger := scheduler.NewPriceListCronTrigger(scheduler.PriceListCronTriggerConfig{
			CheckInterval: cfg.Sync.PriceListCheckInterval,
			SyncInterval:  cfg.Sync.PriceListSyncInterval,
		}, syncScheduler, tenants, profileRepo, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start price list trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping price list trigger", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	handlers := router.Handlers{
		System:    handler.NewSystemHandler(cfg.App.Name, db),
		Profiles:  handler.NewConnectionProfileHandler(profileService),
		ItemLinks: handler.NewItemLinkHandler(linkService),
		Sync:      handler.NewSyncHandler(profileService, priceListService, stockService, itemSyncService, syncScheduler),
		Webhooks:  handler.NewWebhookHandler(webhookService, cfg.Webhook.MaxPayloadBytes),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Engine-wide chain, in order: request id, panic recovery, access log,
	// tracing, metrics, security headers, CORS, body limit, rate limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics(meter, log))
	engine.Use(middleware.Secure(middleware.SecurityConfig{
		HSTSEnabled: cfg.IsProduction(),
		HSTSMaxAge:  int((365 * 24 * time.Hour).Seconds()),
	}))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.RunSweeper(ctx.Done())
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Tenant resolution only applies to the versioned API; webhooks resolve
	// their tenant through the profile.
	r := router.NewRouter(engine, router.WithAPIVersion("v1")).Use(
		middleware.Tenant(middleware.TenantConfig{
			DefaultTenantID: uuid.MustParse(cfg.App.DefaultTenantID),
		}),
		middleware.SpanEnricher(),
	)
	router.Mount(r, handlers)
	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.String("description", route.Description),
		)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// migrate applies the embedded schema migrations
func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.SQL()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool, so it is left open.
	return m.Up()
}

// secretSealer returns the secretbox sealer for the configured key. Without a
// key credentials are stored unsealed; config validation refuses that in
// production.
func secretSealer(cfg *config.Config, log *zap.Logger) (persistence.SecretSealer, error) {
	if cfg.Security.SecretKey == "" {
		log.Warn("No security.secret_key configured, storefront credentials are stored unsealed")
		return sealer.Plain{}, nil
	}
	return sealer.NewSecretBox(cfg.Security.SecretKey)
}
