// Package main provides the main entry point for the outreach automation service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prbn021/seo-app/app/handlers"
	"github.com/prbn021/seo-app/app/router"
	"github.com/prbn021/seo-app/app/scheduler"
	"github.com/prbn021/seo-app/app/services"
	businessflow "github.com/prbn021/seo-app/business_flow"
	"github.com/prbn021/seo-app/config"
	"github.com/prbn021/seo-app/models"
	"github.com/prbn021/seo-app/repository"
	"github.com/prbn021/seo-app/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *logrus.Logger
	stopFuncs []func()
}

func main() {
	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ValidateProductionConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := services.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize application")
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("error during shutdown")
	}

	logger.Info("server stopped")
}

// Shutdown drains HTTP first so no request enqueues work after the workers stop,
// then stops background workers in reverse start order so the archive flushes last
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.server.ShutdownWithContext(ctx)
	for i := len(a.stopFuncs) - 1; i >= 0; i-- {
		a.stopFuncs[i]()
	}
	return err
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger logrus.FieldLogger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(
			log.New(os.Stdout, "", log.LstdFlags),
			gormlogger.Config{
				SlowThreshold:             cfg.SlowQueryTime,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Info("database connection established")

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger logrus.FieldLogger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithField("db", cfg.RedisDB).Info("redis connection established")
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger logrus.FieldLogger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.WithError(err).Warn("redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return func() {
		cancel()
		_ = client.Close()
	}
}

// initializeArchive connects the Postgres mirror, subscribes it to store commits
// and returns the flow that reads the archived history back
func initializeArchive(cfg *config.ProductionConfig, st *store.Store, logger logrus.FieldLogger) (businessflow.ArchiveFlow, func(), error) {
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Archive.AutoMigrate {
		if err := db.AutoMigrate(&models.AppLogEntry{}, &models.DeliveryLogEntry{}); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate archive tables: %w", err)
		}
	}

	appLogs := repository.NewAppLogRepository(db)
	deliveries := repository.NewDeliveryLogRepository(db)

	archive := services.NewArchiveService(db, appLogs, deliveries, cfg.Archive.Buffer, logger)
	st.AddHook(archive.Hook())
	stop := archive.Start(context.Background())

	return businessflow.NewArchiveFlow(appLogs, deliveries, logger), func() {
		stop()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *logrus.Logger) (*Application, error) {
	var stopFuncs []func()

	st := store.New(store.Options{AuditCapacity: cfg.Outreach.AuditCapacity})

	var archiveHandler handlers.ArchiveHandlerInterface
	if cfg.Archive.Enabled {
		archiveFlow, stopArchive, err := initializeArchive(cfg, st, logger)
		if err != nil {
			return nil, err
		}
		stopFuncs = append(stopFuncs, stopArchive)
		archiveHandler = handlers.NewArchiveHandler(archiveFlow, logger)
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second, logger))
	}

	finder := services.NewCachedLeadFinder(
		services.NewLeadFinder(cfg.LeadProvider, logger),
		rc,
		cfg.Cache.RedisPrefix,
		cfg.LeadProvider.CacheTTL,
		logger,
	)

	// Initialize business flows
	projectFlow := businessflow.NewProjectFlow(st, finder, logger)
	engagementFlow := businessflow.NewEngagementFlow(st, logger)
	deliveryFlow := businessflow.NewDeliveryFlow(st, logger)
	campaignFlow := businessflow.NewCampaignFlow(st, logger)
	auditFlow := businessflow.NewAuditFlow(st, logger)

	// Start the delivery processor
	transport := scheduler.NewSimulatedTransport(
		cfg.Outreach.SuccessProbability,
		cfg.Outreach.ErrorMessage,
		cfg.Outreach.RandomSeed,
	)
	processor := scheduler.NewDeliveryProcessor(st, transport, cfg.Outreach.ProcessInterval, logger)
	stopFuncs = append(stopFuncs, processor.Start(context.Background()))

	if cfg.Sequencer.Enabled {
		sequencer := scheduler.NewSequenceScheduler(campaignFlow, cfg.Sequencer.Schedule, st.Now, logger)
		stopSequencer, err := sequencer.Start(context.Background())
		if err != nil {
			return nil, err
		}
		stopFuncs = append(stopFuncs, stopSequencer)
	}

	// Initialize handlers and router
	appRouter := router.NewFiberRouter(cfg.Server, cfg.Metrics, router.Handlers{
		Project:  handlers.NewProjectHandler(projectFlow, logger),
		Lead:     handlers.NewLeadHandler(engagementFlow, logger),
		Delivery: handlers.NewDeliveryHandler(deliveryFlow, logger),
		Campaign: handlers.NewCampaignHandler(campaignFlow, logger),
		Audit:    handlers.NewAuditHandler(auditFlow, logger),
		Archive:  archiveHandler,
	}, logger)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}
