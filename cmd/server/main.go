package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/orderdesk/backend/internal/application/catalog"
	ledgerapp "github.com/orderdesk/backend/internal/application/ledger"
	orderapp "github.com/orderdesk/backend/internal/application/order"
	stockapp "github.com/orderdesk/backend/internal/application/stock"
	"github.com/orderdesk/backend/internal/domain/stock"
	"github.com/orderdesk/backend/internal/infrastructure/cache"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"github.com/orderdesk/backend/internal/infrastructure/logger"
	"github.com/orderdesk/backend/internal/infrastructure/persistence"
	"github.com/orderdesk/backend/internal/infrastructure/queue"
	"github.com/orderdesk/backend/internal/infrastructure/scheduler"
	"github.com/orderdesk/backend/internal/infrastructure/storage"
	"github.com/orderdesk/backend/internal/interfaces/http/handler"
	"github.com/orderdesk/backend/internal/interfaces/http/middleware"
	"github.com/orderdesk/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)

	var snapshotRepo stock.SnapshotRepository = persistence.NewGormSnapshotRepository(db.DB)
	var snapshotCache cache.SnapshotCache
	if cfg.Cache.Enabled {
		snapshotCache, err = buildSnapshotCache(cfg, log)
		if err != nil {
			log.Fatal("Failed to initialize snapshot cache", zap.Error(err))
		}
		snapshotRepo = cache.NewCachedSnapshotRepository(snapshotRepo, snapshotCache, log)
		log.Info("Snapshot cache enabled",
			zap.String("backend", cfg.Cache.Backend),
			zap.Duration("ttl", cfg.Cache.TTL),
		)
	}

	// Per-customer task chains for ledger writes
	tasks := queue.NewKeyedSerializer(log)

	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Fatal("Failed to initialize order number generator", zap.Error(err))
	}

	artifacts, err := buildArtifactStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}

	// Application services
	recorder := stockapp.NewMovementRecorder(movementRepo, snapshotRepo, log)
	monitor := stockapp.NewDriftMonitor(productRepo, snapshotRepo, recorder, log,
		stockapp.WithScanPageSize(cfg.Monitor.PageSize))
	catalogService := catalogapp.NewService(productRepo, log)
	ledgerService := ledgerapp.NewService(ledgerRepo, log)
	orderService := orderapp.NewService(
		orderRepo, productRepo, recorder, ledgerService, tasks, artifacts, node, log,
	)

	var trigger *scheduler.ReconciliationTrigger
	if cfg.Monitor.Enabled {
		trigger = scheduler.NewReconciliationTrigger(scheduler.ReconciliationTriggerConfig{
			Interval:   cfg.Monitor.Interval,
			RunOnStart: cfg.Monitor.RunOnStart,
		}, monitor, log)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation trigger", zap.Error(err))
		}
		log.Info("Reconciliation trigger started", zap.Duration("interval", cfg.Monitor.Interval))
	}

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	router.NewRouter(engine).
		Register(handler.NewHealthHandler(db)).
		Register(handler.NewProductHandler(catalogService)).
		Register(handler.NewOrderHandler(orderService, artifacts)).
		Register(handler.NewStockHandler(recorder, monitor, snapshotRepo)).
		Register(handler.NewLedgerHandler(ledgerService, tasks)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if trigger != nil {
		if err := trigger.Stop(ctx); err != nil {
			log.Error("Reconciliation trigger stop failed", zap.Error(err))
		}
	}
	// Drain pending ledger writes before closing the database.
	if err := tasks.Close(ctx); err != nil {
		log.Error("Task serializer close failed", zap.Error(err))
	}
	if snapshotCache != nil {
		if err := snapshotCache.Close(); err != nil {
			log.Error("Snapshot cache close failed", zap.Error(err))
		}
	}

	log.Info("Server stopped")
}

func buildSnapshotCache(cfg *config.Config, log *zap.Logger) (cache.SnapshotCache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisSnapshotCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Cache.TTL)
	default:
		return cache.NewInMemorySnapshotCache(cfg.Cache.TTL), nil
	}
}

// buildArtifactStore connects to object storage when credentials are
// configured, and falls back to the in-memory store otherwise so the API
// stays usable in local development.
func buildArtifactStore(cfg *config.Config, log *zap.Logger) (orderapp.ArtifactStore, error) {
	if cfg.Storage.AccessKey == "" || cfg.Storage.SecretKey == "" {
		log.Warn("Object storage credentials missing, using in-memory artifact store")
		return storage.NewInMemoryArtifactStorage(), nil
	}

	s3Store, err := storage.NewS3ArtifactStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3Store.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("Artifact storage ready", zap.String("bucket", s3Store.GetBucket()))
	return s3Store, nil
}
