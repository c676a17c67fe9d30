package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/config"
	"github.com/mamadbah2/lttp/internal/lock"
	"github.com/mamadbah2/lttp/internal/repository"
	"github.com/mamadbah2/lttp/internal/repository/memory"
	"github.com/mamadbah2/lttp/internal/repository/mongodb"
	"github.com/mamadbah2/lttp/internal/repository/sheets"
	"github.com/mamadbah2/lttp/internal/scheduler"
	"github.com/mamadbah2/lttp/internal/server/handlers"
	"github.com/mamadbah2/lttp/internal/server/router"
	"github.com/mamadbah2/lttp/internal/service/catalog"
	"github.com/mamadbah2/lttp/internal/service/distribution"
	"github.com/mamadbah2/lttp/internal/service/inventory"
	"github.com/mamadbah2/lttp/internal/service/processing"
	reportingsvc "github.com/mamadbah2/lttp/internal/service/reporting"
	"github.com/mamadbah2/lttp/pkg/clients/alerting"
	"github.com/mamadbah2/lttp/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.Env))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, baseLogger)
	defer closeStore()

	loc := cfg.Ledger.Location
	catalogSvc := catalog.NewService(store.Items, store.Units, cfg.Ledger.RecipientCodes, baseLogger.Named("svc.catalog"))
	inventorySvc := inventory.NewService(store.Inventory, store.Items, loc, baseLogger.Named("svc.inventory"))
	distributionSvc := distribution.NewService(store.Distribution, store.Items, catalogSvc, baseLogger.Named("svc.distribution"))
	processingSvc := processing.NewService(store.Processing, store.Units, baseLogger.Named("svc.processing"))

	var sheetsRepo sheets.Repository
	if cfg.Sheets.SpreadsheetID != "" {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	} else {
		baseLogger.Warn("google sheet id missing, daily export disabled")
	}
	reportingSvc := reportingsvc.NewService(sheetsRepo, inventorySvc, processingSvc, baseLogger.Named("svc.reporting"))

	if err := handlers.RegisterValidators(); err != nil {
		baseLogger.Fatal("failed to register validators", zap.Error(err))
	}
	engine := router.New(router.Handlers{
		Catalog:      handlers.NewCatalogHandler(catalogSvc, baseLogger.Named("handlers.catalog")),
		Inventory:    handlers.NewInventoryHandler(inventorySvc, baseLogger.Named("handlers.inventory")),
		Distribution: handlers.NewDistributionHandler(distributionSvc, inventorySvc.Today, baseLogger.Named("handlers.distribution")),
		Processing:   handlers.NewProcessingHandler(processingSvc, inventorySvc.Today, baseLogger.Named("handlers.processing")),
	}, router.Options{
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, baseLogger.Named("router"))

	if cfg.Scheduler.Enabled {
		var alerts alerting.Client = alerting.Noop{}
		if cfg.Alerting.WebhookURL != "" {
			alerts = alerting.NewClient(cfg.Alerting)
		} else {
			baseLogger.Warn("alert webhook missing, scheduled alerts are discarded")
		}

		var locker lock.Locker = lock.NewLocal()
		if cfg.Redis.Address != "" {
			redisLocker, err := lock.NewRedisLocker(ctx, cfg.Redis.Address, baseLogger.Named("lock.redis"))
			if err != nil {
				baseLogger.Warn("redis unavailable, falling back to in-process job locks", zap.Error(err))
			} else {
				locker = redisLocker
				defer func() { _ = redisLocker.Close() }()
			}
		}

		sched := scheduler.NewScheduler(cfg.Scheduler, loc, inventorySvc, reportingSvc, alerts, locker, baseLogger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.StorageDrv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore connects the configured storage driver and returns a closer.
func openStore(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (repository.Store, func()) {
	if cfg.StorageDrv == config.StorageMemory {
		baseLogger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), func() {}
	}

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
	}

	return mongoRepo.Store(), func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
}
