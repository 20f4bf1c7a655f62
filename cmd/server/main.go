package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/analytics"
	"github.com/kmledger/kmledger/internal/config"
	"github.com/kmledger/kmledger/internal/ratelimit"
	"github.com/kmledger/kmledger/internal/repository"
	"github.com/kmledger/kmledger/internal/repository/memory"
	"github.com/kmledger/kmledger/internal/repository/mongodb"
	"github.com/kmledger/kmledger/internal/repository/sheets"
	"github.com/kmledger/kmledger/internal/scheduler"
	"github.com/kmledger/kmledger/internal/server/handlers"
	"github.com/kmledger/kmledger/internal/server/router"
	achievementsvc "github.com/kmledger/kmledger/internal/service/achievements"
	alertsvc "github.com/kmledger/kmledger/internal/service/alerts"
	benchmarksvc "github.com/kmledger/kmledger/internal/service/benchmark"
	exportsvc "github.com/kmledger/kmledger/internal/service/export"
	goalsvc "github.com/kmledger/kmledger/internal/service/goals"
	ownersvc "github.com/kmledger/kmledger/internal/service/owners"
	recordsvc "github.com/kmledger/kmledger/internal/service/records"
	reportingsvc "github.com/kmledger/kmledger/internal/service/reporting"
	whatsappsvc "github.com/kmledger/kmledger/internal/service/whatsapp"
	whatsappclient "github.com/kmledger/kmledger/pkg/clients/whatsapp"
	"github.com/kmledger/kmledger/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	taxTable := analytics.DefaultTaxTable()
	if path := cfg.Fiscal.TaxTablePath; path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			baseLogger.Fatal("failed to read tax table", zap.String("path", path), zap.Error(err))
		}
		if taxTable, err = analytics.ParseTaxTableYAML(raw); err != nil {
			baseLogger.Fatal("invalid tax table", zap.String("path", path), zap.Error(err))
		}
		baseLogger.Info("custom tax table loaded", zap.String("path", path))
	}

	var (
		limiter ratelimit.Limiter
		locker  scheduler.Locker
	)
	rule := ratelimit.Rule{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		limiter = ratelimit.NewRedisLimiter(rdb, rule, "kmledger:ratelimit:")
		locker = redislock.New(rdb)
		baseLogger.Info("redis enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		limiter = ratelimit.NewMemoryLimiter(rule, cfg.RateLimit.CacheSize)
		baseLogger.Warn("redis not configured, using in-process rate limiter and unguarded jobs")
	}

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	} else {
		baseLogger.Info("google sheets credentials missing, sheets sync disabled")
	}

	ownerService := ownersvc.NewService(store, baseLogger.Named("svc.owners"))
	recordService := recordsvc.NewService(store, baseLogger.Named("svc.records"))
	reportingService := reportingsvc.NewService(store, taxTable, baseLogger.Named("svc.reporting"))
	goalService := goalsvc.NewService(store, baseLogger.Named("svc.goals"))
	alertService := alertsvc.NewService(store, goalService, analytics.DefaultRuleConfig(), baseLogger.Named("svc.alerts"))
	achievementService := achievementsvc.NewService(store, analytics.DefaultAchievements(), baseLogger.Named("svc.achievements"))
	recordService.OnCreated(achievementService.OnRecordCreated)

	services := handlers.Services{
		Owners:       ownerService,
		Records:      recordService,
		Reporting:    reportingService,
		Goals:        goalService,
		Benchmark:    benchmarksvc.NewService(store, baseLogger.Named("svc.benchmark")),
		Alerts:       alertService,
		Achievements: achievementService,
		Export:       exportsvc.NewService(recordService, reportingService, store, sheetsRepo, cfg.Sheets.Range, baseLogger.Named("svc.export")),
	}

	var notifier scheduler.Notifier
	if cfg.WhatsApp.Enabled() {
		client := whatsappclient.NewClient(cfg.WhatsApp)
		services.Notifier = whatsappsvc.NewNotifier(client, reportingService, baseLogger.Named("svc.whatsapp"))
		notifier = services.Notifier
	} else {
		baseLogger.Warn("whatsapp credentials missing, notifications disabled")
	}

	engine := router.New(handlers.New(services, baseLogger.Named("handlers")), ownerService, router.Options{
		AdminToken:  cfg.Auth.AdminToken,
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     limiter,
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Scheduler, store, alertService, notifier, locker, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	return mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
}
