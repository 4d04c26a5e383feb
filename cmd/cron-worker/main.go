package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/feastbook/feastbook-backend/internal/cron"
	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/config"
	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/metrics"
	"github.com/feastbook/feastbook-backend/pkg/migrate"
	"github.com/feastbook/feastbook-backend/pkg/redis"
	"github.com/feastbook/feastbook-backend/pkg/storage/localfs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store := localfs.NewClient()
	contexts := media.NewContexts(cfg.Media)
	for _, dir := range contexts.AllDirs() {
		if err := store.EnsureDir(dir); err != nil {
			logg.Error(context.Background(), "failed to provision media storage", err)
			os.Exit(1)
		}
	}

	mediaMetrics := metrics.NewMediaMetrics(prometheus.DefaultRegisterer)
	reconciler := media.NewReconciler(
		dbClient.DB(),
		store,
		media.NewRegistry(),
		contexts,
		cfg.Media.ReconcilerGrace,
		logg,
		mediaMetrics,
	)

	sweepJob, err := cron.NewMediaSweepJob(cron.MediaSweepJobParams{
		Logger:  logg,
		Sweeper: reconciler,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create media sweep job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
