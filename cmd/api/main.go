package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/feastbook/feastbook-backend/api/routes"
	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/internal/posts"
	"github.com/feastbook/feastbook-backend/internal/profiles"
	"github.com/feastbook/feastbook-backend/internal/ratings"
	"github.com/feastbook/feastbook-backend/internal/recipes"
	"github.com/feastbook/feastbook-backend/pkg/config"
	"github.com/feastbook/feastbook-backend/pkg/db"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/metrics"
	"github.com/feastbook/feastbook-backend/pkg/migrate"
	"github.com/feastbook/feastbook-backend/pkg/redis"
	"github.com/feastbook/feastbook-backend/pkg/storage/localfs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	syncer := media.NewSyncer(store, media.NewRegistry(), contexts, cfg.Media, logg, mediaMetrics)
	reader := media.NewReader(store, contexts)

	postService, err := posts.NewService(posts.ServiceParams{
		Repo:  posts.NewRepository(dbClient),
		DB:    dbClient,
		Media: syncer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create post service", err)
		os.Exit(1)
	}

	recipeService, err := recipes.NewService(recipes.ServiceParams{
		Repo:  recipes.NewRepository(dbClient),
		DB:    dbClient,
		Media: syncer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recipe service", err)
		os.Exit(1)
	}

	ratingService, err := ratings.NewService(ratings.ServiceParams{
		Repo:  ratings.NewRepository(dbClient),
		DB:    dbClient,
		Media: syncer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rating service", err)
		os.Exit(1)
	}

	profileService, err := profiles.NewService(profiles.ServiceParams{
		Repo:  profiles.NewRepository(dbClient),
		DB:    dbClient,
		Media: syncer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profile service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			reader,
			postService,
			recipeService,
			ratingService,
			profileService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
