package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cliphive/cliphive-backend/api/controllers"
	"github.com/cliphive/cliphive-backend/api/routes"
	"github.com/cliphive/cliphive-backend/internal/acquire"
	"github.com/cliphive/cliphive-backend/internal/mediameta"
	"github.com/cliphive/cliphive-backend/internal/pipeline"
	"github.com/cliphive/cliphive-backend/internal/policy"
	"github.com/cliphive/cliphive-backend/internal/records"
	"github.com/cliphive/cliphive-backend/internal/thumbnail"
	"github.com/cliphive/cliphive-backend/internal/transfer"
	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/db"
	"github.com/cliphive/cliphive-backend/pkg/logger"
	"github.com/cliphive/cliphive-backend/pkg/metrics"
	"github.com/cliphive/cliphive-backend/pkg/redis"
	"github.com/cliphive/cliphive-backend/pkg/storage/objstore"
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

	if err := db.MaybeAutoMigrate(context.Background(), dbClient, cfg.FeatureFlags, logg); err != nil {
		logg.Error(context.Background(), "failed to migrate schema", err)
		os.Exit(1)
	}

	storeClient, err := objstore.NewClient(context.Background(), cfg.ObjectStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object store client", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	promRegistry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(promRegistry)

	coordinator, err := transfer.NewCoordinator(storeClient, transfer.Config{
		VideoBucket:     cfg.ObjectStore.VideoBucket,
		ThumbnailBucket: cfg.ObjectStore.ThumbnailBucket,
	}, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build transfer coordinator", err)
		os.Exit(1)
	}

	extractor := mediameta.NewExtractor(cfg.Media, logg)
	thumbnails := thumbnail.NewGenerator(cfg.Media, cfg.Thumbnail, logg)
	assetsRepo := records.NewRepository(dbClient.DB())
	committer := records.NewCommitter(assetsRepo, logg, pipelineMetrics)
	uploadPolicy := policy.FromAppConfig(cfg.Policy)

	registry := pipeline.NewRegistry(func(acq acquire.Acquirer) *pipeline.Pipeline {
		deps := pipeline.Deps{
			Acquirer:         acq,
			Extractor:        extractor,
			Thumbs:           thumbnails,
			Transfer:         coordinator,
			Committer:        committer,
			Policy:           uploadPolicy,
			Logger:           logg,
			Metrics:          pipelineMetrics,
			MaxRecordSeconds: cfg.Media.MaxRecordSeconds,
		}
		if redisClient != nil {
			deps.Sink = redisClient
		}
		return pipeline.New(deps)
	})

	pingers := map[string]controllers.Pinger{
		"db":       dbClient,
		"objstore": storeClient,
	}
	if redisClient != nil {
		pingers["redis"] = redisClient
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
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Registry:   registry,
			AssetsRepo: assetsRepo,
			Pingers:    pingers,
			Gatherer:   promRegistry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
