package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/etzlertech/rancheye-02-analysis/internal/alerts"
	"github.com/etzlertech/rancheye-02-analysis/internal/cache"
	"github.com/etzlertech/rancheye-02-analysis/internal/images"
	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
	"github.com/etzlertech/rancheye-02-analysis/internal/processor"
	"github.com/etzlertech/rancheye-02-analysis/internal/services/health"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/config"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/server"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/db"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/object"
	azblobstore "github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/object/azblob"
	localstore "github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/object/local"
	s3store "github.com/etzlertech/rancheye-02-analysis/internal/shared/storage/object/s3"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
	"github.com/etzlertech/rancheye-02-analysis/internal/tasks"
	"github.com/etzlertech/rancheye-02-analysis/internal/usage"
)

// App holds the worker's wired dependencies.
type App struct {
	Config    config.Config
	DB        *sql.DB
	Store     object.ObjectStore
	Registry  *llm.Registry
	Cache     *cache.Service
	Tracker   *usage.Tracker
	Repo      tasks.Repo
	Images    *images.Service
	Publisher alerts.Publisher
	Processor *processor.Processor
	Router    *gin.Engine
}

// Build prepares shared dependencies. Without DATABASE_URL in dev/local the
// repositories run in memory.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	pricing, err := usage.LoadPricing(cfg.PricingFile)
	if err != nil {
		return nil, err
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Registry:  registry,
		Publisher: publisher,
	}

	var (
		cacheStore cache.Store
		usageStore usage.Store
		imageRepo  images.MetadataRepo
	)
	if sqlDB != nil {
		cacheStore = &cache.PGStore{DB: sqlDB}
		usageStore = usage.NewPGStore(sqlDB)
		imageRepo = &images.PGRepo{DB: sqlDB}
		app.Repo = &tasks.PGRepo{DB: sqlDB}
	} else {
		cacheStore = cache.NewMemoryStore()
		usageStore = usage.NewMemoryStore()
		imageRepo = images.NewMemoryRepo()
		app.Repo = tasks.NewMemoryRepo()
	}

	app.Cache = cache.NewService(cacheStore, cfg.CacheTTL)
	app.Tracker = usage.NewTracker(usageStore, pricing)
	app.Images = images.NewService(imageRepo, store)
	app.Processor = processor.New(app.Repo, app.Images, registry, app.Cache, app.Tracker, publisher, processor.Options{
		BatchSize:    cfg.BatchSize,
		MaxWorkers:   cfg.MaxWorkers,
		ErrorBackoff: cfg.ErrorBackoff,
		ImageBudget:  cfg.ImageMaxBytes,
		DryRun:       cfg.DryRun,
	})

	var pinger health.Pinger
	if sqlDB != nil {
		pinger = sqlDB
	}
	app.Router = server.NewRouter(server.Deps{
		Health: health.NewService(pinger, func() []string { return providerNames(registry) }),
		Costs:  app.Tracker,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"database":     sqlDB != nil,
		"object_store": cfg.ObjectStoreType,
		"alert_sink":   cfg.AlertSink,
		"providers":    providerNames(registry),
		"dry_run":      cfg.DryRun,
	})
	return app, nil
}

// Close releases the publisher and database connection.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultWorkerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	case "azblob":
		if strings.TrimSpace(cfg.AzureAccount) == "" || strings.TrimSpace(cfg.AzureKey) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=azblob requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return azblobstore.New(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer, "")
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (alerts.Publisher, error) {
	switch cfg.AlertSink {
	case "sqs":
		if strings.TrimSpace(cfg.AlertQueueURL) == "" {
			return nil, fmt.Errorf("ALERT_SINK=sqs requires ALERT_SQS_QUEUE_URL")
		}
		return alerts.NewSQSPublisher(ctx, cfg.AWSRegion, cfg.AlertQueueURL)
	case "nats":
		return alerts.NewNATSPublisher(cfg.NATSURL, cfg.AlertSubject)
	default:
		return alerts.Noop{}, nil
	}
}

func providerNames(registry *llm.Registry) []string {
	providers := registry.Providers()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, string(p))
	}
	return names
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
