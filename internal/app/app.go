// Package app initializes and holds long-lived services, acting as the
// dependency injection container for the commands.
package app

import (
	"context"
	"fmt"
	"time"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/1009rishit/Case-data/internal/captcha"
	"github.com/1009rishit/Case-data/internal/clock/system"
	"github.com/1009rishit/Case-data/internal/config"
	"github.com/1009rishit/Case-data/internal/court"
	"github.com/1009rishit/Case-data/internal/hash/sha256"
	"github.com/1009rishit/Case-data/internal/logging"
	"github.com/1009rishit/Case-data/internal/metrics"
	memorypub "github.com/1009rishit/Case-data/internal/publisher/memory"
	gcppub "github.com/1009rishit/Case-data/internal/publisher/pubsub"
	memorystore "github.com/1009rishit/Case-data/internal/store/memory"
	pgstore "github.com/1009rishit/Case-data/internal/store/postgres"
	gcsblob "github.com/1009rishit/Case-data/internal/storage/gcs"
	localblob "github.com/1009rishit/Case-data/internal/storage/local"
	memoryblob "github.com/1009rishit/Case-data/internal/storage/memory"
)

// App holds the shared services wired from configuration. It is built once
// at startup and handed to the commands.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     court.Store
	Blobs     court.BlobStore
	Solver    court.Solver
	Publisher court.Publisher
	Hasher    court.Hasher
	Clock     court.Clock

	pubsubClient  *gcpubsub.Client
	storageClient *gcstorage.Client
}

// New wires every service the configuration selects. It fails fast when a
// selected backend cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{
		Config: cfg,
		Logger: logger,
		Hasher: sha256.New(),
		Clock:  system.New(),
	}

	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		store, err := pgstore.New(ctx, pgstore.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.Store = store
	case "memory":
		logger.Info("using in-memory metadata store; records are not durable")
		a.Store = memorystore.New()
	default:
		return nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
	}

	switch cfg.Storage.Provider {
	case "gcs":
		logger.Info("using gcs blob store", zap.String("bucket", cfg.Storage.Bucket))
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.storageClient = client
		blobs, err := gcsblob.New(client, gcsblob.Config{
			Bucket: cfg.Storage.Bucket,
			Prefix: cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		a.Blobs = blobs
	case "local":
		logger.Info("using local blob store", zap.String("dir", cfg.Storage.LocalDir))
		blobs, err := localblob.New(localblob.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local blob store: %w", err)
		}
		a.Blobs = blobs
	case "memory":
		logger.Info("using in-memory blob store; artifacts are not durable")
		a.Blobs = memoryblob.NewBlobStore()
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}

	if cfg.Captcha.BaseURL != "" {
		solver, err := captcha.New(captcha.Config{
			BaseURL:      cfg.Captcha.BaseURL,
			Key:          cfg.Captcha.Key,
			InitialDelay: time.Duration(cfg.Captcha.InitialDelaySeconds) * time.Second,
			PollInterval: time.Duration(cfg.Captcha.PollIntervalSeconds) * time.Second,
			MaxPolls:     cfg.Captcha.MaxPolls,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init captcha client: %w", err)
		}
		a.Solver = solver
	} else {
		logger.Warn("no captcha service configured; image challenges will fail")
	}

	if cfg.PubSub.Enabled {
		logger.Info("connecting to pubsub", zap.String("topic", cfg.PubSub.Topic))
		client, err := gcpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		a.pubsubClient = client
		a.Publisher = gcppub.New(client)
	} else {
		a.Publisher = memorypub.New()
	}

	return a, nil
}

// Close releases every owned resource.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
	if a.storageClient != nil {
		_ = a.storageClient.Close()
	}
	if p, ok := a.Publisher.(*gcppub.Publisher); ok {
		p.Stop()
	}
	if a.pubsubClient != nil {
		_ = a.pubsubClient.Close()
	}
	_ = a.Logger.Sync()
}
