package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"hiring-pipeline/internal/common/aws"
	"hiring-pipeline/internal/common/camunda"
	"hiring-pipeline/internal/common/config"
	"hiring-pipeline/internal/common/database"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/observability"
	"hiring-pipeline/internal/events"
	"hiring-pipeline/internal/pipeline"
	"hiring-pipeline/internal/search"
	"hiring-pipeline/internal/storage"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	zapLog  *zap.Logger
	log     logger.Logger
	obs     *observability.Observability
	pg      *database.PostgresClient
	zeebe   *camunda.Client
	store   storage.Gateway
	svc     *pipeline.Service
	closers []func()
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// newBase loads config and builds the logger and metrics.
func newBase() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel exporter unavailable, using noop meter", zap.Error(err))
		obs = observability.NewNoop()
	}

	a := &app{
		cfg:    cfg,
		zapLog: zapLog,
		log:    logger.NewZapAdapter(zapLog),
		obs:    obs,
	}
	a.onClose(func() { _ = zapLog.Sync() })
	a.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(ctx)
	})
	return a, nil
}

// newApp wires storage, search, events and the pipeline service.
func newApp(ctx context.Context, withZeebe bool) (*app, error) {
	a, err := newBase()
	if err != nil {
		return nil, err
	}
	if err := a.wire(ctx, withZeebe); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, withZeebe bool) error {
	cfg := a.cfg

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.store = store

	if withZeebe && (cfg.Camunda.Enabled || cfg.Events.Zeebe.Enabled) {
		client, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			return fmt.Errorf("zeebe client failed: %w", err)
		}
		a.zeebe = client
		a.onClose(func() { _ = client.Close() })
		a.log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})
	}

	opts := []pipeline.Option{}

	if cfg.Pipeline.SearchEnabled {
		es, err := database.NewElasticsearch(ctx, cfg.Database.Elasticsearch)
		if err != nil {
			return fmt.Errorf("elasticsearch failed: %w", err)
		}
		ix := search.NewIndexer(es, cfg.Pipeline.SearchIndex)
		if err := ix.EnsureIndex(ctx); err != nil {
			return err
		}
		opts = append(opts, pipeline.WithIndexer(ix))
		a.log.Info("Elasticsearch connected", map[string]interface{}{"index": cfg.Pipeline.SearchIndex})
	}

	publisher, err := a.openPublishers(ctx)
	if err != nil {
		return err
	}
	if publisher.Len() > 0 {
		opts = append(opts, pipeline.WithPublisher(publisher))
	}

	a.svc = pipeline.NewService(store, pipeline.ConfigFrom(cfg.Pipeline), a.log, opts...)
	return nil
}

func (a *app) openStore(ctx context.Context) (storage.Gateway, error) {
	cfg := a.cfg

	var store storage.Gateway
	switch cfg.Pipeline.Storage {
	case config.StorageMemory:
		a.log.Warn("Using in-memory storage, data is lost on exit", nil)
		store = storage.NewMemoryStore()
	default:
		pg, err := a.openPostgres(ctx)
		if err != nil {
			return nil, err
		}
		store = storage.NewPostgresStore(pg.DB)
	}

	if cfg.Pipeline.CacheEnabled {
		rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis failed: %w", err)
		}
		a.onClose(func() { _ = rdb.Close() })
		ttl := time.Duration(cfg.Pipeline.CacheTTL) * time.Second
		store = storage.NewCachedStore(store, rdb, ttl, a.log)
		a.log.Info("Redis cache enabled", map[string]interface{}{"ttl": ttl.String()})
	}
	return store, nil
}

func (a *app) openPostgres(ctx context.Context) (*database.PostgresClient, error) {
	if a.pg != nil {
		return a.pg, nil
	}
	pg, err := database.NewPostgres(ctx, a.cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres failed: %w", err)
	}
	a.pg = pg
	a.onClose(func() { _ = pg.Close() })
	a.log.Info("PostgreSQL connected", map[string]interface{}{"database": a.cfg.Database.Postgres.Database})
	return pg, nil
}

func (a *app) openPublishers(ctx context.Context) (*events.Multi, error) {
	cfg := a.cfg.Events
	multi := events.NewMulti(a.obs)

	if cfg.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.SNS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client failed: %w", err)
		}
		multi.Add("sns", events.NewSNSPublisher(client, cfg.SNS.TopicARN))
	}

	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(a.cfg.App.Name))
		if err != nil {
			return nil, fmt.Errorf("nats connect failed: %w", err)
		}
		a.onClose(func() { _ = nc.Drain() })
		multi.Add("nats", events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix))
	}

	if cfg.Zeebe.Enabled && a.zeebe != nil {
		multi.Add("zeebe", events.NewZeebePublisher(a.zeebe, cfg.Zeebe.MessageName, config.GetDuration(cfg.Zeebe.TTL)))
	}

	return multi, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
