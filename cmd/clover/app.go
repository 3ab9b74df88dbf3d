package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/player"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/importing"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// app holds the started dependencies of one command run
type app struct {
	cfg             *config.Config
	logger          ectologger.Logger
	startup         *startup.Startup
	db              database.DB
	redis           *redis.Client
	producer        *kafka.Producer
	metrics         *http.Server
	shutdownTracing func(context.Context) error
	flush           func() error
}

// newApp loads configuration and starts postgres, migrations, and redis and kafka when enabled
func newApp(ctx context.Context, metricsAddr string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, flush, err := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		flush:   flush,
	}

	a.startup.AddDependency(&startup.Dependency{
		Name: "tracing",
		StartFn: func(ctx context.Context) error {
			shutdown, err := tracing.Init(ctx, cfg.Tracing())
			if err != nil {
				return err
			}
			a.shutdownTracing = shutdown
			return nil
		},
		StopFn: func(ctx context.Context) error {
			if a.shutdownTracing == nil {
				return nil
			}
			return a.shutdownTracing(ctx)
		},
	})

	a.startup.AddDependency(&startup.Dependency{
		Name: "postgres",
		StartFn: func(ctx context.Context) error {
			db, err := database.Connect(ctx, cfg.Database(), logger)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
		StopFn: func(context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	})

	a.startup.AddDependency(&startup.Dependency{
		Name:     "migrations",
		Requires: []string{"postgres"},
		StartFn: func(context.Context) error {
			return database.NewMigrationService(logger, cfg.Migration()).MigratePostgres(a.db.SQL(), cfg.DatabaseName)
		},
	})

	if cfg.RedisEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, cfg.Redis(), logger)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			StopFn: func(context.Context) error {
				if a.redis == nil {
					return nil
				}
				return a.redis.Close()
			},
		})
	}

	if cfg.KafkaEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "kafka",
			StartFn: func(context.Context) error {
				a.producer = kafka.NewProducer(cfg.Kafka(), logger)
				return nil
			},
			StopFn: func(context.Context) error {
				if a.producer == nil {
					return nil
				}
				return a.producer.Close()
			},
		})
	}

	if metricsAddr != "" {
		a.startup.AddDependency(&startup.Dependency{
			Name: "metrics",
			StartFn: func(context.Context) error {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				a.metrics = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.WithError(err).Error("Metrics server stopped")
					}
				}()
				return nil
			},
			StopFn: func(ctx context.Context) error {
				return a.metrics.Shutdown(ctx)
			},
		})
	}

	if err := a.startup.Start(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to stop dependencies cleanly")
	}
	_ = a.flush()
}

func (a *app) store() *player.Repository {
	return player.NewRepository(a.db, a.logger)
}

func (a *app) matcher() (*matching.Matcher, error) {
	mc, err := a.cfg.Matching()
	if err != nil {
		return nil, err
	}
	return matching.NewMatcher(a.logger, a.store(), mc), nil
}

func (a *app) emitter() *events.Emitter {
	if a.producer == nil {
		return nil
	}
	return events.NewEmitter(a.producer, a.logger)
}

func (a *app) importer() (*importing.Importer, error) {
	matcher, err := a.matcher()
	if err != nil {
		return nil, err
	}

	importer := importing.NewImporter(a.logger, a.store(), matcher)
	if a.redis != nil {
		importer = importer.WithLocker(redis.NewLocker(a.redis, a.cfg.ImportLockPrefix, a.cfg.ImportLockWait), a.cfg.ImportLockTTL)
	}
	if emitter := a.emitter(); emitter != nil {
		importer = importer.WithEmitter(emitter)
	}
	return importer, nil
}

func (a *app) merger() *merging.Engine {
	engine := merging.NewEngine(a.logger, a.store()).WithBackfill(a.cfg.MergeBackfill)
	if emitter := a.emitter(); emitter != nil {
		engine = engine.WithEmitter(emitter)
	}
	return engine
}
