package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"vn.io.arda/notification-pipeline/internal/application"
	"vn.io.arda/notification-pipeline/internal/config"
	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/infrastructure/directory"
	"vn.io.arda/notification-pipeline/internal/infrastructure/memory"
	"vn.io.arda/notification-pipeline/internal/infrastructure/postgres"
	"vn.io.arda/notification-pipeline/internal/infrastructure/redisqueue"
	"vn.io.arda/notification-pipeline/internal/infrastructure/sqlite"
	kafkaconsumer "vn.io.arda/notification-pipeline/internal/kafka"
	"vn.io.arda/notification-pipeline/internal/metrics"
	"vn.io.arda/notification-pipeline/internal/routing"
	transporthttp "vn.io.arda/notification-pipeline/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Str("store", cfg.Database.Driver).Msg("starting notification-pipeline")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Store ────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open notification store")
	}
	defer closeStore()

	// ── Deferred-route queue ─────────────────────────────────────────────────
	var pending application.PendingQueue = application.NewMemoryQueue()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis ping failed")
		}
		pending = redisqueue.New(rdb, cfg.Redis.Key)
		log.Info().Str("addr", cfg.Redis.Addr).Str("key", cfg.Redis.Key).Msg("redis pending queue connected")
	}

	// ── Metrics ──────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ── Routing & SSE Hub ────────────────────────────────────────────────────
	hub := transporthttp.NewHub()
	resolver := directory.New(cfg.Directory.BaseURL, cfg.Directory.Token, directory.WithCacheTTL(cfg.Directory.CacheTTL))
	filters := application.NewFilterChain()
	router := routing.New(hub, resolver, filters)

	// ── Application Service ──────────────────────────────────────────────────
	svc := application.NewService(store, router,
		application.WithConfig(application.Config{
			MaxPerChannel: cfg.Retention.MaxPerChannel,
			MaxTotal:      cfg.Retention.MaxTotal,
			BucketWindow:  cfg.Identity.BucketWindow,
		}),
		application.WithFilterChain(filters),
		application.WithRenderer(hub),
		application.WithPendingQueue(pending),
		application.WithMetrics(m),
	)
	if err := svc.RebuildChannelCounts(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to rebuild channel counts")
	}

	// An attached device makes navigation possible again.
	hub.OnConnect(func() {
		if _, err := svc.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("processing deferred routes failed")
		}
	})

	events := svc.Events().Subscribe()
	go hub.Forward(events)

	// ── HTTP Server ──────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(svc, hub)
	e := transporthttp.NewRouter(handler, []byte(cfg.Auth.JWTSecret), reg)

	g, gctx := errgroup.WithContext(ctx)

	// ── Kafka Consumer ───────────────────────────────────────────────────────
	if cfg.Kafka.Enabled {
		consumer, err := kafkaconsumer.New(
			cfg.Kafka.Brokers,
			cfg.Kafka.ConsumerGroupID,
			cfg.Kafka.Topics,
			svc,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka consumer")
		}
		g.Go(func() error {
			consumer.Start(gctx)
			return nil
		})
		log.Info().Strs("topics", cfg.Kafka.Topics).Msg("kafka consumer started")
	}

	// ── Retention Job ────────────────────────────────────────────────────────
	if cfg.Retention.PruneInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Retention.PruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if _, err := svc.Prune(gctx); err != nil && gctx.Err() == nil {
						log.Error().Err(err).Msg("scheduled retention pruning failed")
					}
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	// ── Start HTTP Server ────────────────────────────────────────────────────
	g.Go(func() error {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ── Graceful Shutdown ────────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		events.Close()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("notification-pipeline exited with error")
	}
	log.Info().Msg("notification-pipeline stopped")
}

// openStore opens the store selected by cfg.Driver and returns its closer.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (domain.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Path).Msg("sqlite store opened")
		return s, func() { _ = s.Close() }, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store, notifications are lost on restart")
		return memory.New(), func() {}, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().Msg("postgres connected")
		return postgres.New(pool), pool.Close, nil
	}
}
