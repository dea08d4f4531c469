package main

import (
	"context"
	"fmt"
	"net/http"

	"wallet-reconciler/config"
	kafkaEvents "wallet-reconciler/internal/adapter/events/kafka"
	"wallet-reconciler/internal/adapter/feed"
	pgStorage "wallet-reconciler/internal/adapter/storage/postgres"
	redisStorage "wallet-reconciler/internal/adapter/storage/redis"
	"wallet-reconciler/internal/core/ports"
	"wallet-reconciler/internal/service"
	"wallet-reconciler/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app owns the connections shared by serve and run.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	pool      *pgxpool.Pool
	rdb       *goredis.Client // nil when Redis is disabled or unreachable
	publisher *kafkaEvents.Publisher
	svc       *service.ReconcileService
}

func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pool = pool

	// Redis only accelerates duplicate detection; the database stays authoritative.
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without cache and rate limiting")
		} else {
			a.rdb = rdb
		}
	}

	deps := service.ReconcileDeps{
		Feed:       feed.NewClient(cfg.Feed, &http.Client{}, logger.Component(log, "feed")),
		Accounts:   pgStorage.NewAccountRepo(pool),
		Ledger:     pgStorage.NewLedgerRepo(pool),
		Transactor: pgStorage.NewTransactor(pool),
		Settings:   service.NewSettingsResolver(pgStorage.NewSettingsRepo(pool), cfg.Reconcile, cfg.Feed.Token, log),
		Runs:       pgStorage.NewRunRepo(pool),
	}
	deps.Recorder = service.NewRunRecorder(deps.Runs, logger.Component(log, "run_recorder"))
	if a.rdb != nil {
		deps.Cache = redisStorage.NewCreditedCache(a.rdb)
	}
	if cfg.Kafka.Enabled() {
		a.publisher = kafkaEvents.NewPublisher(cfg.Kafka)
		deps.Publisher = a.publisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Deposit events enabled")
	}

	a.svc = service.NewReconcileService(deps, service.ReconcileOptions{
		CreditTimeout:    cfg.Reconcile.CreditTimeout,
		CreditedCacheTTL: cfg.Reconcile.CreditedCacheTTL,
	}, logger.Component(log, "reconciler"))

	return a, nil
}

func (a *app) healthCheckers() []ports.HealthChecker {
	checkers := []ports.HealthChecker{pgStorage.NewHealthCheck(a.pool)}
	if a.rdb != nil {
		checkers = append(checkers, redisStorage.NewHealthCheck(a.rdb))
	}
	return checkers
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing kafka writer")
		}
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.pool.Close()
}
