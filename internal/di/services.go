// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/aristath/lottolab/internal/config"
	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/metrics"
	"github.com/aristath/lottolab/internal/modules/backtest"
	"github.com/aristath/lottolab/internal/modules/correlation"
	"github.com/aristath/lottolab/internal/modules/scoring"
	"github.com/aristath/lottolab/internal/reports"
	"github.com/aristath/lottolab/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices loads the engine configuration and builds the engine with
// its cache backend, metrics and optional report archiver
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	engineCfg, err := config.LoadEngineConfig(cfg.EngineConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load engine configuration: %w", err)
	}
	container.EngineConfig = engineCfg

	registry := domain.NewLotteryRegistry()
	paytables, err := engineCfg.Register(registry)
	if err != nil {
		return fmt.Errorf("failed to register lotteries: %w", err)
	}

	store, err := newCacheStore(container, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize %s cache: %w", cfg.Cache.Backend, err)
	}
	container.CacheStore = store

	container.Metrics = metrics.New()

	scorer, err := scoring.NewHybridScorer(engineCfg.Scoring, log)
	if err != nil {
		return fmt.Errorf("failed to create scorer: %w", err)
	}

	opts := services.Options{
		Lotteries:   registry,
		Paytables:   paytables,
		Correlation: correlation.NewCachedEngine(correlation.NewEngine(engineCfg.Correlation.Threshold, log), store, cfg.Cache.TTL, log),
		Scorer:      scorer,
		Backtester:  backtest.NewEngine(log),
		Metrics:     container.Metrics,
		Genetic:     engineCfg.Genetic,
		Weights:     engineCfg.Weights,
		Backtest: services.BacktestDefaults{
			Strategy:       engineCfg.Backtest.Strategy,
			MinHistory:     engineCfg.Backtest.MinHistory,
			TrailingWindow: engineCfg.Backtest.TrailingWindow,
		},
		CorrelationWindow: engineCfg.Correlation.Window,
	}

	if cfg.Reports.Enabled() {
		archiver, err := newArchiver(cfg.Reports, log)
		if err != nil {
			return fmt.Errorf("failed to initialize report archiver: %w", err)
		}
		opts.Archiver = archiver
	}

	engine, err := services.NewEngine(opts, log)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	container.Engine = engine

	log.Info().
		Int("lotteries", len(engine.Lotteries())).
		Str("cache", store.Name()).
		Bool("archiving", engine.ArchivingEnabled()).
		Msg("Services initialized")
	return nil
}

// newCacheStore opens the configured cache backend
func newCacheStore(container *Container, cfg *config.Config, log zerolog.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case cache.BackendMemory:
		return cache.NewMemoryStore(), nil
	case cache.BackendSQLite:
		if container.CacheDB == nil {
			return nil, fmt.Errorf("cache database is not open")
		}
		return cache.NewSQLiteStore(container.CacheDB.Conn()), nil
	case cache.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		container.closers = append(container.closers, client)
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Connected to Redis cache")
		return cache.NewRedisStore(client, cfg.Cache.RedisPrefix), nil
	case cache.BackendBadger:
		store, err := cache.NewBadgerStore(cfg.Cache.BadgerPath, "")
		if err != nil {
			return nil, err
		}
		container.closers = append(container.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func newArchiver(cfg config.ReportsConfig, log zerolog.Logger) (*reports.Archiver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploader, err := reports.NewS3Uploader(ctx, reports.Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Prefix:          cfg.Prefix,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return reports.NewArchiver(uploader, cfg.Bucket, cfg.Prefix, log), nil
}
