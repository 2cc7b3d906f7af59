// Package app wires the storage, cache, lock and audit backends selected by
// configuration into a reconciler and a service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"meatledger/backend/internal/audit"
	"meatledger/backend/internal/cache"
	"meatledger/backend/internal/config"
	"meatledger/backend/internal/lock"
	"meatledger/backend/internal/reconcile"
	"meatledger/backend/internal/service"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/store/memory"
	pgstore "meatledger/backend/internal/store/postgres"
)

type Components struct {
	Repo       *store.Repository
	Audit      *audit.Recorder
	Reconciler *reconcile.Reconciler
	Service    *service.Service
	closers    []func() error
}

// OpenDocuments returns postgres when DATABASE_URL is set and a seeded
// in-memory store otherwise. A configured but unreachable database is an
// error; there is no silent fallback.
func OpenDocuments(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Documents, func() error, error) {
	if cfg.DatabaseURL == "" {
		log.Info("repository: in-memory")
		return memory.NewSeeded(log), func() error { return nil }, nil
	}
	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres unavailable: %w", err)
	}
	log.Info("repository: postgres")
	return pg, pg.Close, nil
}

// Wire builds the components on top of docs. Redis backs the report cache
// and the run lock when REDIS_ADDR is set and reachable; otherwise the
// report is not cached and the lock is process local.
func Wire(ctx context.Context, cfg config.Config, docs store.Documents, log *zap.Logger) *Components {
	c := &Components{Repo: store.NewRepository(docs)}

	var (
		reportCache cache.ReportCache = cache.NoopReportCache{}
		locker      lock.Locker       = lock.NewLocalLocker()
	)
	if client := openRedis(ctx, cfg, log); client != nil {
		reportCache = cache.NewRedisReportCache(client)
		locker = lock.NewRedisLocker(client)
		c.closers = append(c.closers, client.Close)
	}

	c.Audit = audit.NewRecorder(c.Repo.AuditLogs, log)
	c.Reconciler = reconcile.New(c.Repo, locker, reportCache, c.Audit, log, reconcile.Options{
		LockTTL:   cfg.ReconcileLockTTL(),
		ReportTTL: cfg.ReportCacheTTL(),
	})
	c.Service = service.New(c.Repo, c.Audit, c.Reconciler, log)
	return c
}

func openRedis(ctx context.Context, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("cache: noop, lock: local")
		return nil
	}
	client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, using noop cache and local lock", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("cache: redis, lock: redis", zap.String("addr", cfg.RedisAddr))
	return client
}

// AddCloser registers fn to run on Close, after the components' own closers.
func (c *Components) AddCloser(fn func() error) {
	c.closers = append(c.closers, fn)
}

func (c *Components) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
