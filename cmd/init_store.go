package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/api"
	"github.com/dealscout/dealscout/internal/cache"
	"github.com/dealscout/dealscout/internal/config"
	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/discovery"
	"github.com/dealscout/dealscout/internal/lifecycle"
	"github.com/dealscout/dealscout/internal/metrics"
	"github.com/dealscout/dealscout/internal/resilience"
)

// appEnv holds the connections shared by every command.
type appEnv struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client // nil when caching is disabled
	Metrics *metrics.Metrics
}

// Close releases every connection held by the environment.
func (e *appEnv) Close() {
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// initEnv validates cfg for command and opens the store. The Redis cache is
// only opened when withCache is set and configured; a cache that cannot be
// reached is logged and skipped.
func initEnv(ctx context.Context, command string, withCache bool) (*appEnv, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	retry := resilience.FromConfig(cfg.Store.ConnectAttempts, cfg.Store.ConnectBackoffMs)
	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	}, retry)
	if err != nil {
		return nil, eris.Wrap(err, "connect store")
	}

	env := &appEnv{Pool: pool, Metrics: metrics.New()}

	if withCache && cfg.Cache.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.Cache.RedisURL)
		if err != nil {
			zap.L().Warn("facet cache unavailable, serving catalogs from the store",
				zap.String("component", "cmd"),
				zap.Error(err),
			)
		} else {
			env.Redis = rdb
		}
	}

	return env, nil
}

// buildDiscovery wires the discovery service to st, an optional facet cache
// and the metrics recorder.
func buildDiscovery(st discovery.Store, rdb *redis.Client, m *metrics.Metrics, c config.CacheConfig) *discovery.Service {
	opts := []discovery.Option{}
	if m != nil {
		opts = append(opts, discovery.WithRecorder(m))
	}
	if rdb != nil {
		ttl := time.Duration(c.FacetTTLMs) * time.Millisecond
		opts = append(opts, discovery.WithFacetCache(cache.NewFacetCache(rdb, ttl)))
	}
	return discovery.NewService(st, opts...)
}

// newLifecycleStore creates the Postgres lifecycle store in the sweep timezone.
func newLifecycleStore(pool db.Pool, c config.LifecycleConfig) (*lifecycle.PostgresStore, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return lifecycle.NewPostgresStore(pool, lifecycle.WithStoreLocation(loc)), nil
}

// buildSweeper creates the lifecycle sweeper for c.
func buildSweeper(st lifecycle.Store, m *metrics.Metrics, c config.LifecycleConfig) (*lifecycle.Sweeper, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	opts := []lifecycle.SweeperOption{lifecycle.WithLocation(loc)}
	if m != nil {
		opts = append(opts, lifecycle.WithRecorder(m))
	}
	return lifecycle.NewSweeper(st, time.Duration(c.IntervalMins)*time.Minute, opts...), nil
}

// buildRouter assembles the HTTP API from c.
func buildRouter(disc api.Discoverer, deals api.DealTransitioner, m *metrics.Metrics, c *config.Config) http.Handler {
	opts := api.Options{
		AllowedOrigins: c.Server.AllowedOrigins,
		RequestTimeout: time.Duration(c.Server.RequestTimeoutSecs) * time.Second,
		RateLimitRPS:   c.Server.RateLimitRPS,
		RateLimitBurst: c.Server.RateLimitBurst,
		AdminToken:     c.Server.AdminToken,
		JWTSecret:      c.Auth.JWTSecret,
		JWTIssuer:      c.Auth.Issuer,
		DefaultLimit:   c.Discovery.DefaultLimit,
	}
	if m != nil {
		opts.Observer = m
		opts.MetricsHandler = m.Handler()
	}
	return api.NewServer(disc, deals, opts).Router()
}
