// Package db provides the shared Postgres pool abstraction, transaction helper,
// and the development schema used by the discovery and lifecycle stores.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/resilience"
)

// Pool is the subset of *pgxpool.Pool used by the stores. pgxmock.PgxPoolIface
// satisfies it, which is how the stores are unit tested.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Connect parses connString, opens a pgxpool and pings it. The ping is retried
// with backoff so a database that is still starting up does not abort boot.
func Connect(ctx context.Context, connString string, poolCfg PoolConfig, retry resilience.Policy) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "db: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg.MaxConns > 0 {
		maxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		minConns = poolCfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "db: create pool")
	}

	if retry.OnRetry == nil {
		retry.OnRetry = resilience.LogRetry("postgres")
	}
	if err := Ping(ctx, pool, retry); err != nil {
		pool.Close()
		return nil, err
	}

	zap.L().Info("db: connected",
		zap.Int32("max_conns", maxConns),
		zap.Int32("min_conns", minConns),
	)
	return pool, nil
}

// Ping checks connectivity, retrying transient failures per retry.
func Ping(ctx context.Context, pool Pool, retry resilience.Policy) error {
	return eris.Wrap(retry.Until(ctx, pool.Ping), "db: ping")
}
