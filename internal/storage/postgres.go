// Package storage is the Persistence Gateway: typed repository operations
// over users, OAuth clients, authorization codes, access/refresh tokens,
// settings and invite codes. It is the sole owner of mutation; every other
// component holds read-only views or issues command requests through it.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a new connection pool to PostgreSQL.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return pool, nil
}

// Gateway is the Persistence Gateway over a pgx connection pool. Every
// repository operation is a method here; all of them share the same pool
// and, where required, the same transaction.
type Gateway struct {
	pool *pgxpool.Pool
}

// New wraps a pool in a Gateway.
func New(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// Pool exposes the underlying pool for health checks.
func (g *Gateway) Pool() *pgxpool.Pool { return g.pool }
