// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store bootstraps PostgreSQL storage: connecting with retry and
// applying the embedded schema migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connect opens a pool for dsn and waits until the database answers a ping.
// The ping is attempted up to attempts times with exponential backoff
// starting at backoff.
func Connect(ctx context.Context, dsn string, attempts int, backoff time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	if err := PingWithRetry(ctx, pool, attempts, backoff); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			With("attempts", attempts).
			Wrap(err)
	}
	return pool, nil
}

// PingWithRetry pings p until it succeeds, attempts are exhausted, or ctx
// is done.
func PingWithRetry(ctx context.Context, p Pinger, attempts int, backoff time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	b := retry.NewExponential(backoff)
	b = retry.WithCappedDuration(10*time.Second, b)
	b = retry.WithMaxRetries(uint64(attempts-1), b) //nolint:gosec // attempts >= 1

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
