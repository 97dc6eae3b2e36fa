// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net"

	goredis "github.com/redis/go-redis/v9"

	"github.com/holomush/gatehouse/internal/auth/postgres"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory connects to PostgreSQL.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, cfg config.DatabaseConfig) (Database, error)

	// MigratorFactory opens a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// RedisClientFactory creates the redis session store client.
	// Default: goredis.NewUniversalClient
	RedisClientFactory func(cfg config.RedisConfig) goredis.UniversalClient

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ListenerFactory creates the web listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// LogOutput receives log lines.
	// Default: os.Stderr
	LogOutput io.Writer
}

// Database is the subset of *pgxpool.Pool used by serve.
type Database interface {
	postgres.Pool
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator is the subset of store.Migrator run at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
