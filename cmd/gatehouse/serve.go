// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/auth/memory"
	"github.com/holomush/gatehouse/internal/auth/postgres"
	authredis "github.com/holomush/gatehouse/internal/auth/redis"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/logging"
	"github.com/holomush/gatehouse/internal/observability"
	"github.com/holomush/gatehouse/internal/store"
	"github.com/holomush/gatehouse/internal/web"
	"github.com/holomush/gatehouse/pkg/errutil"
)

const (
	serviceName     = "gatehouse"
	shutdownTimeout = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(nil)
}

func newServeCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the registration and login web server together with the
metrics and health endpoints. Storage is PostgreSQL when database.url is set
and in-memory otherwise.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, deps)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = func(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
			return store.Connect(ctx, cfg.URL, cfg.ConnectAttempts, cfg.ConnectBackoff()) //nolint:wrapcheck // already coded
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL) //nolint:wrapcheck // already coded
		}
	}
	if out.RedisClientFactory == nil {
		out.RedisClientFactory = func(cfg config.RedisConfig) goredis.UniversalClient {
			return goredis.NewUniversalClient(&goredis.UniversalOptions{
				Addrs:    []string{cfg.Addr},
				Password: cfg.Password,
				DB:       cfg.DB,
			})
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	return &out
}

// storage holds the selected backends and what is needed to check and
// release them.
type storage struct {
	users    auth.UserStore
	sessions auth.SessionStore
	checks   []func(ctx context.Context) error
	closers  []func()
}

func (s *storage) ready(ctx context.Context) error {
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStorage connects the configured backends, running migrations first
// when enabled.
func openStorage(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (*storage, error) {
	st := &storage{}

	var db Database
	if cfg.Database.URL != "" {
		if cfg.Database.AutoMigrate {
			if err := autoMigrate(cfg.Database.URL, deps, logger); err != nil {
				return nil, err
			}
		}

		var err error
		db, err = deps.DatabaseFactory(ctx, cfg.Database)
		if err != nil {
			return nil, oops.With("operation", "connect to database").Wrap(err)
		}
		st.closers = append(st.closers, db.Close)
		st.checks = append(st.checks, db.Ping)
		st.users = postgres.NewUserStore(db)
		logger.Info("connected to database")
	} else {
		st.users = memory.NewUserStore()
		logger.Warn("no database configured, accounts are kept in memory")
	}

	switch backend := cfg.SessionStore(); backend {
	case config.StorePostgres:
		st.sessions = postgres.NewSessionStore(db)
	case config.StoreRedis:
		client := deps.RedisClientFactory(cfg.Redis)
		sessions := authredis.NewSessionStore(client, "")
		st.closers = append(st.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("error closing redis client", "error", err)
			}
		})
		st.checks = append(st.checks, sessions.Ping)
		st.sessions = sessions
	default:
		st.sessions = memory.NewSessionStore()
	}
	logger.Info("storage ready", "session_store", cfg.SessionStore())
	return st, nil
}

func autoMigrate(databaseURL string, deps *ServeDeps, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("database schema up to date")
	return nil
}

func newSessionManager(cfg *config.Config, sessions auth.SessionStore) (auth.SessionManager, error) {
	if cfg.SessionMode() == config.SessionModeSigned {
		return auth.NewSignedSessions(sessions, []byte(cfg.Session.Secret)) //nolint:wrapcheck // already coded
	}
	return auth.NewTokenSessions(sessions) //nolint:wrapcheck // already coded
}

// ginMode runs gin in debug mode only when debug logging is on.
func ginMode(logger *slog.Logger) string {
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}

// runServeWithDeps starts the server and blocks until ctx is cancelled, a
// shutdown signal arrives or a server fails.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck // already coded
	}

	logger, err := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level, deps.LogOutput)
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	logger.Info("starting gatehouse",
		"addr", cfg.HTTP.Addr,
		"session_mode", cfg.SessionMode(),
		"session_store", cfg.SessionStore(),
	)

	st, err := openStorage(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer st.close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		obsServer ObservabilityServer
		metrics   *observability.Metrics
		obsErrCh  <-chan error
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, st.ready, logger)
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		metrics = obsServer.Metrics()
	}

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Password.Params())
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}
	serviceOpts := []auth.ServiceOption{auth.WithLogger(logger)}
	if metrics != nil {
		serviceOpts = append(serviceOpts, auth.WithObserver(metrics))
	}
	svc, err := auth.NewService(st.users, hasher, serviceOpts...)
	if err != nil {
		return err //nolint:wrapcheck // already coded
	}

	sessionManager, err := newSessionManager(cfg, st.sessions)
	if err != nil {
		return err
	}

	gin.SetMode(ginMode(logger))
	var observer web.HTTPObserver
	if metrics != nil {
		observer = metrics
	}
	handler := web.New(web.Options{
		CookieSecret: []byte(cfg.Session.Secret),
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
	}, svc, sessionManager, logger, observer)

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	httpErrCh := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			httpErrCh <- serveErr
		}
	}()

	cmd.Printf("gatehouse listening on %s\n", listener.Addr())
	logger.Info("gatehouse ready", "addr", listener.Addr().String())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	case err := <-httpErrCh:
		runErr = oops.Code("SERVE_FAILED").Wrap(err)
	case err := <-obsErrCh:
		if err != nil {
			runErr = oops.Code("SERVE_FAILED").With("server", "observability").Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping web server", err)
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return runErr
}

func stopObservability(obsServer ObservabilityServer, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		errutil.LogError(logger, "error stopping observability server", err)
	}
}
