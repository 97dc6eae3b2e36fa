// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads gatehouse configuration from defaults, an optional
// YAML file, the environment and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/logging"
)

// Session modes.
const (
	SessionModeOpaque = "opaque"
	SessionModeSigned = "signed"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config is the complete gatehouse configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis"`
	Password PasswordConfig `koanf:"password" yaml:"password"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// HTTPConfig configures the web listener.
type HTTPConfig struct {
	Addr string `koanf:"addr" yaml:"addr" jsonschema:"description=Web listen address such as :10000"`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects in-memory storage.
type DatabaseConfig struct {
	URL              string `koanf:"url" yaml:"url" jsonschema:"description=PostgreSQL connection URL; empty uses in-memory storage"`
	ConnectAttempts  int    `koanf:"connect_attempts" yaml:"connect_attempts" jsonschema:"minimum=1"`
	ConnectBackoffMS int    `koanf:"connect_backoff_ms" yaml:"connect_backoff_ms" jsonschema:"minimum=0"`
	AutoMigrate      bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// ConnectBackoff returns the initial connect backoff.
func (d DatabaseConfig) ConnectBackoff() time.Duration {
	return time.Duration(d.ConnectBackoffMS) * time.Millisecond
}

// SessionConfig configures session tokens and the session cookie.
type SessionConfig struct {
	Secret       string `koanf:"secret" yaml:"secret" jsonschema:"minLength=32,description=Cookie and token signing key"`
	Mode         string `koanf:"mode" yaml:"mode" jsonschema:"enum=opaque,enum=signed"`
	Store        string `koanf:"store" yaml:"store" jsonschema:"description=memory or postgres or redis; empty follows database.url"`
	CookieName   string `koanf:"cookie_name" yaml:"cookie_name" jsonschema:"minLength=1"`
	SecureCookie bool   `koanf:"secure_cookie" yaml:"secure_cookie"`
}

// RedisConfig configures the redis session store.
type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr"`
	Password string `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db" jsonschema:"minimum=0"`
}

// PasswordConfig tunes argon2id.
type PasswordConfig struct {
	MemoryKiB   uint32 `koanf:"memory_kib" yaml:"memory_kib" jsonschema:"minimum=8"`
	Iterations  uint32 `koanf:"iterations" yaml:"iterations" jsonschema:"minimum=1"`
	Parallelism uint8  `koanf:"parallelism" yaml:"parallelism" jsonschema:"minimum=1"`
}

// Params converts the configuration to hasher parameters.
func (p PasswordConfig) Params() auth.Argon2Params {
	params := auth.DefaultArgon2Params()
	params.Memory = p.MemoryKiB
	params.Iterations = p.Iterations
	params.Parallelism = p.Parallelism
	return params
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// Default returns the built-in configuration. The secret is left empty and
// must be supplied.
func Default() Config {
	params := auth.DefaultArgon2Params()
	return Config{
		HTTP: HTTPConfig{Addr: ":10000"},
		Database: DatabaseConfig{
			ConnectAttempts:  5,
			ConnectBackoffMS: 500,
			AutoMigrate:      true,
		},
		Session: SessionConfig{
			Mode:       SessionModeOpaque,
			CookieName: "gatehouse_session",
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379"},
		Password: PasswordConfig{
			MemoryKiB:   params.Memory,
			Iterations:  params.Iterations,
			Parallelism: params.Parallelism,
		},
		Log:     LogConfig{Format: logging.FormatJSON, Level: "info"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
	}
}

// SessionStore returns the effective session backend. When unset it follows
// the user storage: postgres with a database URL, memory otherwise.
func (c *Config) SessionStore() string {
	if c.Session.Store != "" {
		return strings.ToLower(c.Session.Store)
	}
	if c.Database.URL != "" {
		return StorePostgres
	}
	return StoreMemory
}

// SessionMode returns the session token mode in canonical form.
func (c *Config) SessionMode() string {
	return strings.ToLower(strings.TrimSpace(c.Session.Mode))
}

// Validate reports every problem in one CONFIG_INVALID error.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		add("http.addr is required")
	}
	if len(c.Session.Secret) < auth.MinSecretLength {
		add("session.secret must be at least %d bytes", auth.MinSecretLength)
	}
	if !slices.Contains([]string{SessionModeOpaque, SessionModeSigned}, c.SessionMode()) {
		add("session.mode must be %q or %q, got %q", SessionModeOpaque, SessionModeSigned, c.Session.Mode)
	}
	if c.Session.CookieName == "" {
		add("session.cookie_name is required")
	}

	switch store := c.SessionStore(); store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			add("session.store %q requires database.url", store)
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			add("session.store %q requires redis.addr", store)
		}
	default:
		add("session.store must be memory, postgres or redis, got %q", store)
	}

	if c.Database.ConnectAttempts < 1 {
		add("database.connect_attempts must be at least 1")
	}
	if c.Database.ConnectBackoffMS < 0 {
		add("database.connect_backoff_ms must not be negative")
	}
	if c.Redis.DB < 0 {
		add("redis.db must not be negative")
	}
	if err := c.Password.Params().Validate(); err != nil {
		add("password: %v", err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatJSON, logging.FormatText:
	default:
		add("log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level %q is not a level", c.Log.Level)
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() Config {
	const mask = "********"
	r := *c
	if r.Session.Secret != "" {
		r.Session.Secret = mask
	}
	if r.Redis.Password != "" {
		r.Redis.Password = mask
	}
	r.Database.URL = redactURL(r.Database.URL)
	return r
}

// redactURL masks the password in a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

// DisplayYAML renders the redacted configuration as YAML.
func (c *Config) DisplayYAML() ([]byte, error) {
	r := c.Redacted()
	out, err := yaml.Marshal(&r)
	if err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	return out, nil
}
