// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/gatehouse/internal/xdg"
)

// EnvPrefix prefixes config environment variables. A double underscore
// separates levels: GATEHOUSE_SESSION__SECRET sets session.secret.
const EnvPrefix = "GATEHOUSE_"

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"addr":          "http.addr",
	"database-url":  "database.url",
	"session-mode":  "session.mode",
	"session-store": "session.store",
	"log-format":    "log.format",
	"log-level":     "log.level",
	"metrics-addr":  "metrics.addr",
}

// Options controls where Load reads from.
type Options struct {
	// Flags holds flags registered by BindFlags. Only flags the user set
	// are applied.
	Flags *pflag.FlagSet
	// File is an explicit config file. When empty the XDG default is used
	// if it exists.
	File string
	// DotEnv is a .env file loaded into the environment first when present.
	DotEnv string
}

// BindFlags registers the config override flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.HTTP.Addr, "web listen address")
	fs.String("database-url", d.Database.URL, "PostgreSQL URL (empty for in-memory storage)")
	fs.String("session-mode", d.Session.Mode, "session token mode (opaque|signed)")
	fs.String("session-store", d.Session.Store, "session store (memory|postgres|redis)")
	fs.String("log-format", d.Log.Format, "log format (json|text)")
	fs.String("log-level", d.Log.Level, "log level (debug|info|warn|error)")
	fs.String("metrics-addr", d.Metrics.Addr, "observability listen address (empty disables)")
}

// Load builds the configuration. Later sources override earlier ones:
// defaults, the YAML file, GATEHOUSE_* variables, the legacy PORT,
// DATABASE_URL and SECRET_KEY variables, then explicitly set flags.
func Load(opts Options) (*Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_INVALID").With("path", opts.DotEnv).Wrapf(err, "load dotenv")
		}
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("source", "defaults").Wrap(err)
	}

	path, err := resolveFile(opts.File)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("source", "env").Wrap(err)
	}

	if legacy := legacyEnv(); len(legacy) > 0 {
		if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("source", "legacy env").Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", nil, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("stage", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

func resolveFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return xdg.DefaultConfigFile() //nolint:wrapcheck // already coded
}

func loadFile(k *koanf.Koanf, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return oops.Code("CONFIG_FILE_UNREADABLE").With("path", path).Wrap(err)
	}
	if err := ValidateSchema(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	return nil
}

// envKey turns GATEHOUSE_SESSION__COOKIE_NAME into session.cookie_name.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// legacyEnv reads the variables older deployments used.
func legacyEnv() map[string]any {
	out := make(map[string]any)
	if port := os.Getenv("PORT"); port != "" {
		out["http.addr"] = ":" + port
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		out["database.url"] = dsn
	}
	if secret := os.Getenv("SECRET_KEY"); secret != "" {
		out["session.secret"] = secret
	}
	return out
}

func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"http.addr":                   d.HTTP.Addr,
		"database.url":                d.Database.URL,
		"database.connect_attempts":   d.Database.ConnectAttempts,
		"database.connect_backoff_ms": d.Database.ConnectBackoffMS,
		"database.auto_migrate":       d.Database.AutoMigrate,
		"session.secret":              d.Session.Secret,
		"session.mode":                d.Session.Mode,
		"session.store":               d.Session.Store,
		"session.cookie_name":         d.Session.CookieName,
		"session.secure_cookie":       d.Session.SecureCookie,
		"redis.addr":                  d.Redis.Addr,
		"redis.password":              d.Redis.Password,
		"redis.db":                    d.Redis.DB,
		"password.memory_kib":         d.Password.MemoryKiB,
		"password.iterations":         d.Password.Iterations,
		"password.parallelism":        d.Password.Parallelism,
		"log.format":                  d.Log.Format,
		"log.level":                   d.Log.Level,
		"metrics.addr":                d.Metrics.Addr,
	}
}
