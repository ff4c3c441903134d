// Package config reads the bearer tools' settings from the environment and
// builds the credential store they describe.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"git.sr.ht/~jakintosh/bearer/internal/logging"
	"git.sr.ht/~jakintosh/bearer/pkg/client"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

const (
	EnvAPIURL      = "BEARER_API_URL"
	EnvRefreshURL  = "BEARER_REFRESH_URL"
	EnvStore       = "BEARER_STORE"
	EnvDBPath      = "BEARER_DB_PATH"
	EnvRedisAddr   = "BEARER_REDIS_ADDR"
	EnvSealSecret  = "BEARER_SEAL_SECRET"
	EnvPublicPaths = "BEARER_PUBLIC_PATHS"
	EnvRefreshMode = "BEARER_REFRESH_MODE"
	EnvLogLevel    = "BEARER_LOG_LEVEL"
	EnvTimeout     = "BEARER_TIMEOUT"
)

const (
	DefaultDBPath    = "bearer.db"
	DefaultRedisAddr = "localhost:6379"
	DefaultTimeout   = 30 * time.Second
)

var (
	ErrMissingEnv = errors.New("missing required env var")
	ErrInvalidEnv = errors.New("invalid env var")
)

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreSQLite StoreKind = "sqlite"
	StoreRedis  StoreKind = "redis"
	StoreCookie StoreKind = "cookie"
)

type Config struct {
	APIURL     string
	RefreshURL string

	Store      StoreKind
	DBPath     string
	RedisAddr  string
	SealSecret string

	// PublicPathsFile names a JSON allow-list; empty keeps the default.
	PublicPathsFile string

	RefreshMode client.RefreshMode
	LogLevel    logging.Level
	Timeout     time.Duration
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// FromEnv loads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

func Load(lookup LookupFunc) (Config, error) {
	env := reader{lookup: lookup}

	cfg := Config{
		APIURL:          env.required(EnvAPIURL),
		RefreshURL:      env.optional(EnvRefreshURL, ""),
		Store:           StoreKind(env.optional(EnvStore, string(StoreMemory))),
		DBPath:          env.optional(EnvDBPath, DefaultDBPath),
		RedisAddr:       env.optional(EnvRedisAddr, DefaultRedisAddr),
		SealSecret:      env.optional(EnvSealSecret, ""),
		PublicPathsFile: env.optional(EnvPublicPaths, ""),
		Timeout:         env.duration(EnvTimeout, DefaultTimeout),
	}

	if mode, err := client.ParseRefreshMode(env.optional(EnvRefreshMode, "")); err != nil {
		env.fail(EnvRefreshMode, err)
	} else {
		cfg.RefreshMode = mode
	}
	if level, err := logging.ParseLevel(env.optional(EnvLogLevel, "")); err != nil {
		env.fail(EnvLogLevel, err)
	} else {
		cfg.LogLevel = level
	}

	if cfg.APIURL != "" {
		if u, err := url.Parse(cfg.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			env.fail(EnvAPIURL, fmt.Errorf("'%s' is not an absolute url", cfg.APIURL))
		}
	}
	switch cfg.Store {
	case StoreMemory, StoreSQLite, StoreRedis, StoreCookie:
	default:
		env.fail(EnvStore, fmt.Errorf("unknown store '%s'", cfg.Store))
	}

	if len(env.errs) > 0 {
		return Config{}, errors.Join(env.errs...)
	}
	return cfg, nil
}

// ClientOptions maps the configuration onto client.Options around store.
func (c Config) ClientOptions(store credentials.Store) client.Options {
	return client.Options{
		BaseURL:     c.APIURL,
		Store:       store,
		RefreshURL:  c.RefreshURL,
		Timeout:     c.Timeout,
		RefreshMode: c.RefreshMode,
		LogLevel:    c.LogLevel,
	}
}

// reader collects every env var problem instead of stopping at the first.
type reader struct {
	lookup LookupFunc
	errs   []error
}

func (r *reader) fail(name string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%w '%s': %w", ErrInvalidEnv, name, err))
}

func (r *reader) required(name string) string {
	v, present := r.lookup(name)
	if !present || v == "" {
		r.errs = append(r.errs, fmt.Errorf("%w '%s'", ErrMissingEnv, name))
		return ""
	}
	return v
}

func (r *reader) optional(name string, fallback string) string {
	v, present := r.lookup(name)
	if !present || v == "" {
		return fallback
	}
	return v
}

func (r *reader) duration(name string, fallback time.Duration) time.Duration {
	v, present := r.lookup(name)
	if !present || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(name, fmt.Errorf("could not be parsed as duration (\"%v\")", v))
		return fallback
	}
	return d
}
