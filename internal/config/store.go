package config

import (
	"context"
	"fmt"

	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// OpenStore builds the credential store the configuration names. The returned
// close function releases its connection and is never nil.
func OpenStore(
	ctx context.Context,
	cfg Config,
) (
	credentials.Store,
	func() error,
	error,
) {
	noop := func() error { return nil }

	var sealer *credentials.Sealer
	if cfg.SealSecret != "" {
		s, err := credentials.NewSealer([]byte(cfg.SealSecret))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to init sealer: %w", err)
		}
		sealer = s
	}

	switch cfg.Store {
	case StoreMemory, "":
		return credentials.NewMemoryStore(), noop, nil

	case StoreCookie:
		store, err := credentials.NewCookieStore(cfg.APIURL, credentials.DefaultCookieOptions())
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case StoreSQLite:
		store, err := credentials.NewSQLiteStore(cfg.DBPath, sealer)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		store := credentials.NewRedisStore(rdb, credentials.RedisOptions{Sealer: sealer})
		return store, rdb.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store '%s'", cfg.Store)
	}
}
