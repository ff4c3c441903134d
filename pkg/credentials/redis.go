package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "bearer:credential:"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// Prefix namespaces keys, e.g. per user or per device.
	Prefix string
	// TTL expires stored values; zero keeps them until removed.
	TTL    time.Duration
	Sealer *Sealer
}

// RedisStore keeps credentials in Redis, letting several processes share one
// session.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	sealer *Sealer
}

func NewRedisStore(rdb redis.UniversalClient, opts RedisOptions) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		ttl:    opts.TTL,
		sealer: opts.Sealer,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	stored, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", ErrAbsent
	}
	if err != nil {
		return "", fmt.Errorf("couldn't get credential: %w", err)
	}
	return open(s.sealer, key, stored)
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	stored, err := seal(s.sealer, key, value)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(key), stored, s.ttl).Err(); err != nil {
		return fmt.Errorf("couldn't set credential: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("couldn't delete credential: %w", err)
	}
	return nil
}
