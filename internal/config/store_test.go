package config

import (
	"context"
	"testing"

	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"github.com/alicebob/miniredis/v2"
)

func openStore(t *testing.T, cfg Config) credentials.Store {
	t.Helper()
	store, closeStore, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { closeStore() })
	return store
}

func expectRoundTrip(t *testing.T, store credentials.Store) {
	t.Helper()
	ctx := context.Background()
	pair := credentials.Pair{AccessToken: "A1", RefreshToken: "R1"}

	if err := credentials.SavePair(ctx, store, pair); err != nil {
		t.Fatalf("SavePair failed: %v", err)
	}
	got, err := credentials.LoadPair(ctx, store)
	if err != nil {
		t.Fatalf("LoadPair failed: %v", err)
	}
	if got != pair {
		t.Errorf("expected %+v, got %+v", pair, got)
	}
}

func TestOpenStore_Backends(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cases := map[string]Config{
		"memory":        {Store: StoreMemory},
		"cookie":        {Store: StoreCookie, APIURL: "https://api.example.com"},
		"sqlite":        {Store: StoreSQLite, DBPath: ":memory:"},
		"sqlite sealed": {Store: StoreSQLite, DBPath: ":memory:", SealSecret: "hunter2"},
		"redis":         {Store: StoreRedis, RedisAddr: mr.Addr()},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			expectRoundTrip(t, openStore(t, cfg))
		})
	}
}

func TestOpenStore_RedisSealed(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	store := openStore(t, Config{Store: StoreRedis, RedisAddr: mr.Addr(), SealSecret: "hunter2"})
	expectRoundTrip(t, store)

	raw, err := mr.Get(credentials.DefaultRedisPrefix + credentials.AccessTokenKey)
	if err != nil {
		t.Fatalf("expected value in redis: %v", err)
	}
	if raw == "A1" {
		t.Error("expected sealed value at rest")
	}
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, closeStore, err := OpenStore(context.Background(), Config{Store: StoreRedis, RedisAddr: addr})
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
	if closeStore == nil {
		t.Error("close function must never be nil")
	}
}

func TestOpenStore_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, _, err := OpenStore(context.Background(), Config{Store: "etcd"}); err == nil {
		t.Error("expected error for unknown store")
	}
}
