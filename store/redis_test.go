package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStoreContract(t *testing.T) {
	_, client := newTestRedis(t)
	storeContract(t, NewRedisStore(client, 2*time.Hour))
}

func TestRedisStoreSubscription(t *testing.T) {
	_, client := newTestRedis(t)
	subscriptionContract(t, NewRedisStore(client, 2*time.Hour))
}

func TestRedisStoreRefreshesTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisStore(client, 2*time.Hour)
	ctx := context.Background()

	if err := s.Set(ctx, "match:T", doc{Status: "lobby"}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(time.Hour)
	if err := s.Update(ctx, "match:T", Increment("score", 1)); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("match:T"); ttl != 2*time.Hour {
		t.Fatalf("expected TTL refreshed to 2h, got %v", ttl)
	}
	mr.FastForward(3 * time.Hour)
	var d doc
	if err := s.Get(ctx, "match:T", &d); err != ErrNotFound {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRedisLocker(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client)
	ctx := context.Background()

	ok, err := l.TryLock(ctx, "host:A", "n1", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("first lock: %v %v", ok, err)
	}
	if ok, _ := l.TryLock(ctx, "host:A", "n2", 5*time.Second); ok {
		t.Fatalf("second owner should not get a held lock")
	}
	if ok, err := l.Refresh(ctx, "host:A", "n2", 5*time.Second); err != nil || ok {
		t.Fatalf("non-owner refresh: %v %v", ok, err)
	}
	if ok, err := l.Refresh(ctx, "host:A", "n1", 5*time.Second); err != nil || !ok {
		t.Fatalf("owner refresh: %v %v", ok, err)
	}
	if err := l.Unlock(ctx, "host:A", "n2"); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("lock:host:A") {
		t.Fatalf("non-owner unlock released the lock")
	}

	mr.FastForward(6 * time.Second)
	if ok, _ := l.TryLock(ctx, "host:A", "n2", 5*time.Second); !ok {
		t.Fatalf("expired lock should be takeable")
	}
	if err := l.Unlock(ctx, "host:A", "n2"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("lock:host:A") {
		t.Fatalf("owner unlock did not release")
	}
}
