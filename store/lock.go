package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker grants short-lived named leases to one owner at a time.
type Locker interface {
	TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	// Refresh extends the lease if owner still holds it.
	Refresh(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name, owner string) error
}

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func lockKey(name string) string {
	return "lock:" + name
}

func (l *RedisLocker) TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKey(name), owner, ttl).Result()
}

func (l *RedisLocker) Refresh(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, l.client, []string{lockKey(name)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, name, owner string) error {
	return releaseScript.Run(ctx, l.client, []string{lockKey(name)}, owner).Err()
}

// MemoryLocker is the in-process Locker used with MemoryStore.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	owner   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease), now: time.Now}
}

func (l *MemoryLocker) TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, ok := l.leases[name]; ok && now.Before(cur.expires) {
		return false, nil
	}
	l.leases[name] = lease{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) Refresh(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cur, ok := l.leases[name]
	if !ok || cur.owner != owner || !now.Before(cur.expires) {
		return false, nil
	}
	l.leases[name] = lease{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) Unlock(ctx context.Context, name, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.leases[name]; ok && cur.owner == owner {
		delete(l.leases, name)
	}
	return nil
}
