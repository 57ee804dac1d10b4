package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard claims a key for a while so the same booking is not stored twice.
type Guard interface {
	// Claim returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryGuard is an in-process Guard.
type MemoryGuard struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

// NewMemoryGuard returns an empty guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{now: time.Now, expires: make(map[string]time.Time)}
}

// Claim reports false while an unexpired claim on key exists.
func (g *MemoryGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if exp, ok := g.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.expires[key] = now.Add(ttl)
	// drop stale claims while holding the lock
	for k, exp := range g.expires {
		if !now.Before(exp) {
			delete(g.expires, k)
		}
	}
	return true, nil
}

// Release drops the claim on key.
func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.expires, key)
	return nil
}

// RedisGuard shares claims across instances with SET NX.
type RedisGuard struct {
	redis *redis.Client
}

// NewRedisGuard panics on a nil client.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	if client == nil {
		panic("booking: redis client cannot be nil")
	}
	return &RedisGuard{redis: client}
}

// Claim sets key with SET NX and the given ttl.
func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.redis.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("booking: claim %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes key.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("booking: release %s: %w", key, err)
	}
	return nil
}
