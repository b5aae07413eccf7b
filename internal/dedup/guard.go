package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nochex:notification"

// Guard marks a notification as in flight so that concurrent deliveries of
// the same payload are processed once. Keys expire after the TTL even if
// never released.
type Guard interface {
	// Acquire returns false when key is already held.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, keyPrefix+":"+key, "1", g.ttl).Result()
}

func (g *redisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, keyPrefix+":"+key).Err()
}

type memoryGuard struct {
	mu     sync.Mutex
	held   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
}

// NewMemoryGuard returns a process-local Guard.
func NewMemoryGuard(ttl time.Duration) Guard {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &memoryGuard{
		held:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: time.Now().Add(ttl),
	}
}

func (g *memoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.held[key]; ok && exp.After(now) {
		return false, nil
	}
	g.held[key] = now.Add(g.ttl)

	if now.After(g.nextGC) {
		for k, exp := range g.held {
			if exp.Before(now) {
				delete(g.held, k)
			}
		}
		g.nextGC = now.Add(g.ttl)
	}

	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
	return nil
}

// NewGuard builds a Redis guard and falls back to memory when Redis is not
// configured or unreachable. The error is returned alongside the fallback.
func NewGuard(addr, pass string, db int, ttl time.Duration) (Guard, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if addr == "" {
		return NewMemoryGuard(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemoryGuard(ttl), err
	}

	return &redisGuard{client: client, ttl: ttl}, nil
}
