package capability

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Cache.Get when no value is stored.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryCache keeps results for the lifetime of the process.
type MemoryCache struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: map[string]string{}}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type RedisCacheConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache shares results between runs through a Redis instance.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, cfg RedisCacheConfig) (*RedisCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis cache: address is empty")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "adcrew:tools"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", cfg.Address, err)
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+":"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (r *RedisCache) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+":"+key, value, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Cached memoises another capability. Failed invocations are not stored, and
// cache backend errors fall through to the wrapped capability.
type Cached struct {
	inner Capability
	cache Cache
}

func NewCached(inner Capability, cache Cache) *Cached {
	return &Cached{inner: inner, cache: cache}
}

func (c *Cached) Name() string        { return c.inner.Name() }
func (c *Cached) Description() string { return c.inner.Description() }

func (c *Cached) Invoke(ctx context.Context, query string) (string, error) {
	key := cacheKey(c.inner.Name(), query)
	if v, err := c.cache.Get(ctx, key); err == nil {
		return v, nil
	}
	out, err := c.inner.Invoke(ctx, query)
	if err != nil {
		return "", err
	}
	_ = c.cache.Set(ctx, key, out)
	return out, nil
}

func (c *Cached) sealed() {}

func cacheKey(name, query string) string {
	sum := sha256.Sum256([]byte(query))
	return name + ":" + hex.EncodeToString(sum[:])
}
