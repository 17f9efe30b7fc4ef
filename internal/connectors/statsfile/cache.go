package statsfile

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache stores raw documents by key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by a Redis server.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedisCache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisCache(opts RedisOptions) *RedisCache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "samadhi:stats:"
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: prefix,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	blob, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Invalidate drops cached documents so the next fetch reads the source.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.client.Del(ctx, full...).Err()
}

// Ping checks the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedSource is a read-through cache in front of another source. Cache
// failures are logged and bypassed.
type CachedSource struct {
	inner Source
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedSource(inner Source, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedSource {
	return &CachedSource{inner: inner, cache: cache, ttl: ttl, log: log}
}

func (s *CachedSource) Describe() string {
	return s.inner.Describe() + "+cache"
}

func (s *CachedSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	blob, hit, err := s.cache.Get(ctx, name)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("document", name).Msg("statistics cache read failed")
	case hit:
		return blob, nil
	}

	blob, err = s.inner.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, name, blob, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("document", name).Msg("statistics cache write failed")
	}
	return blob, nil
}
