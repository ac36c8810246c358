package rekap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "rekap:version"
	degradedTTL     = 30 * time.Second
)

// Cache wraps Redis based caching with versioning controls.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// cached returns the value stored under key, or runs load and stores its
// result for ttl(value). A zero ttl skips the store. Redis errors degrade to a
// miss so only load errors reach the caller.
func cached[T any](ctx context.Context, c *Cache, logger *slog.Logger, key string, ttl func(T) time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var value T
		decodeErr := json.Unmarshal(payload, &value)
		if decodeErr == nil {
			return value, nil
		}
		logger.Warn("rekap cache decode", slog.String("key", key), slog.Any("error", decodeErr))
	case !errors.Is(err, redis.Nil):
		logger.Warn("rekap cache read", slog.String("key", key), slog.Any("error", err))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	expiry := ttl(value)
	if expiry <= 0 {
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("rekap cache encode", slog.String("key", key), slog.Any("error", err))
		return value, nil
	}
	if err := c.client.Set(ctx, key, raw, expiry).Err(); err != nil {
		logger.Warn("rekap cache write", slog.String("key", key), slog.Any("error", err))
	}
	return value, nil
}

// reportTTL keeps complete reports for the cache TTL. Reports with failed
// offices expire after degradedTTL so the next pass reads those endpoints
// again.
func (c *Cache) reportTTL(report Report) time.Duration {
	if len(report.Failures) > 0 && c.ttl > degradedTTL {
		return degradedTTL
	}
	return c.ttl
}

// Bump moves every cached report out of reach by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func keyReport(table string, w Window) string {
	return strings.Join([]string{"rekap", "report", table, w.Key()}, ":")
}
