package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerMark/internal/app/model"
	"go.uber.org/zap"
)

// KeyPrefixMetadata namespaces cached resolutions in Redis.
const KeyPrefixMetadata = "metadata:"

// Cache stores resolved metadata for a short while. Implementations must
// treat every failure as a miss.
type Cache interface {
	Get(ctx context.Context, targetURL string) (model.ResolvedMetadata, bool)
	Set(ctx context.Context, targetURL string, md model.ResolvedMetadata)
}

// RedisCache keeps resolutions in Redis. A bloom filter of keys written by this
// process lets most misses skip the round trip.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// NewRedisCache returns nil when ttl is not positive, which disables caching.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
		seen:   bloom.NewWithEstimates(100_000, 0.01),
	}
}

func cacheKey(targetURL string) string {
	sum := sha256.Sum256([]byte(targetURL))
	return KeyPrefixMetadata + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, targetURL string) (model.ResolvedMetadata, bool) {
	if c == nil {
		return model.ResolvedMetadata{}, false
	}
	key := cacheKey(targetURL)

	c.mu.Lock()
	maybe := c.seen.TestString(key)
	c.mu.Unlock()
	if !maybe {
		return model.ResolvedMetadata{}, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("metadata cache read failed", zap.Error(err))
		}
		return model.ResolvedMetadata{}, false
	}

	var md model.ResolvedMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		c.logger.Warn("metadata cache entry corrupt", zap.String("key", key), zap.Error(err))
		return model.ResolvedMetadata{}, false
	}
	return md, true
}

func (c *RedisCache) Set(ctx context.Context, targetURL string, md model.ResolvedMetadata) {
	if c == nil {
		return
	}
	key := cacheKey(targetURL)

	data, err := json.Marshal(md)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("metadata cache write failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.seen.AddString(key)
	c.mu.Unlock()
}
