package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/PowerMark/internal/app/model"
)

func TestRedisCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisCache(client, time.Minute, nil)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "https://example.com"); ok {
		t.Fatal("expected miss on empty cache")
	}

	md := model.ResolvedMetadata{
		Title:      "Example",
		OGImageURL: "https://example.com/og.png",
		MediaType:  model.MediaDefault,
	}
	cache.Set(ctx, "https://example.com", md)

	got, ok := cache.Get(ctx, "https://example.com")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != md {
		t.Errorf("Get() = %+v, want %+v", got, md)
	}

	if ttl := mr.TTL(cacheKey("https://example.com")); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "https://example.com"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestNewRedisCache_DisabledWithoutTTL(t *testing.T) {
	if c := NewRedisCache(redis.NewClient(&redis.Options{}), 0, nil); c != nil {
		t.Fatal("expected nil cache when ttl is zero")
	}

	var c *RedisCache
	if _, ok := c.Get(context.Background(), "x"); ok {
		t.Fatal("nil cache must always miss")
	}
	c.Set(context.Background(), "x", model.EmptyMetadata())
}
