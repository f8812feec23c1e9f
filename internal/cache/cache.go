package cache

import (
	"context"
	"time"

	"bijouterie-be/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyCatalog caches the serialized catalog listing per filter combination.
	KeyCatalog = "catalog:%s:%s" // search, category

	// KeyWebhookEvent is the fast-path duplicate check for webhook deliveries.
	// Postgres remains the source of truth via the unique (provider, event_id).
	KeyWebhookEvent = "webhook:stripe:%s"

	TTLCatalog      = 60 * time.Second
	TTLWebhookEvent = 24 * time.Hour
)

// New returns a redis client, or nil when no address is configured.
// Every helper below treats a nil client as a cache miss.
func New(addr string) *redis.Client {
	if addr == "" {
		logger.L().Info("redis not configured, catalog cache disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

func Get(ctx context.Context, rdb *redis.Client, key string) (string, bool) {
	if rdb == nil {
		return "", false
	}
	s, err := rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return s, true
}

func Set(ctx context.Context, rdb *redis.Client, key, value string, ttl time.Duration) {
	if rdb == nil {
		return
	}
	_ = rdb.Set(ctx, key, value, ttl).Err()
}

// SetNX marks key and reports whether it was newly set. Used for webhook
// event dedup: false means the event was already seen.
func SetNX(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) bool {
	if rdb == nil {
		return true
	}
	ok, err := rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Del drops a single key. Used to undo a SetNX claim that turned out premature.
func Del(ctx context.Context, rdb *redis.Client, key string) {
	if rdb == nil {
		return
	}
	_ = rdb.Del(ctx, key).Err()
}

// InvalidatePrefix drops every key under prefix. Called after admin catalog writes.
func InvalidatePrefix(ctx context.Context, rdb *redis.Client, prefix string) {
	if rdb == nil {
		return
	}
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = rdb.Del(ctx, iter.Val()).Err()
	}
}
