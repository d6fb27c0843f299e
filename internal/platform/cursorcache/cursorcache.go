// Package cursorcache implements the Redis cache-aside read path (A3) for the store-cursor
// registry (C5): a read-through cache keyed by "storecursor:<storeId>" that keeps the poller's
// cursor read off the Postgres hot path. Postgres remains the single source of truth for the
// watermark — writes always land there first, and this cache is invalidated (never written to
// directly on update) so a stale cache entry can only ever be a harmless extra DB round trip,
// never a corrupted watermark.
package cursorcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mywaytech/dentstage-sync/common"
	"github.com/mywaytech/dentstage-sync/common/mredis"
	"github.com/mywaytech/dentstage-sync/internal/domain/storecursor"
)

const keyPrefix = "storecursor:"

// RedisCache implements storecursor.Cache on top of mredis.RedisConnection.
type RedisCache struct {
	connection *mredis.RedisConnection
}

// New builds a RedisCache bound to connection.
func New(connection *mredis.RedisConnection) *RedisCache {
	return &RedisCache{connection: connection}
}

func key(storeId string) string {
	return keyPrefix + storeId
}

// Get reads the cached cursor for storeId. Any failure to reach Redis or to decode the cached
// value is treated as a cache miss, never an error — the caller falls back to Postgres.
func (r *RedisCache) Get(ctx context.Context, storeId string) (storecursor.Cursor, bool) {
	client, err := r.connection.GetDB(ctx)
	if err != nil {
		return storecursor.Cursor{}, false
	}

	raw, err := client.Get(ctx, key(storeId)).Result()
	if err != nil {
		return storecursor.Cursor{}, false
	}

	var cursor storecursor.Cursor
	if err := json.Unmarshal([]byte(raw), &cursor); err != nil {
		return storecursor.Cursor{}, false
	}

	return cursor, true
}

// Set writes cursor to the cache with ttl. Failures are logged and swallowed: the cache is a
// convenience, never required for correctness.
func (r *RedisCache) Set(ctx context.Context, cursor storecursor.Cursor, ttl time.Duration) {
	client, err := r.connection.GetDB(ctx)
	if err != nil {
		return
	}

	raw, err := json.Marshal(cursor)
	if err != nil {
		return
	}

	if err := client.Set(ctx, key(cursor.StoreId), raw, ttl).Err(); err != nil {
		common.NewLoggerFromContext(ctx).Warnf("cursorcache: failed to cache cursor for %q: %v", cursor.StoreId, err)
	}
}

// Invalidate removes the cached entry for storeId so the next Get falls through to Postgres.
func (r *RedisCache) Invalidate(ctx context.Context, storeId string) {
	client, err := r.connection.GetDB(ctx)
	if err != nil {
		return
	}

	if err := client.Del(ctx, key(storeId)).Err(); err != nil {
		common.NewLoggerFromContext(ctx).Warnf("cursorcache: failed to invalidate cursor for %q: %v", storeId, err)
	}
}
