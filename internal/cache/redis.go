// Package cache wraps Redis for short-lived caching of hot read paths,
// mainly per-post reaction count maps.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thecueroom/backend/internal/logger"
	"go.uber.org/zap"
)

// ReactionCountsTTL bounds staleness of cached reaction count maps.
// Writes invalidate eagerly; the TTL is a backstop.
const ReactionCountsTTL = 30 * time.Second

// RedisClient wraps go-redis with a shared pool. All methods tolerate a
// nil receiver, so the server can run without Redis and the cache just
// misses every time.
type RedisClient struct {
	client *redis.Client
}

var globalRedis *RedisClient

// NewRedisClient dials Redis and verifies the connection before handing
// the wrapper back.
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc
	logger.Log.Info("✅ Redis client connected successfully", zap.String("address", addr))
	return rc, nil
}

// GetRedisClient returns the process-wide instance set by NewRedisClient.
func GetRedisClient() *RedisClient {
	return globalRedis
}

func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Thin passthroughs over the underlying client.

func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return rc.client.Get(ctx, key).Result()
}

func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

func (rc *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	return rc.client.Exists(ctx, keys...).Result()
}

func (rc *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return rc.client.Incr(ctx, key).Result()
}

func (rc *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rc.client.Expire(ctx, key, ttl).Err()
}

func (rc *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rc.client.TTL(ctx, key).Result()
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// reactionCountsKey builds the cache key for a post's reaction counts
func reactionCountsKey(postID string) string {
	return "reactions:counts:" + postID
}

// GetReactionCounts returns a cached reaction count map for a post.
// The boolean reports a cache hit; a miss or unmarshal failure is not an error.
func (rc *RedisClient) GetReactionCounts(ctx context.Context, postID string) (map[string]int, bool) {
	if rc == nil || rc.client == nil {
		return nil, false
	}

	raw, err := rc.client.Get(ctx, reactionCountsKey(postID)).Result()
	if err != nil {
		return nil, false
	}

	var counts map[string]int
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		logger.Log.Warn("Corrupt reaction counts cache entry",
			zap.String("post_id", postID),
			zap.Error(err))
		return nil, false
	}
	return counts, true
}

// SetReactionCounts caches a post's reaction count map
func (rc *RedisClient) SetReactionCounts(ctx context.Context, postID string, counts map[string]int) error {
	if rc == nil || rc.client == nil {
		return nil
	}

	data, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, reactionCountsKey(postID), data, ReactionCountsTTL).Err()
}

// InvalidateReactionCounts drops the cached count map for a post.
// Called on every reaction write so readers never see stale totals
// past the next fetch.
func (rc *RedisClient) InvalidateReactionCounts(ctx context.Context, postID string) {
	if rc == nil || rc.client == nil {
		return
	}
	if err := rc.client.Del(ctx, reactionCountsKey(postID)).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate reaction counts cache",
			zap.String("post_id", postID),
			zap.Error(err))
	}
}
