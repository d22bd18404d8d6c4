package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// AcquireGenerationLock takes the per-campaign regeneration lock. It returns
// false when another run already holds the lock. The TTL bounds how long a
// crashed run can keep the campaign blocked.
func (r *RedisStore) AcquireGenerationLock(campaignID int, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("perfgen:lock:campaign:%d", campaignID)
	return r.Client.SetNX(r.Ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// ReleaseGenerationLock drops the per-campaign regeneration lock.
func (r *RedisStore) ReleaseGenerationLock(campaignID int) error {
	key := fmt.Sprintf("perfgen:lock:campaign:%d", campaignID)
	return r.Client.Del(r.Ctx, key).Err()
}

// IncrementRunCount increments the daily regeneration counter for a campaign.
// A 24h TTL is applied on first set. Returns the current count.
func (r *RedisStore) IncrementRunCount(campaignID int) (int64, error) {
	key := fmt.Sprintf("perfgen:runs:campaign:%d:%s", campaignID, time.Now().Format("2006-01-02"))
	val, err := r.Client.Incr(r.Ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		r.Client.Expire(r.Ctx, key, 24*time.Hour)
	}
	return val, nil
}

// SetLastSeed records the seed that produced the campaign's current rows.
func (r *RedisStore) SetLastSeed(campaignID int, seed int64) error {
	key := fmt.Sprintf("perfgen:lastseed:campaign:%d", campaignID)
	return r.Client.Set(r.Ctx, key, seed, 0).Err()
}

// GetLastSeed returns the seed recorded for the campaign's current rows.
// A missing key yields zero.
func (r *RedisStore) GetLastSeed(campaignID int) int64 {
	key := fmt.Sprintf("perfgen:lastseed:campaign:%d", campaignID)
	seed, _ := r.Client.Get(r.Ctx, key).Int64()
	return seed
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
