package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

const cachePrefix = "careerpath:"

// redisLocalCache mirrors per-user snapshots as JSON with a TTL. Entries that
// fail to decode are deleted and reported as a miss.
type redisLocalCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisLocalCache(client *redis.Client, ttl time.Duration, logger logger.Logger) service.LocalCache {
	if ttl < 0 {
		ttl = 0
	}
	return &redisLocalCache{redis: client, ttl: ttl, logger: logger}
}

func cacheKey(userID uuid.UUID, key service.CacheKey) string {
	return cachePrefix + userID.String() + ":" + string(key)
}

func (c *redisLocalCache) Load(ctx context.Context, userID uuid.UUID, key service.CacheKey, dst any) (bool, error) {
	k := cacheKey(userID, key)
	data, err := c.redis.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, apperror.NewRemoteUnavailable("redis", "get "+k, err)
	}

	if err := sonic.ConfigStd.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Discarding corrupt cache entry",
			zap.String("key", k),
			zap.Error(apperror.NewDeserialization(k, err)),
		)
		if derr := c.redis.Del(ctx, k).Err(); derr != nil {
			c.logger.Warn("Failed to delete corrupt cache entry", zap.String("key", k), zap.Error(derr))
		}
		return false, nil
	}
	return true, nil
}

func (c *redisLocalCache) Store(ctx context.Context, userID uuid.UUID, key service.CacheKey, value any) error {
	data, err := sonic.ConfigStd.Marshal(value)
	if err != nil {
		return apperror.NewInternal("failed to encode cache entry", err)
	}
	k := cacheKey(userID, key)
	if err := c.redis.Set(ctx, k, data, c.ttl).Err(); err != nil {
		return apperror.NewRemoteUnavailable("redis", "set "+k, err)
	}
	return nil
}

func (c *redisLocalCache) Delete(ctx context.Context, userID uuid.UUID, keys ...service.CacheKey) error {
	if len(keys) == 0 {
		return nil
	}
	ks := make([]string, len(keys))
	for i, key := range keys {
		ks[i] = cacheKey(userID, key)
	}
	if err := c.redis.Del(ctx, ks...).Err(); err != nil {
		return apperror.NewRemoteUnavailable("redis", "del", err)
	}
	return nil
}
