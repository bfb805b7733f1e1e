// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
	"github.com/iamramakanthreddyk/mylab-platform-sub000/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// CacheOrganization caches one organization-directory record. The directory
// itself is owned by the workspace service; we only cache its answers.
func CacheOrganization(ctx context.Context, organization *model.Organization) error {
	if RedisClient == nil {
		return nil
	}
	organizationJSON, err := json.Marshal(organization)
	if err != nil {
		return fmt.Errorf("failed to marshal organization: %w", err)
	}

	key := fmt.Sprintf("organization:%s", organization.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, organizationJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache organization: %w", err)
	}

	logger.Debug("Organization cached successfully", zap.String("organizationID", organization.ID))
	return nil
}

func GetCachedOrganization(ctx context.Context, organizationID string) (*model.Organization, error) {
	if RedisClient == nil {
		return nil, nil
	}
	key := fmt.Sprintf("organization:%s", organizationID)
	organizationJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Organization not found in cache", zap.String("organizationID", organizationID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get organization from cache: %w", err)
	}

	var organization model.Organization
	err = json.Unmarshal([]byte(organizationJSON), &organization)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal organization: %w", err)
	}

	return &organization, nil
}

func DeleteCachedOrganization(ctx context.Context, organizationID string) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("organization:%s", organizationID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete organization from cache: %w", err)
	}
	return nil
}

// RateLimit runs one sliding-window check against a shared ZSET window.
// Returns whether the request is allowed and, when denied, how long until
// the oldest window entry ages out.
func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	key = fmt.Sprintf("ratelimit:%s", key)
	windowStart := now.Add(-per).UnixNano()

	pipe := RedisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := countCmd.Val()
	if count >= int64(limit) {
		// Denied requests are not recorded; report when the window frees up.
		oldest, err := RedisClient.ZRangeWithScores(ctx, key, 0, 0).Result()
		retryAfter := per
		if err == nil && len(oldest) > 0 {
			freeAt := time.Unix(0, int64(oldest[0].Score)).Add(per)
			if until := time.Until(freeAt); until > 0 {
				retryAfter = until
			}
		}
		logger.Debug("Rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", limit))
		return false, retryAfter, nil
	}

	pipe = RedisClient.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, per)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to record rate limit entry: %w", err)
	}

	return true, 0, nil
}

// LockResource takes a short-lived advisory lock, used to keep maintenance
// work such as the token cleanup sweep single-flight across instances.
// Without Redis the lock degrades to a no-op and every caller proceeds.
func LockResource(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	if RedisClient == nil {
		return true, nil
	}
	key := fmt.Sprintf("lock:%s", resourceName)
	locked, err := RedisClient.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return locked, nil
}

func UnlockResource(ctx context.Context, resourceName string) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("lock:%s", resourceName)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
