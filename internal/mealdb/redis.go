package mealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dukerupert/bitematch/internal/model"
)

const redisKeyPrefix = "bitematch:meal:"

// RedisCache shares meal details between service instances.
type RedisCache struct {
	rdb    *goredis.Client
	logger *slog.Logger
}

// NewRedisCache connects to addr and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, addr string, logger *slog.Logger) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCacheFromClient(rdb, logger), nil
}

func NewRedisCacheFromClient(rdb *goredis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, id string) (*model.MealDetail, bool) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == goredis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis get", "meal_id", id, "error", err)
		return nil, false
	}
	var meal model.MealDetail
	if err := json.Unmarshal(raw, &meal); err != nil {
		c.logger.Warn("bad cached meal", "meal_id", id, "error", err)
		return nil, false
	}
	return &meal, true
}

func (c *RedisCache) Set(ctx context.Context, id string, meal model.MealDetail, ttl time.Duration) {
	raw, err := json.Marshal(meal)
	if err != nil {
		c.logger.Warn("encode meal for cache", "meal_id", id, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+id, raw, ttl).Err(); err != nil {
		c.logger.Warn("redis set", "meal_id", id, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
