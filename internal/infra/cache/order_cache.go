package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/logger"
	"app/internal/usecase"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 注文詳細のcache-aside。遷移のたびにInvalidateされる前提なのでTTLは短めでよい。
type RedisOrderCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisOrderCache(addr string, password string, db int, ttl time.Duration) (*RedisOrderCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisOrderCache{rdb: rdb, ttl: ttl, logger: logger.Get()}, nil
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

func (c *RedisOrderCache) Get(ctx context.Context, orderID int64) (usecase.OrderOutput, bool) {
	raw, err := c.rdb.Get(ctx, orderKey(orderID)).Bytes()
	if err == redis.Nil {
		return usecase.OrderOutput{}, false
	}
	if err != nil {
		c.logger.Warn("order cache get failed", zap.Int64("order_id", orderID), zap.Error(err))
		return usecase.OrderOutput{}, false
	}

	var out usecase.OrderOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("order cache decode failed", zap.Int64("order_id", orderID), zap.Error(err))
		return usecase.OrderOutput{}, false
	}
	return out, true
}

func (c *RedisOrderCache) Set(ctx context.Context, out usecase.OrderOutput) {
	raw, err := json.Marshal(out)
	if err != nil {
		c.logger.Warn("order cache encode failed", zap.Int64("order_id", out.ID), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, orderKey(out.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("order cache set failed", zap.Int64("order_id", out.ID), zap.Error(err))
	}
}

func (c *RedisOrderCache) Invalidate(ctx context.Context, orderID int64) {
	if err := c.rdb.Del(ctx, orderKey(orderID)).Err(); err != nil {
		c.logger.Warn("order cache invalidate failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (c *RedisOrderCache) Close() error {
	return c.rdb.Close()
}
