package infra

import (
	"context"
	"time"

	"backend/internal/config"
	"backend/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis 初始化 Redis 连接
// Redis 承担两个职责：Agent 执行声明锁（at-most-once）与 asynq 队列。
// 连接失败时返回 nil，调用方须容忍降级（声明锁退化为直接执行）。
func InitRedis(cfg *config.RedisConfig) redis.UniversalClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis 不可用，执行声明锁退化为直接执行", zap.Error(err))
		return nil
	}

	logger.Info("Redis 连接成功",
		zap.String("addr", cfg.Addr()),
		zap.Int("db", cfg.DB),
	)
	return rdb
}
