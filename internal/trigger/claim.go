package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"backend/internal/logger"
)

// Claimer 以 SETNX 实现的扫描声明，保证同一扫描键对同一智能体至多执行一次
type Claimer struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewClaimer 创建声明器；rdb 为 nil 时退化为总是放行（单实例部署无重复投递）
func NewClaimer(rdb redis.UniversalClient, ttl time.Duration) *Claimer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Claimer{rdb: rdb, ttl: ttl}
}

// TryClaim 尝试声明 (agentID, scanKey)。返回 false 表示已被其他扫描占用。
func (c *Claimer) TryClaim(ctx context.Context, agentID, scanKey string) bool {
	if c.rdb == nil {
		return true
	}
	key := fmt.Sprintf("agent:claim:%s:%s", agentID, scanKey)
	ok, err := c.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		// Redis 不可用时放行，宁可重复也不漏执行
		logger.Warn(fmt.Sprintf("扫描声明失败，放行执行: %v", err))
		return true
	}
	return ok
}
