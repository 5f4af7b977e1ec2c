package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"salesledger/backend/internal/domain"
)

const cashPositionKey = "report:cash-position"

func monthlySummaryKey(year, month int) string {
	return fmt.Sprintf("report:monthly:%04d-%02d", year, month)
}

type RedisReportCache struct {
	client *redis.Client
}

func NewRedisReportCache(addr string, password string, db int) *RedisReportCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReportCache{client: client}
}

func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

func (c *RedisReportCache) GetCashPosition(ctx context.Context) (*domain.CompanyCashPosition, bool, error) {
	val, err := c.client.Get(ctx, cashPositionKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var position domain.CompanyCashPosition
	if err := json.Unmarshal([]byte(val), &position); err != nil {
		return nil, false, err
	}
	return &position, true, nil
}

func (c *RedisReportCache) SetCashPosition(ctx context.Context, value *domain.CompanyCashPosition, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cashPositionKey, payload, ttl).Err()
}

func (c *RedisReportCache) GetMonthlySummary(ctx context.Context, year, month int) (*domain.MonthlySummary, bool, error) {
	val, err := c.client.Get(ctx, monthlySummaryKey(year, month)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var summary domain.MonthlySummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *RedisReportCache) SetMonthlySummary(ctx context.Context, year, month int, value *domain.MonthlySummary, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, monthlySummaryKey(year, month), payload, ttl).Err()
}

func (c *RedisReportCache) Invalidate(ctx context.Context, year, month int) error {
	return c.client.Del(ctx, cashPositionKey, monthlySummaryKey(year, month)).Err()
}
