package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching under a key prefix
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

func (c *Cache) indexKey(index string) string {
	return fmt.Sprintf("%s:index:%s", c.prefix, index)
}

// Get retrieves a cached value, found=false on miss
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value with TTL, 0 keeps it until deleted
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// AddToIndex records members of a named key index
func (c *Cache) AddToIndex(ctx context.Context, index string, members ...string) error {
	if !c.client.Enabled() || len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.client.Redis().SAdd(ctx, c.indexKey(index), args...).Err()
}

// IndexMembers lists members of a named key index
func (c *Cache) IndexMembers(ctx context.Context, index string) ([]string, error) {
	if !c.client.Enabled() {
		return nil, nil
	}
	return c.client.Redis().SMembers(ctx, c.indexKey(index)).Result()
}

// Predefined TTLs
const (
	TTLNone  = 0
	TTLDaily = 24 * time.Hour     // 일별 데이터
	TTLWeek  = 7 * 24 * time.Hour // 펀더멘털
)

// FundamentalsKey returns the cache key of one ticker's fundamentals
func FundamentalsKey(ticker string) string {
	return fmt.Sprintf("fundamentals:%s", ticker)
}
