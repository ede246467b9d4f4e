// Package cache stores rendered leaderboards keyed by quiz id.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type LeaderboardCache interface {
	Get(ctx context.Context, quizID uint) ([]byte, bool, error)
	Set(ctx context.Context, quizID uint, payload []byte) error
	Invalidate(ctx context.Context, quizID uint) error
	// Flush drops every leaderboard. Used after quiz ids are re-packed.
	Flush(ctx context.Context) error
}

const keyPrefix = "leaderboard:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(quizID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, quizID)
}

func (c *RedisCache) Get(ctx context.Context, quizID uint) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, quizID uint, payload []byte) error {
	return c.client.Set(ctx, key(quizID), payload, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, quizID uint) error {
	return c.client.Del(ctx, key(quizID)).Err()
}

func (c *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Nop is used when no Redis address is configured.
type Nop struct{}

func (Nop) Get(context.Context, uint) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, uint, []byte) error         { return nil }
func (Nop) Invalidate(context.Context, uint) error          { return nil }
func (Nop) Flush(context.Context) error                     { return nil }
