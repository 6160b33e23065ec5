package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultKeyPrefix = "hydration:notify:"
	// DefaultTTL 冷却记录保留时长；过期只会让下一次提醒提前放行
	DefaultTTL = 24 * time.Hour
)

// RedisStore 多实例共享的冷却状态（同样是尽力而为，无 CAS）
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 存储；prefix 为空时使用 DefaultKeyPrefix
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Key 构建 recipient 的缓存键
func (r *RedisStore) Key(recipient string) string {
	return r.prefix + recipient
}

func (r *RedisStore) LastNotified(ctx context.Context, recipient string) (time.Time, error) {
	val, err := r.client.Get(ctx, r.Key(recipient)).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, ErrMiss
		}
		return time.Time{}, fmt.Errorf("failed to get last notified: %w", err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last notified value %q: %w", val, err)
	}
	return time.UnixMilli(ms), nil
}

func (r *RedisStore) MarkNotified(ctx context.Context, recipient string, at time.Time) error {
	if err := r.client.Set(ctx, r.Key(recipient), strconv.FormatInt(at.UnixMilli(), 10), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set last notified: %w", err)
	}
	return nil
}
