package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/port"
)

// Key layout. Everything carries a TTL so stale counters age out even when a
// reconciliation pass never reaches them.
const (
	unreadKeyFormat      = "chat:room:%s:unread:%d"
	badgeKeyFormat       = "chat:badge:%d"
	activeRoomsKeyFormat = "chat:member:%d:active_rooms"

	counterTTL = 7 * 24 * time.Hour
)

// RedisCounterCache satisfies port.CounterCache on a go-redis v9 client.
type RedisCounterCache struct {
	client *redis.Client
}

// NewRedisCounterCacheFromEnv constructs the cache from the REDIS_URL
// environment variable and verifies connectivity.
func NewRedisCounterCacheFromEnv() (*RedisCounterCache, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		return nil, errors.New("redis: REDIS_URL environment variable is not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisCounterCache{client: c}, nil
}

var _ port.CounterCache = (*RedisCounterCache)(nil)

func unreadKey(roomCode string, viewerID int64) string {
	return fmt.Sprintf(unreadKeyFormat, roomCode, viewerID)
}

func (r *RedisCounterCache) IncrementUnread(ctx context.Context, roomCode string, viewerID int64, delta int64) (int64, error) {
	key := unreadKey(roomCode, viewerID)
	n, err := r.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, err
	}
	r.client.Expire(ctx, key, counterTTL)
	return n, nil
}

func (r *RedisCounterCache) GetUnread(ctx context.Context, roomCode string, viewerID int64) (int64, error) {
	res, err := r.client.Get(ctx, unreadKey(roomCode, viewerID)).Result()
	if err == redis.Nil {
		return 0, port.ErrMiss
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		// A corrupt counter behaves like a miss: the caller recomputes.
		return 0, port.ErrMiss
	}
	return n, nil
}

func (r *RedisCounterCache) SetUnread(ctx context.Context, roomCode string, viewerID int64, n int64) error {
	return r.client.Set(ctx, unreadKey(roomCode, viewerID), n, counterTTL).Err()
}

func (r *RedisCounterCache) ResetUnread(ctx context.Context, roomCode string, viewerID int64) error {
	return r.client.Set(ctx, unreadKey(roomCode, viewerID), 0, counterTTL).Err()
}

func (r *RedisCounterCache) IncrementBadge(ctx context.Context, viewerID int64) (int64, error) {
	key := fmt.Sprintf(badgeKeyFormat, viewerID)
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	r.client.Expire(ctx, key, counterTTL)
	return n, nil
}

func (r *RedisCounterCache) GetBadge(ctx context.Context, viewerID int64) (int64, error) {
	res, err := r.client.Get(ctx, fmt.Sprintf(badgeKeyFormat, viewerID)).Result()
	if err == redis.Nil {
		return 0, port.ErrMiss
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return 0, port.ErrMiss
	}
	return n, nil
}

func (r *RedisCounterCache) RecalculateBadge(ctx context.Context, viewerID int64, roomCodes []string) (int64, error) {
	var total int64
	if len(roomCodes) > 0 {
		keys := make([]string, len(roomCodes))
		for i, code := range roomCodes {
			keys[i] = unreadKey(code, viewerID)
		}
		values, err := r.client.MGet(ctx, keys...).Result()
		if err != nil {
			return 0, err
		}
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				total += n
			}
		}
	}
	if err := r.client.Set(ctx, fmt.Sprintf(badgeKeyFormat, viewerID), total, counterTTL).Err(); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *RedisCounterCache) AddActiveRoom(ctx context.Context, viewerID int64, roomCode string) error {
	key := fmt.Sprintf(activeRoomsKeyFormat, viewerID)
	if err := r.client.SAdd(ctx, key, roomCode).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, counterTTL).Err()
}

func (r *RedisCounterCache) ActiveRooms(ctx context.Context, viewerID int64) ([]string, error) {
	return r.client.SMembers(ctx, fmt.Sprintf(activeRoomsKeyFormat, viewerID)).Result()
}

func (r *RedisCounterCache) InvalidateRoom(ctx context.Context, roomCode string) error {
	pattern := fmt.Sprintf("chat:room:%s:*", roomCode)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCounterCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCounterCache) Close() error {
	return r.client.Close()
}
