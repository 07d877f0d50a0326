package security

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindowStore keeps per-client windows in a redis sorted set, scored
// by request time. Several processes can then share one budget.
type RedisWindowStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisWindowStore creates a window store over the given redis client.
func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client, keyPrefix: "ratelimit:"}
}

// Allow implements WindowStore.
func (s *RedisWindowStore) Allow(ctx context.Context, clientID string, now time.Time, window time.Duration, budget int) (bool, int, error) {
	key := s.keyPrefix + clientID
	cutoff := now.Add(-window).UnixNano()

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit window for %s: %w", clientID, err)
	}

	count := int(card.Val())
	if count >= budget {
		return false, 0, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe = s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit record for %s: %w", clientID, err)
	}

	return true, budget - count - 1, nil
}
