package admission

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisRateStore keeps the sliding window in a sorted set per key, scored by
// the action's unix-nano timestamp, so several instances share one view of a
// client's recent activity.
type redisRateStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRateStore(rdb *redis.Client) RateStore {
	return &redisRateStore{
		rdb:    rdb,
		prefix: "admission:rate",
	}
}

// Allow records the action and then checks the window size in the same
// pipeline. Adding before checking keeps concurrent callers honest: every
// caller's count includes its own member, so N racing requests can never
// all slip under the limit. Over-limit members are removed again and, as a
// fallback, age out with the window.
func (s *redisRateStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := s.prefix + ":" + key
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.New().String()

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", windowStart)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to update rate window: %w", err)
	}

	if countCmd.Val() > int64(limit) {
		if err := s.rdb.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, fmt.Errorf("failed to revoke over-limit action: %w", err)
		}
		return false, nil
	}

	return true, nil
}

func (s *redisRateStore) Stop() {}
