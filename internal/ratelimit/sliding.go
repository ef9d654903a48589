package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow keeps one sorted-set entry per request so the window slides
// with every call. Counts are shared by all API replicas.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, limit int) (Result, error) {
	if l.Client == nil || limit <= 0 || window <= 0 {
		return unlimited(window, limit), nil
	}
	now := time.Now()
	redisKey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	current := int(count.Val())
	reset := now.Add(window)
	if first := oldest.Val(); len(first) == 1 {
		reset = time.Unix(0, int64(first[0].Score)).Add(window)
	}
	return Result{
		Allowed:   current <= limit,
		Limit:     limit,
		Remaining: max(0, limit-current),
		Reset:     reset,
	}, nil
}
