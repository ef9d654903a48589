package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// FixedWindow counts requests in fixed periods using ulule/limiter. It runs on
// an in-process store, or on Redis when a client is supplied.
type FixedWindow struct {
	store limiter.Store

	mu       sync.Mutex
	limiters map[string]*limiter.Limiter
}

// NewFixedWindow builds the limiter. A nil client keeps counters in memory.
func NewFixedWindow(client *redis.Client, prefix string) (*FixedWindow, error) {
	var store limiter.Store
	if client == nil {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute})
	} else {
		var err error
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
		if err != nil {
			return nil, fmt.Errorf("ratelimit: redis store: %w", err)
		}
	}
	return &FixedWindow{store: store, limiters: map[string]*limiter.Limiter{}}, nil
}

func (f *FixedWindow) Allow(ctx context.Context, key string, window time.Duration, limit int) (Result, error) {
	if limit <= 0 || window <= 0 {
		return unlimited(window, limit), nil
	}
	lctx, err := f.limiterFor(window, limit).Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}

func (f *FixedWindow) limiterFor(window time.Duration, limit int) *limiter.Limiter {
	id := fmt.Sprintf("%d/%s", limit, window)
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limiters[id]; ok {
		return l
	}
	l := limiter.New(f.store, limiter.Rate{Period: window, Limit: int64(limit)})
	f.limiters[id] = l
	return l
}
