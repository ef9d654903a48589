package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Backend counts events per key within a window.
type Backend interface {
	Allow(ctx context.Context, key string, window time.Duration, limit int) (Result, error)
}

func unlimited(window time.Duration, limit int) Result {
	return Result{Allowed: true, Limit: limit, Remaining: limit, Reset: time.Now().Add(window)}
}
