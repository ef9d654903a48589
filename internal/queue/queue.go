package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/HodayaSing/ai-pos/internal/resilience"
)

// ErrNotConfigured is returned when no Redis client is available.
var ErrNotConfigured = errors.New("queue: redis client not configured")

// Task is a unit of background work.
type Task struct {
	Kind           string
	Payload        json.RawMessage
	IdempotencyKey string
	MaxAttempts    int
	Delay          time.Duration
	// Attempt is set by the worker, starting at 1.
	Attempt int
}

// keys builds the Redis key names for one prefix.
type keys struct{ prefix string }

func (k keys) base() string {
	if k.prefix == "" {
		return "queue"
	}
	return k.prefix + ":queue"
}

func (k keys) ready(kind string) string      { return k.base() + ":" + kind }
func (k keys) processing(kind string) string { return k.base() + ":" + kind + ":processing" }
func (k keys) dead(kind string) string       { return k.base() + ":" + kind + ":dlq" }
func (k keys) dedup(kind, key string) string { return k.base() + ":dedup:" + kind + ":" + key }

// Enqueuer publishes tasks into per-kind Redis sorted sets scored by due time.
type Enqueuer struct {
	R           *redis.Client
	Prefix      string
	DedupTTL    time.Duration
	MaxAttempts int
}

// Enqueue adds the task. With an idempotency key a second task is dropped
// while the first is pending; the returned bool reports whether it was added.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) (bool, error) {
	if e.R == nil {
		return false, ErrNotConfigured
	}
	kind := sanitizeKind(t.Kind)
	if kind == "" {
		return false, fmt.Errorf("queue: invalid task kind %q", t.Kind)
	}
	msg := message{
		Kind:        kind,
		Key:         t.IdempotencyKey,
		Payload:     t.Payload,
		MaxAttempts: t.MaxAttempts,
		AvailableAt: time.Now().Add(t.Delay).UnixNano(),
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = e.MaxAttempts
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = 3
	}

	k := keys{e.Prefix}
	if msg.Key != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := e.R.SetNX(ctx, k.dedup(kind, msg.Key), "1", ttl).Result()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return false, err
	}
	if err := e.R.ZAdd(ctx, k.ready(kind), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err(); err != nil {
		return false, err
	}
	depth.WithLabelValues(kind).Inc()
	return true, nil
}

// Stats reports ready, in-flight and dead-lettered task counts for kind.
type Stats struct {
	Ready      int64 `json:"ready"`
	Processing int64 `json:"processing"`
	Dead       int64 `json:"dead"`
}

func (e Enqueuer) Stats(ctx context.Context, kind string) (Stats, error) {
	if e.R == nil {
		return Stats{}, ErrNotConfigured
	}
	k := keys{e.Prefix}
	pipe := e.R.Pipeline()
	ready := pipe.ZCard(ctx, k.ready(kind))
	processing := pipe.ZCard(ctx, k.processing(kind))
	dead := pipe.LLen(ctx, k.dead(kind))
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, err
	}
	return Stats{Ready: ready.Val(), Processing: processing.Val(), Dead: dead.Val()}, nil
}

// DeadLetter is a task that exhausted its attempts.
type DeadLetter struct {
	Kind      string          `json:"kind"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
}

// DeadLetters returns up to limit dead-lettered tasks, newest first.
func (e Enqueuer) DeadLetters(ctx context.Context, kind string, limit int64) ([]DeadLetter, error) {
	if e.R == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 50
	}
	raws, err := e.R.LRange(ctx, keys{e.Prefix}.dead(kind), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raws))
	for _, raw := range raws {
		msg, err := decode(raw)
		if err != nil {
			continue
		}
		out = append(out, DeadLetter{Kind: msg.Kind, Key: msg.Key, Payload: msg.Payload, Attempts: msg.Attempt, LastError: msg.LastError})
	}
	return out, nil
}

func sanitizeKind(kind string) string {
	if kind == "" {
		return ""
	}
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_', c == ':':
		default:
			return ""
		}
	}
	return kind
}

// Worker consumes one task kind. Claimed tasks sit in a processing set until
// acked; tasks whose visibility timeout lapses are put back in the ready set.
type Worker struct {
	R                 *redis.Client
	Prefix            string
	Kind              string
	Concurrency       int
	VisibilityTimeout time.Duration
	// SoftDeadline bounds a single handler run; zero uses the visibility timeout.
	SoftDeadline time.Duration
	RetryBase    time.Duration
	RetryJitter  float64
	PollInterval time.Duration
	Handler      func(context.Context, Task) error
	Logger       zerolog.Logger
}

// Run processes tasks until ctx is cancelled and in-flight handlers finish.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return ErrNotConfigured
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	kind := sanitizeKind(w.Kind)
	if kind == "" {
		return fmt.Errorf("queue: invalid worker kind %q", w.Kind)
	}
	concurrency := max(w.Concurrency, 1)
	visibility := w.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	soft := w.SoftDeadline
	if soft <= 0 || soft > visibility {
		soft = visibility
	}
	poll := w.PollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	k := keys{w.Prefix}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	lastRequeue := time.Time{}
	for {
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(lastRequeue) >= poll {
			if err := w.requeueExpired(ctx, k, kind); err != nil && ctx.Err() == nil {
				w.Logger.Warn().Err(err).Str("kind", kind).Msg("queue_requeue_failed")
			}
			lastRequeue = time.Now()
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}
		raw, msg, ok, err := w.claim(ctx, k, kind, visibility)
		if err != nil || !ok {
			<-sem
			if err != nil && ctx.Err() == nil {
				w.Logger.Warn().Err(err).Str("kind", kind).Msg("queue_claim_failed")
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(poll):
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.process(ctx, k, raw, msg, soft)
		}()
	}
}

// claim pops the earliest due task into the processing set.
func (w Worker) claim(ctx context.Context, k keys, kind string, visibility time.Duration) (string, message, bool, error) {
	now := time.Now().UnixNano()
	due, err := w.R.ZRangeByScore(ctx, k.ready(kind), &redis.ZRangeBy{Min: "-inf", Max: strconv.FormatInt(now, 10), Count: 1}).Result()
	if err != nil || len(due) == 0 {
		return "", message{}, false, err
	}
	removed, err := w.R.ZRem(ctx, k.ready(kind), due[0]).Result()
	if err != nil || removed == 0 {
		// another worker won the race
		return "", message{}, false, err
	}
	depth.WithLabelValues(kind).Dec()
	msg, err := decode(due[0])
	if err != nil {
		w.Logger.Error().Err(err).Str("kind", kind).Msg("queue_message_undecodable")
		return "", message{}, false, nil
	}
	msg.Attempt++
	encoded, err := json.Marshal(msg)
	if err != nil {
		return "", message{}, false, err
	}
	deadline := time.Now().Add(visibility).UnixNano()
	if err := w.R.ZAdd(ctx, k.processing(kind), redis.Z{Score: float64(deadline), Member: encoded}).Err(); err != nil {
		return "", message{}, false, err
	}
	return string(encoded), msg, true, nil
}

func (w Worker) process(ctx context.Context, k keys, raw string, msg message, soft time.Duration) {
	jobCtx, cancel := context.WithTimeout(ctx, soft)
	defer cancel()
	start := time.Now()
	err := w.Handler(jobCtx, Task{Kind: msg.Kind, Payload: msg.Payload, IdempotencyKey: msg.Key, MaxAttempts: msg.MaxAttempts, Attempt: msg.Attempt})

	// bookkeeping must survive shutdown of the parent context
	bg := context.WithoutCancel(ctx)
	logger := w.Logger.With().Str("kind", msg.Kind).Int("attempt", msg.Attempt).Dur("duration", time.Since(start)).Logger()
	if err == nil {
		w.ack(bg, k, raw, msg)
		processed.WithLabelValues(msg.Kind, "ok").Inc()
		logger.Info().Msg("queue_task_done")
		return
	}
	_ = w.R.ZRem(bg, k.processing(msg.Kind), raw).Err()
	msg.LastError = err.Error()
	if msg.Attempt >= msg.MaxAttempts {
		encoded, _ := json.Marshal(msg)
		_ = w.R.LPush(bg, k.dead(msg.Kind), encoded).Err()
		if msg.Key != "" {
			_ = w.R.Del(bg, k.dedup(msg.Kind, msg.Key)).Err()
		}
		processed.WithLabelValues(msg.Kind, "dead").Inc()
		deadLetters.WithLabelValues(msg.Kind).Inc()
		logger.Error().Err(err).Msg("queue_task_dead_lettered")
		return
	}
	delay := resilience.Backoff(w.RetryBase, msg.Attempt, w.RetryJitter)
	msg.AvailableAt = time.Now().Add(delay).UnixNano()
	encoded, _ := json.Marshal(msg)
	if zerr := w.R.ZAdd(bg, k.ready(msg.Kind), redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err(); zerr == nil {
		depth.WithLabelValues(msg.Kind).Inc()
	}
	processed.WithLabelValues(msg.Kind, "retry").Inc()
	logger.Warn().Err(err).Dur("retry_in", delay).Msg("queue_task_failed")
}

func (w Worker) ack(ctx context.Context, k keys, raw string, msg message) {
	_ = w.R.ZRem(ctx, k.processing(msg.Kind), raw).Err()
	if msg.Key != "" {
		_ = w.R.Del(ctx, k.dedup(msg.Kind, msg.Key)).Err()
	}
}

func (w Worker) requeueExpired(ctx context.Context, k keys, kind string) error {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	expired, err := w.R.ZRangeByScore(ctx, k.processing(kind), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return err
	}
	for _, raw := range expired {
		removed, err := w.R.ZRem(ctx, k.processing(kind), raw).Result()
		if err != nil || removed == 0 {
			continue
		}
		msg, err := decode(raw)
		if err != nil {
			continue
		}
		msg.AvailableAt = time.Now().UnixNano()
		encoded, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := w.R.ZAdd(ctx, k.ready(kind), redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err(); err != nil {
			return err
		}
		depth.WithLabelValues(kind).Inc()
		w.Logger.Warn().Str("kind", kind).Int("attempt", msg.Attempt).Msg("queue_task_visibility_expired")
	}
	return nil
}

type message struct {
	Kind        string          `json:"kind"`
	Key         string          `json:"key,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	AvailableAt int64           `json:"available_at"`
	LastError   string          `json:"last_error,omitempty"`
}

func decode(raw string) (message, error) {
	var msg message
	err := json.Unmarshal([]byte(raw), &msg)
	return msg, err
}
