package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/HodayaSing/ai-pos/internal/ai"
	"github.com/HodayaSing/ai-pos/internal/cart"
	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/config"
	"github.com/HodayaSing/ai-pos/internal/db"
	"github.com/HodayaSing/ai-pos/internal/health"
	"github.com/HodayaSing/ai-pos/internal/lock"
	"github.com/HodayaSing/ai-pos/internal/media"
	"github.com/HodayaSing/ai-pos/internal/queue"
	"github.com/HodayaSing/ai-pos/internal/ratelimit"
	"github.com/HodayaSing/ai-pos/internal/resilience"
	"github.com/HodayaSing/ai-pos/internal/translation"
)

// Options tweak how Build wires optional integrations.
type Options struct {
	// ApplicationName is reported to Postgres and tags log lines.
	ApplicationName string
	// RedisMetrics enables redisotel metrics alongside tracing.
	RedisMetrics bool
}

// Dependencies enumerates the services shared by the API, the worker and the
// CLI tools.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger

	DB     *db.Client
	Redis  *redis.Client
	Locker lock.Locker

	Catalog      *catalog.Service
	Carts        *cart.Service
	Images       *media.Uploader
	AI           *ai.Service
	AIBreaker    *resilience.Breaker
	Translations *translation.Service
	// Queue is nil without Redis.
	Queue     *queue.Enqueuer
	RateLimit ratelimit.Backend
}

// Build connects to the database and Redis and constructs every service.
// Callers must Close the result.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger}

	client, err := db.Open(ctx, db.Options{
		Driver:          cfg.DBDriver,
		DatabaseURL:     cfg.DatabaseURL,
		SQLitePath:      cfg.SQLitePath,
		ApplicationName: opts.ApplicationName,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	d.DB = client
	if err := client.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(client); err != nil {
			d.Close()
			return nil, err
		}
	}

	if cfg.RedisURL != "" {
		rdb, err := NewRedis(ctx, cfg.RedisURL, logger, opts.RedisMetrics)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = rdb
		d.Locker = lock.RedisLocker{R: rdb}
		d.Queue = &queue.Enqueuer{R: rdb, Prefix: cfg.QueuePrefix, DedupTTL: cfg.LockTTL, MaxAttempts: cfg.QueueMaxAttempts}
	} else {
		logger.Warn().Msg("REDIS_URL not set: carts, locks and rate limits stay in process memory")
		d.Locker = lock.NewLocal()
	}

	var cache *catalog.Cache
	if d.Redis != nil {
		cache = catalog.NewCache(d.Redis, cfg.CatalogCacheTTL)
	}
	d.Catalog, err = catalog.NewService(catalog.ServiceConfig{
		Repo:   catalog.NewGormRepository(client.DB()),
		Cache:  cache,
		Logger: logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	var carts cart.Repository = cart.NewMemoryRepository()
	if d.Redis != nil {
		carts = cart.RedisRepository{R: d.Redis, TTL: cfg.CartTTL}
	}
	d.Carts = &cart.Service{
		Repo:     carts,
		Locker:   d.Locker,
		Products: ProductLookup{Catalog: d.Catalog},
		LockTTL:  5 * time.Second,
	}

	store, err := newImageStore(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Images = media.NewUploader(store, cfg.UploadMaxBytes, cfg.ImageMaxWidth, cfg.ImageJPEGQuality)

	d.AIBreaker = resilience.NewBreaker(cfg.AIBreakerMinRequests, cfg.AIBreakerFailureRatio, cfg.AIBreakerOpenFor).
		WithLogger(logger)
	d.AI = ai.NewService(ai.ServiceConfig{
		Config: ai.Config{
			APIKey:      cfg.AIAPIKey,
			BaseURL:     cfg.AIBaseURL,
			ChatModel:   cfg.AIChatModel,
			SearchModel: cfg.AISearchModel,
			VisionModel: cfg.AIVisionModel,
			ImageModel:  cfg.AIImageModel,
			ImageSize:   cfg.AIImageSize,
		},
		HTTPClient: resilience.NewClient("openai", d.AIBreaker, cfg.AIMaxAttempts, cfg.AIRetryBase, cfg.AITimeout),
		Images:     d.Images,
		Fetcher: media.Fetcher{
			Client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: cfg.AITimeout},
			MaxBytes: 4 * cfg.UploadMaxBytes,
		},
		Products: d.Catalog,
		Logger:   logger,
	})

	tcfg := translation.ServiceConfig{
		Catalog:    d.Catalog,
		Translator: d.AI,
		Locker:     d.Locker,
		LockTTL:    cfg.LockTTL,
		Logger:     logger,
	}
	if d.Queue != nil {
		tcfg.Queue = d.Queue
	}
	d.Translations, err = translation.NewService(tcfg)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.RateLimit, err = newRateLimitBackend(cfg.RateLimitBackend, d.Redis)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the database and Redis connections.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close database")
		}
	}
}

// PingDB implements health.Checker.
func (d *Dependencies) PingDB(ctx context.Context, timeout time.Duration) error {
	if d.DB == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.DB.Ping(ctx)
}

// PingRedis implements health.Checker. Redis is optional, so its absence is
// reported as disabled rather than failing readiness.
func (d *Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// NewRedis parses url, instruments the client and verifies connectivity.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger, metrics bool) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (media.Store, error) {
	if cfg.StorageBackend == config.StorageS3 {
		s3Store, err := media.NewS3Store(ctx, media.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}
	return media.LocalStore{Dir: cfg.UploadDir, PublicURL: cfg.UploadsURL()}, nil
}

func newRateLimitBackend(kind string, rdb *redis.Client) (ratelimit.Backend, error) {
	if kind == "sliding" && rdb != nil {
		return ratelimit.SlidingWindow{Client: rdb, Prefix: "ratelimit"}, nil
	}
	// The fixed window falls back to an in-memory store without Redis.
	fixed, err := ratelimit.NewFixedWindow(rdb, "ratelimit")
	if err != nil {
		return nil, err
	}
	return fixed, nil
}
