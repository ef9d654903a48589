package main

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/HodayaSing/ai-pos/internal/ai"
	"github.com/HodayaSing/ai-pos/internal/app"
	"github.com/HodayaSing/ai-pos/internal/cart"
	"github.com/HodayaSing/ai-pos/internal/catalog"
	"github.com/HodayaSing/ai-pos/internal/common"
	"github.com/HodayaSing/ai-pos/internal/config"
	"github.com/HodayaSing/ai-pos/internal/health"
	"github.com/HodayaSing/ai-pos/internal/obs"
	"github.com/HodayaSing/ai-pos/internal/pricing"
	"github.com/HodayaSing/ai-pos/internal/ratelimit"
	"github.com/HodayaSing/ai-pos/internal/security"
	"github.com/HodayaSing/ai-pos/internal/translation"
)

type routerOptions struct {
	Tracing     bool
	Metrics     bool
	HTTPMetrics *obs.HTTPMetrics
	Pprof       http.Handler
}

func newRouter(deps *app.Dependencies, logger zerolog.Logger, opts routerOptions) http.Handler {
	cfg := deps.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RequestInfoMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger, SkipPaths: []string{"/health/live", "/health/ready", "/metrics"}}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.JSONBodyLimit}.Middleware)

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if opts.Pprof != nil {
		r.Mount("/debug/pprof", opts.Pprof)
	}

	healthHandler := health.Handler{
		Checker:      deps,
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		common.JSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Gen AI API", "status": "running"})
	})
	if cfg.StorageBackend == config.StorageLocal {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	idem := onMethods(common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}.Middleware, http.MethodPost)

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{
		Service:        deps.Catalog,
		Images:         deps.Images,
		MaxUploadBytes: cfg.UploadMaxBytes,
	})
	cartHandler := &cart.Handler{Svc: deps.Carts}
	pricingHandler := pricing.NewHandler(pricing.HandlerConfig{})
	aiHandler := ai.NewHandler(deps.AI)
	translationHandler := &translation.Handler{Svc: deps.Translations}

	aiLimit := ratelimit.Handler{
		Backend: deps.RateLimit,
		Key:     ratelimit.ByClientIP("ai"),
		Window:  cfg.RateLimitWindow,
		Max:     cfg.RateLimitAIMax,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate_limit_backend_failed")
		},
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/products", func(p chi.Router) {
			p.Use(idem)
			catalogHandler.Routes(p)
		})
		api.Route("/carts", func(c chi.Router) {
			c.Use(idem)
			cartHandler.Routes(c)
		})
		api.Route("/pricing", func(p chi.Router) {
			p.Post("/estimate", pricingHandler.Estimate)
			p.Post("/totals", pricingHandler.Totals)
		})
		api.Route("/ai", func(a chi.Router) {
			a.Use(aiLimit.Middleware)
			aiHandler.Routes(a)
			a.Post("/generate-product-translations", translationHandler.Generate)
		})
	})

	return r
}

// onMethods applies mw only to requests using one of methods.
func onMethods(mw func(http.Handler) http.Handler, methods ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(methods, r.Method) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
