package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"subscription-gateway/middleware/admission"
	"subscription-gateway/middleware/admission/application"
	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/infra"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	logger := newLogger(cfg)

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		logger.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	registry, err := infra.NewRegistry(
		cfg.admission().Capacity(),
		cfg.admission().RefillRate(),
		infra.WithShards(cfg.rateShards),
		infra.WithIdleTTL(cfg.rateIdleTTL),
		infra.WithCleanupEvery(cfg.rateCleanupEvery),
	)
	if err != nil {
		logger.Fatalf("rate registry error: %v", err)
	}
	gate, err := application.NewGate(cfg.admission(), registry)
	if err != nil {
		logger.Fatalf("gate error: %v", err)
	}

	var statsStore domain.StatsStore
	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			logger.Fatalf("redis stats ping error: %v", err)
		}

		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		)
	}

	subscribe, err := admission.SubscribeHandler(admission.HandlerOptions{
		Gate:               gate,
		Subscriber:         newUpstream(target.String(), cfg.upstreamTimeout),
		Retry:              registry,
		Stats:              statsStore,
		Logger:             logger,
		KeyHeader:          cfg.rateKeyHeader,
		TrustXForwardedFor: cfg.trustXFF,
	})
	if err != nil {
		logger.Fatalf("handler error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	registry.StartJanitor(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger))
	if cfg.securityHeaders {
		r.Use(admission.SecurityHeaders)
	}

	r.Get("/health_check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{
			Max:            cfg.concurrencyMax,
			AcquireTimeout: cfg.concurrencyTimeout,
			Logger:         logger,
		}))
		if cfg.globalRPS > 0 {
			r.Use(admission.Middleware(admission.Options{
				Store:               infra.NewGlobalStore(cfg.globalRPS, cfg.globalBurst),
				Logger:              logger,
				KeyFn:               globalKey,
				AddRateLimitHeaders: cfg.addRateLimitHeaders,
			}))
		}
		r.Method(http.MethodPost, "/subscriptions", subscribe)
	})

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("gateway listening on %s -> %s", cfg.listenAddr, target)
	logger.WithFields(logrus.Fields{
		"requests_per_minute": cfg.requestsPerMinute,
		"max_payload_bytes":   cfg.maxPayloadBytes,
		"key_header":          cfg.rateKeyHeader,
		"trust_xff":           cfg.trustXFF,
		"shards":              cfg.rateShards,
		"idle_ttl":            registry.IdleTTL().String(),
		"cleanup_every":       registry.CleanupEvery().String(),
	}).Info("admission configured")
	logger.WithFields(logrus.Fields{
		"global_rps":      cfg.globalRPS,
		"global_burst":    cfg.globalBurst,
		"global_headers":  cfg.addRateLimitHeaders,
		"concurrency_max": cfg.concurrencyMax,
		"acquire_timeout": cfg.concurrencyTimeout.String(),
		"stats_enabled":   cfg.rateStatsEnabled,
		"stats_bucket":    cfg.rateStatsBucket,
	}).Info("limits configured")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server error: %v", err)
	}
}

// globalKey coloca todos os clientes na mesma chave: o teto vale para o serviço inteiro.
func globalKey(*http.Request) string { return "global" }
