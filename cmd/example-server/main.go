package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"subscription-gateway/middleware/admission"
	"subscription-gateway/middleware/admission/application"
	"subscription-gateway/middleware/admission/infra"
)

// Exemplo: admissão embutida direto no webserver (sem gateway na frente),
// com uma tabela em memória no lugar do banco.
//
// Um segundo listener, interno, serve de upstream para cmd/gateway
// (POST /internal/subscriptions) e expõe listagem e estatísticas.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	cfg := readConfig()

	admCfg := application.DefaultConfig()
	registry, err := infra.NewRegistry(admCfg.Capacity(), admCfg.RefillRate())
	if err != nil {
		logger.Fatalf("rate registry error: %v", err)
	}
	gate, err := application.NewGate(admCfg, registry)
	if err != nil {
		logger.Fatalf("gate error: %v", err)
	}

	store := newMemoryStore()
	stats := infra.NewMemoryStatsStore()
	pool := infra.NewChanPool(50)

	subscribe, err := admission.SubscribeHandler(admission.HandlerOptions{
		Gate:               gate,
		Subscriber:         store,
		Retry:              registry,
		Stats:              stats,
		Logger:             logger,
		KeyHeader:          cfg.keyHeader,
		TrustXForwardedFor: cfg.trustXFF,
	})
	if err != nil {
		logger.Fatalf("handler error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	registry.StartJanitor(ctx)

	public := newServer(cfg.listenAddr, publicRouter(subscribe, pool, logger))
	internal := newServer(cfg.internalAddr, internalRouter(store, stats, pool, logger))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = public.Shutdown(shutdownCtx)
		_ = internal.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Infof("example internal listener on %s", cfg.internalAddr)
		if err := internal.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("internal server error: %v", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"key_header": cfg.keyHeader,
		"trust_xff":  cfg.trustXFF,
	}).Infof("example server listening on %s", cfg.listenAddr)
	if err := public.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server error: %v", err)
	}
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
}
