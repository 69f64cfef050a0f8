package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"subscription-gateway/middleware/admission/application"
)

type config struct {
	listenAddr      string
	upstreamURL     string
	upstreamTimeout time.Duration

	requestsPerMinute int
	maxPayloadBytes   int64
	rateKeyHeader     string
	trustXFF          bool
	rateShards        int
	rateIdleTTL       time.Duration
	rateCleanupEvery  time.Duration

	globalRPS           float64
	globalBurst         int
	addRateLimitHeaders bool

	concurrencyMax     int
	concurrencyTimeout time.Duration
	securityHeaders    bool

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool

	logLevel  logrus.Level
	logFormat string
}

func (c config) admission() application.Config {
	return application.Config{
		RequestsPerMinute: c.requestsPerMinute,
		MaxPayloadBytes:   c.maxPayloadBytes,
	}
}

// readConfig lê o .env (se existir) e depois o ambiente. Variáveis já
// exportadas no processo têm precedência sobre o arquivo.
func readConfig() (config, error) {
	_ = godotenv.Load()

	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = strings.TrimSpace(os.Getenv("UPSTREAM_URL"))
	cfg.upstreamTimeout = getenvDurationDefault("UPSTREAM_TIMEOUT", 5*time.Second)

	cfg.requestsPerMinute = getenvIntDefault("REQUESTS_PER_MINUTE", application.DefaultRequestsPerMinute)
	cfg.maxPayloadBytes = int64(getenvIntDefault("MAX_PAYLOAD_BYTES", application.DefaultMaxPayloadBytes))
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.rateShards = getenvIntDefault("RATE_SHARDS", 32)
	cfg.rateIdleTTL = getenvDurationDefault("RATE_IDLE_TTL", 15*time.Minute)
	cfg.rateCleanupEvery = getenvDurationDefault("RATE_CLEANUP_EVERY", 2*time.Minute)

	// teto global desligado por padrão; o limite por cliente já vale
	cfg.globalRPS = getenvFloatDefault("GLOBAL_RPS", 0)
	cfg.globalBurst = getenvIntDefault("GLOBAL_BURST", 50)
	cfg.addRateLimitHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)
	cfg.securityHeaders = getenvBoolDefault("SECURITY_HEADERS", true)

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", "")
	cfg.rateStatsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.rateStatsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", 0)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "admission:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	lvl, err := logrus.ParseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return config{}, err
	}
	cfg.logLevel = lvl
	cfg.logFormat = getenvDefault("LOG_FORMAT", "text")

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if err := cfg.admission().Validate(); err != nil {
		return config{}, err
	}
	if cfg.rateShards <= 0 {
		return config{}, errors.New("RATE_SHARDS must be > 0")
	}
	if cfg.globalRPS < 0 {
		return config{}, errors.New("GLOBAL_RPS must be >= 0")
	}
	if cfg.globalRPS > 0 && cfg.globalBurst <= 0 {
		return config{}, errors.New("GLOBAL_BURST must be > 0 when GLOBAL_RPS is set")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	switch cfg.logFormat {
	case "text", "json":
	default:
		return config{}, errors.New("LOG_FORMAT must be text or json")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
