package admission

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"subscription-gateway/middleware/admission/application"
	"subscription-gateway/middleware/admission/domain"
)

// Options configura o middleware genérico de rate limit, usado para o teto
// global do gateway ou para limitar rotas que não passam pelo Gate.
type Options struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	Logger              logrus.FieldLogger
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	svc := application.Service{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}
	rec := newStatsRecorder(opts.Stats, opts.Logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			// a chave não volta na resposta: pode ser um header enviado pelo próprio cliente
			if opts.AddRateLimitHeaders {
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			ev := domain.StatsEvent{
				Key:     domain.Key(key),
				Allowed: dec.Allowed,
				Method:  r.Method,
				Path:    r.URL.Path,
				At:      time.Now(),
			}
			if !dec.Allowed {
				ev.Reason = domain.KindTooManyRequests.Code()
			}
			rec.record(r, ev)

			if !dec.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter))
				rej := domain.TooManyRequests()
				writeErrorResponse(w, r, domain.SystemClock, ErrorResponse{
					Code:    rej.Kind.Code(),
					Message: rej.Error(),
					Status:  opts.RejectStatus,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statsRecorder grava eventos em best-effort. Falhas do sink são logadas
// no máximo uma vez a cada 30s para não inundar o log quando o Redis cai.
type statsRecorder struct {
	store  domain.StatsStore
	logger logrus.FieldLogger
	warn   *rate.Sometimes
}

func newStatsRecorder(store domain.StatsStore, logger logrus.FieldLogger) *statsRecorder {
	return &statsRecorder{
		store:  store,
		logger: logger,
		warn:   &rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

func (s *statsRecorder) record(r *http.Request, ev domain.StatsEvent) {
	if s.store == nil {
		return
	}
	if err := s.store.Record(r.Context(), ev); err != nil {
		s.warn.Do(func() {
			s.logger.WithError(err).Warn("admission stats record failed")
		})
	}
}
