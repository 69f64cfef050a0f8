package admission

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"subscription-gateway/middleware/admission/application"
	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/infra"
)

const codeServerBusy = "server_busy"

// ConcurrencyOptions limita quantas inscrições ficam em processamento ao
// mesmo tempo. Pool é opcional: passe um para poder ler InUse/Cap de fora.
type ConcurrencyOptions struct {
	Max            int
	Pool           *infra.ChanPool
	AcquireTimeout time.Duration
	Logger         logrus.FieldLogger
	Clock          domain.Clock
}

// ConcurrencyMiddleware responde 503 com o envelope de erro quando não há
// vaga dentro do AcquireTimeout.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				opts.Logger.WithFields(logrus.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"in_use":     opts.Pool.InUse(),
					"capacity":   opts.Pool.Cap(),
				}).Warn("no processing slot available")
				writeErrorResponse(w, r, opts.Clock, ErrorResponse{
					Code:    codeServerBusy,
					Message: "server is busy, try again later",
					Status:  http.StatusServiceUnavailable,
				})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
