package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"subscription-gateway/middleware/admission"
	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/infra"
	"subscription-gateway/middleware/admission/validation"
)

// publicRouter é o que os clientes enxergam: só inscrição e health check.
func publicRouter(subscribe http.Handler, pool *infra.ChanPool, logger logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(admission.SecurityHeaders)

	r.Get("/health_check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.With(admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{
		Pool:   pool,
		Logger: logger,
	})).Method(http.MethodPost, "/subscriptions", subscribe)
	return r
}

// internalRouter escuta em outro endereço (loopback por padrão). Recebe as
// inscrições já admitidas pelo cmd/gateway e expõe a listagem e as estatísticas.
func internalRouter(store *memoryStore, stats *infra.MemoryStatsStore, pool *infra.ChanPool, logger logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/internal/subscriptions", internalSubscribe(store, logger))
	r.Get("/subscriptions", listSubscriptions(store, logger))
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"total":     stats.Total(),
			"by_reason": stats.ByReason(),
			"in_flight": pool.InUse(),
			"capacity":  pool.Cap(),
		})
	})
	return r
}

// listSubscriptions confere cada registro antes de devolvê-lo: um registro
// corrompido no armazenamento vira 500, nunca sai para o cliente.
func listSubscriptions(store *memoryStore, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs := store.List()
		if i, err := validation.ValidateRecords(recs); err != nil {
			logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"index":      i,
			}).WithError(err).Error("stored subscription failed validation")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

// internalSubscribe aceita campos já admitidos pelo gateway. O memoryStore
// valida tudo de novo antes de gravar.
func internalSubscribe(store *memoryStore, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields domain.CanonicalFields
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&fields); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		log := logger.WithField("request_id", middleware.GetReqID(r.Context()))
		if err := store.Subscribe(r.Context(), fields); err != nil {
			if rej, ok := domain.AsRejection(err); ok {
				log.WithField("code", rej.Kind.Code()).Warn("internal subscription rejected")
				http.Error(w, rej.Error(), admission.StatusFor(rej.Kind))
				return
			}
			log.WithError(err).Error("failed to store subscription")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		log.WithField("email", admission.MaskEmail(fields.Email)).Info("subscription stored")
		w.WriteHeader(http.StatusCreated)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
