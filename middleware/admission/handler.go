package admission

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"subscription-gateway/middleware/admission/application"
	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/validation"
)

// Subscriber recebe as inscrições admitidas (persistência, fila, upstream...).
type Subscriber interface {
	Subscribe(ctx context.Context, fields domain.CanonicalFields) error
}

type SubscriberFunc func(ctx context.Context, fields domain.CanonicalFields) error

func (f SubscriberFunc) Subscribe(ctx context.Context, fields domain.CanonicalFields) error {
	return f(ctx, fields)
}

// RetryAdvisor informa quanto uma chave limitada deve esperar; infra.Registry implementa.
type RetryAdvisor interface {
	RetryAfter(key domain.Key) time.Duration
}

type HandlerOptions struct {
	Gate       *application.Gate
	Subscriber Subscriber
	Retry      RetryAdvisor
	Stats      domain.StatsStore
	Logger     logrus.FieldLogger
	Clock      domain.Clock

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
}

// ErrorResponse é o envelope JSON de toda resposta de erro.
// Message nunca contém o valor enviado pelo cliente.
type ErrorResponse struct {
	ErrorID   string `json:"error_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

const codeInternal = "internal_error"

type subscribeForm struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SubscribeHandler aceita inscrições em form urlencoded ou JSON, passa cada
// uma pelo Gate e entrega os campos canônicos ao Subscriber.
func SubscribeHandler(opts HandlerOptions) (http.Handler, error) {
	if opts.Gate == nil {
		return nil, errors.New("admission: gate is required")
	}
	if opts.Subscriber == nil {
		return nil, errors.New("admission: subscriber is required")
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock
	}

	h := &subscribeHandler{opts: opts, stats: newStatsRecorder(opts.Stats, opts.Logger)}
	return h, nil
}

type subscribeHandler struct {
	opts  HandlerOptions
	stats *statsRecorder
}

func (h *subscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := domain.Key(h.opts.KeyFn(r))
	maxBytes := h.opts.Gate.MaxPayloadBytes()
	log := h.opts.Logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"client":     string(key),
	})

	body, err := readLimited(r, maxBytes)
	if err != nil {
		log.WithError(err).Warn("failed to read subscription body")
		h.writeError(w, r, ErrorResponse{
			Code:    "invalid_body",
			Message: "request body could not be read",
			Status:  http.StatusBadRequest,
		})
		return
	}

	payloadLen := int64(len(body))
	if r.ContentLength > payloadLen {
		payloadLen = r.ContentLength
	}

	var form subscribeForm
	if payloadLen <= maxBytes {
		form = decodeForm(r.Header.Get("Content-Type"), body)
	}

	fields, err := h.opts.Gate.Admit(key, payloadLen, form.Email, form.Name)
	ev := domain.StatsEvent{
		Key:     key,
		Allowed: err == nil,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      h.opts.Clock.Now(),
	}
	if err != nil {
		rej, ok := domain.AsRejection(err)
		if !ok {
			log.WithError(err).Error("unexpected admission error")
			h.writeError(w, r, ErrorResponse{
				Code:    codeInternal,
				Message: "failed to process subscription",
				Status:  http.StatusInternalServerError,
			})
			return
		}

		ev.Reason = rej.Kind.Code()
		h.stats.record(r, ev)
		h.reject(w, r, log, key, rej, form)
		return
	}
	h.stats.record(r, ev)

	log = log.WithField("email", MaskEmail(fields.Email))
	if err := h.opts.Subscriber.Subscribe(r.Context(), fields); err != nil {
		log.WithError(err).Error("failed to store subscription")
		h.writeError(w, r, ErrorResponse{
			Code:    codeInternal,
			Message: "failed to process subscription",
			Status:  http.StatusInternalServerError,
		})
		return
	}

	log.Info("subscription admitted")
	w.WriteHeader(http.StatusOK)
}

func (h *subscribeHandler) reject(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, key domain.Key, rej *domain.Rejection, form subscribeForm) {
	status := StatusFor(rej.Kind)
	entry := log.WithFields(logrus.Fields{
		"code":   rej.Kind.Code(),
		"status": status,
	})
	if rej.Field != "" {
		entry = entry.WithField("field", string(rej.Field))
	}

	switch rej.Kind {
	case domain.KindTooManyRequests:
		var wait time.Duration
		if h.opts.Retry != nil {
			wait = h.opts.Retry.RetryAfter(key)
		}
		w.Header().Set("Retry-After", retryAfterSeconds(wait))
		entry.Info("subscription rate limited")
	case domain.KindPossibleInjection:
		// a categoria é segura de registrar; o input não
		if name, ok := validation.Threats.Match(form.Email); ok {
			entry = entry.WithField("pattern", name)
		} else if name, ok := validation.Threats.Match(form.Name); ok {
			entry = entry.WithField("pattern", name)
		}
		entry.Warn("possible injection attempt blocked")
	case domain.KindSuspiciousContent:
		entry.Warn("suspicious subscription content")
	default:
		entry.Info("subscription rejected")
	}

	h.writeError(w, r, ErrorResponse{
		Code:    rej.Kind.Code(),
		Message: rej.Error(),
		Field:   string(rej.Field),
		Status:  status,
	})
}

func (h *subscribeHandler) writeError(w http.ResponseWriter, r *http.Request, resp ErrorResponse) {
	writeErrorResponse(w, r, h.opts.Clock, resp)
}

// writeErrorResponse completa error_id (request id do chi, ou um UUID novo)
// e timestamp antes de escrever o envelope.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, clock domain.Clock, resp ErrorResponse) {
	resp.ErrorID = middleware.GetReqID(r.Context())
	if resp.ErrorID == "" {
		resp.ErrorID = uuid.NewString()
	}
	resp.Timestamp = clock.Now().UTC().Format(time.RFC3339)
	writeJSON(w, resp.Status, resp)
}

// StatusFor traduz o tipo de rejeição para o status HTTP.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindTooManyRequests:
		return http.StatusTooManyRequests
	case domain.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

// MaskEmail esconde a parte local para logs: "user@example.com" vira "u***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local := []rune(email[:at])
	return string(local[0]) + "***" + email[at:]
}

func readLimited(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	// lê no máximo limit+1 bytes: o suficiente para saber que passou do limite
	return io.ReadAll(io.LimitReader(r.Body, limit+1))
}

// decodeForm extrai email e nome. Corpo malformado resulta em campos vazios,
// que o Gate rejeita depois de consumir a cota do cliente.
func decodeForm(contentType string, body []byte) subscribeForm {
	var form subscribeForm
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		if err := json.Unmarshal(body, &form); err != nil {
			return subscribeForm{}
		}
		return form
	}

	values, _ := url.ParseQuery(string(body))
	form.Email = values.Get("email")
	form.Name = values.Get("name")
	return form
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
