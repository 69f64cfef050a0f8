package admission

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/infra"
)

func newKeyedStore(t *testing.T) *infra.Registry {
	t.Helper()
	reg, err := infra.NewRegistry(1, 0.02)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	return reg
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	store := newKeyedStore(t)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	h := Middleware(Options{
		Store:               store,
		RejectStatus:        http.StatusTooManyRequests,
		RetryAfter:          1 * time.Second,
		AddRateLimitHeaders: true,
	})(next)

	// 1) primeira passa
	r1 := httptest.NewRequest(http.MethodPost, "http://example/subscriptions", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get("X-RateLimit-Key"); got != "" {
		t.Fatalf("client key must not be echoed back, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-RPS"); got != "0.02" {
		t.Fatalf("expected X-RateLimit-RPS=0.02, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-Burst"); got != "1" {
		t.Fatalf("expected X-RateLimit-Burst=1, got %q", got)
	}

	// 2) segunda deve bloquear (burst=1 e taxa bem baixa)
	r2 := httptest.NewRequest(http.MethodPost, "http://example/subscriptions", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	// o registry sabe que faltam ~50s para o próximo token
	if got := w2.Header().Get("Retry-After"); got != "50" {
		t.Fatalf("expected Retry-After=50, got %q", got)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON error body, got %q: %v", w2.Body.String(), err)
	}
	if resp.Code != "too_many_requests" || resp.Status != http.StatusTooManyRequests || resp.ErrorID == "" {
		t.Fatalf("unexpected error envelope: %+v", resp)
	}

	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestMiddleware_KeyByHeader(t *testing.T) {
	store := newKeyedStore(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{
		Store:      store,
		KeyHeader:  "X-Api-Key",
		RetryAfter: 1 * time.Second,
	})(next)

	// duas chaves diferentes => ambas devem passar (cada chave tem seu próprio bucket)
	for _, key := range []string{"k1", "k2"} {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.Header.Set("X-Api-Key", key)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for key %s, got %d", key, w.Code)
		}
	}
}

func TestMiddleware_GlobalCeilingRoundsRetryAfterUp(t *testing.T) {
	store := infra.NewGlobalStore(0.02, 1)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{
		Store:      store,
		RetryAfter: 2500 * time.Millisecond,
	})(next)

	r1 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}

	// o teto é global: outro cliente também é barrado
	r2 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r2.RemoteAddr = "10.0.0.2:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := strings.TrimSpace(w2.Header().Get("Retry-After")); got != "3" {
		// ceil(2.5s) == 3
		t.Fatalf("expected Retry-After=3, got %q", got)
	}
}

func TestMiddleware_RecordsStatsWithReason(t *testing.T) {
	store := newKeyedStore(t)
	stats := infra.NewMemoryStatsStore()

	h := Middleware(Options{Store: store, Stats: stats})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "http://example/subscriptions", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	total := stats.Total()
	if total.Allowed != 1 || total.Denied != 2 {
		t.Fatalf("expected 1 allowed / 2 denied, got %+v", total)
	}
	if got := stats.ByReason()[domain.KindTooManyRequests.Code()]; got != 2 {
		t.Fatalf("expected 2 too_many_requests, got %d", got)
	}
}

type failingStats struct{ calls int }

func (f *failingStats) Record(context.Context, domain.StatsEvent) error {
	f.calls++
	return errors.New("redis down")
}

func TestMiddleware_StatsFailureIsLoggedOnce(t *testing.T) {
	logger, hook := test.NewNullLogger()
	stats := &failingStats{}

	h := Middleware(Options{Stats: stats, Logger: logger})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("stats failure must not fail the request, got %d", w.Code)
		}
	}

	if stats.calls != 5 {
		t.Fatalf("expected 5 record attempts, got %d", stats.calls)
	}
	if n := len(hook.AllEntries()); n != 1 {
		t.Fatalf("expected a single throttled warning, got %d", n)
	}
	if hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", hook.LastEntry().Level)
	}
}
