package admission

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"subscription-gateway/middleware/admission/application"
	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/infra"
)

// blockingSubscriber segura a inscrição até release ser fechado.
type blockingSubscriber struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSubscriber) Subscribe(_ context.Context, _ domain.CanonicalFields) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil
}

func TestConcurrencyMiddleware_BusySubscribeReturnsEnvelope(t *testing.T) {
	reg, err := infra.NewRegistry(10, 1)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	gate, err := application.NewGate(application.DefaultConfig(), reg)
	if err != nil {
		t.Fatalf("failed to create gate: %v", err)
	}
	sub := &blockingSubscriber{started: make(chan struct{}), release: make(chan struct{})}
	subscribe, err := SubscribeHandler(HandlerOptions{Gate: gate, Subscriber: sub, Retry: reg})
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}

	pool := infra.NewChanPool(1)
	h := middleware.RequestID(ConcurrencyMiddleware(ConcurrencyOptions{
		Pool:           pool,
		AcquireTimeout: 25 * time.Millisecond,
	})(subscribe))

	post := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "http://example/subscriptions",
			strings.NewReader("email=user%40example.com&name=Ann"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	firstDone := make(chan *httptest.ResponseRecorder, 1)
	// request 1: ocupa a única vaga dentro do Subscriber
	go func() { firstDone <- post("10.0.0.1:1234") }()

	select {
	case <-sub.started:
	case <-time.After(500 * time.Millisecond):
		close(sub.release)
		t.Fatalf("timeout waiting first request to reach the subscriber")
	}
	if pool.InUse() != 1 || pool.Cap() != 1 {
		close(sub.release)
		t.Fatalf("expected 1/1 slots in use, got %d/%d", pool.InUse(), pool.Cap())
	}

	// request 2: outro cliente, sem vaga, deve falhar por timeout
	w2 := post("10.0.0.2:1234")
	close(sub.release)

	if w2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected second request 503, got %d", w2.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON error body, got %q: %v", w2.Body.String(), err)
	}
	if resp.Code != "server_busy" || resp.Status != http.StatusServiceUnavailable || resp.ErrorID == "" {
		t.Fatalf("unexpected error envelope: %+v", resp)
	}

	select {
	case w1 := <-firstDone:
		if w1.Code != http.StatusOK {
			t.Fatalf("expected first request 200, got %d", w1.Code)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting first request to finish")
	}
	if pool.InUse() != 0 {
		t.Fatalf("expected slot released, got %d in use", pool.InUse())
	}

	// a requisição barrada não gastou cota do segundo cliente
	if _, ok := reg.Tokens("10.0.0.2"); ok {
		t.Fatalf("busy rejection must not touch the rate limit")
	}
}

func TestConcurrencyMiddleware_DisabledWithoutMaxOrPool(t *testing.T) {
	called := false
	h := ConcurrencyMiddleware(ConcurrencyOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if !called {
		t.Fatalf("expected pass-through when no limit is configured")
	}
}
