package infra

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"subscription-gateway/middleware/admission/domain"
)

// Registry mantém um token bucket por chave de cliente.
//
// O mapa é dividido em shards (escolhidos pelo xxhash da chave) para que
// chaves diferentes não disputem o mesmo lock. Cada entrada tem seu próprio
// mutex: um bucket só é alterado por um chamador por vez.
type Registry struct {
	shards       []*shard
	capacity     int
	refillRate   float64
	clock        domain.Clock
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// entry.evicted é marcado pelo Cleanup sob entry.mu. Quem encontrar uma
// entrada despejada precisa buscar de novo no mapa.
type entry struct {
	mu      sync.Mutex
	bucket  TokenBucket
	evicted bool
}

type RegistryOption func(*Registry)

// WithShards define a quantidade de shards (mínimo 1).
func WithShards(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.shards = make([]*shard, n)
		}
	}
}

func WithClock(c domain.Clock) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithIdleTTL define após quanto tempo sem uso um bucket pode ser descartado.
// Valores abaixo do tempo de reabastecimento completo são elevados a ele.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) RegistryOption {
	return func(r *Registry) { r.cleanupEvery = d }
}

// NewRegistry cria um registro vazio. Cada bucket nasce cheio com capacity
// tokens e reabastece refillRate tokens por segundo.
func NewRegistry(capacity int, refillRate float64, opts ...RegistryOption) (*Registry, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be > 0, got %d", capacity)
	}
	if refillRate < 0 || math.IsNaN(refillRate) || math.IsInf(refillRate, 0) {
		return nil, fmt.Errorf("refill rate must be a finite value >= 0, got %v", refillRate)
	}

	r := &Registry{
		shards:       make([]*shard, 32),
		capacity:     capacity,
		refillRate:   refillRate,
		clock:        domain.SystemClock,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*entry)}
	}

	// descartar um bucket antes de ele encher de novo devolveria tokens ao cliente
	if full := fullRefill(capacity, refillRate); r.idleTTL < full {
		r.idleTTL = full
	}
	return r, nil
}

func (r *Registry) RPS() float64                { return r.refillRate }
func (r *Registry) Burst() int                  { return r.capacity }
func (r *Registry) IdleTTL() time.Duration      { return r.idleTTL }
func (r *Registry) CleanupEvery() time.Duration { return r.cleanupEvery }

// Check consome um token da chave. Devolve domain.TooManyRequests quando
// o bucket está vazio.
func (r *Registry) Check(key domain.Key) error {
	if r.allow(string(key)) {
		return nil
	}
	return domain.TooManyRequests()
}

// CheckPayloadSize é uma comparação pura, sem estado.
func (r *Registry) CheckPayloadSize(length, max int64) error {
	return domain.CheckPayloadSize(length, max)
}

// Get implementa domain.LimiterStore. O limiter devolvido consulta o
// registro a cada chamada, então continua válido depois de um Cleanup.
func (r *Registry) Get(key domain.Key) domain.Limiter {
	return keyLimiter{r: r, key: key}
}

type keyLimiter struct {
	r   *Registry
	key domain.Key
}

func (l keyLimiter) Allow() bool { return l.r.allow(string(l.key)) }

// RetryAfter implementa domain.RetryHinter.
func (l keyLimiter) RetryAfter() time.Duration { return l.r.RetryAfter(l.key) }

// Tokens devolve o saldo atual da chave sem consumir nada.
func (r *Registry) Tokens(key domain.Key) (float64, bool) {
	sh := r.shardFor(string(key))
	sh.mu.RLock()
	ent, ok := sh.entries[string(key)]
	sh.mu.RUnlock()
	if !ok {
		return 0, false
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.evicted {
		return 0, false
	}
	return ent.bucket.Tokens(), true
}

// RetryAfter estima quanto a chave deve esperar pelo próximo token.
// Chaves desconhecidas começam cheias, então devolvem 0.
func (r *Registry) RetryAfter(key domain.Key) time.Duration {
	sh := r.shardFor(string(key))
	sh.mu.RLock()
	ent, ok := sh.entries[string(key)]
	sh.mu.RUnlock()
	if !ok {
		return 0
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.evicted {
		return 0
	}
	return ent.bucket.RetryAfter(r.clock.Now())
}

// Len é a quantidade de chaves com bucket ativo.
func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

func (r *Registry) entry(key string) *entry {
	sh := r.shardFor(key)

	sh.mu.RLock()
	ent, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok {
		return ent
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	// outra goroutine pode ter criado a entrada entre os dois locks
	if ent, ok := sh.entries[key]; ok {
		return ent
	}
	ent = &entry{bucket: NewTokenBucket(r.capacity, r.refillRate, r.clock.Now())}
	sh.entries[key] = ent
	return ent
}

func (r *Registry) shardFor(key string) *shard {
	return r.shards[xxhash.Sum64String(key)%uint64(len(r.shards))]
}

func (r *Registry) allow(key string) bool {
	for {
		if allowed, live := r.entry(key).tryConsume(r.clock); live {
			return allowed
		}
	}
}

// tryConsume devolve live=false se a entrada foi despejada entre a busca no
// mapa e o lock; nesse caso nenhum token foi gasto.
func (e *entry) tryConsume(clock domain.Clock) (allowed, live bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false, false
	}
	return e.bucket.TryConsume(clock.Now()), true
}

// Cleanup remove buckets sem uso há mais de idleTTL.
func (r *Registry) Cleanup() {
	cutoff := r.clock.Now().Add(-r.idleTTL)

	for _, sh := range r.shards {
		sh.mu.Lock()
		for k, ent := range sh.entries {
			ent.mu.Lock()
			if ent.bucket.LastRefill().Before(cutoff) {
				ent.evicted = true
				delete(sh.entries, k)
			}
			ent.mu.Unlock()
		}
		sh.mu.Unlock()
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (r *Registry) StartJanitor(ctx DoneContext) {
	if r.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(r.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}
