package infra

import (
	"math"
	"time"
)

// TokenBucket é o estado de rate limit de uma única chave.
//
// Os tokens são um acumulador real reabastecido continuamente
// (refillRate tokens por segundo), sempre limitado a capacity.
// Não é seguro para uso concorrente: o Registry serializa o acesso por chave.
type TokenBucket struct {
	tokens     float64
	capacity   int
	refillRate float64
	lastRefill time.Time
}

// NewTokenBucket cria um bucket cheio.
func NewTokenBucket(capacity int, refillRate float64, now time.Time) TokenBucket {
	return TokenBucket{
		tokens:     float64(capacity),
		capacity:   capacity,
		refillRate: refillRate,
		lastRefill: now,
	}
}

// TryConsume reabastece o bucket até now e tenta consumir um token.
// O reabastecimento acontece mesmo quando a chamada é rejeitada.
func (b *TokenBucket) TryConsume(now time.Time) bool {
	b.tokens = b.tokensAt(now)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter estima quanto falta para haver um token inteiro, sem alterar o bucket.
func (b *TokenBucket) RetryAfter(now time.Time) time.Duration {
	missing := 1 - b.tokensAt(now)
	if missing <= 0 {
		return 0
	}
	if b.refillRate <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing / b.refillRate * float64(time.Second)))
}

func (b *TokenBucket) Tokens() float64     { return b.tokens }
func (b *TokenBucket) Capacity() int       { return b.capacity }
func (b *TokenBucket) RefillRate() float64 { return b.refillRate }
func (b *TokenBucket) LastRefill() time.Time {
	return b.lastRefill
}

func (b *TokenBucket) tokensAt(now time.Time) float64 {
	// relógio não monotônico: elapsed negativo vira zero
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Min(float64(b.capacity), b.tokens+elapsed*b.refillRate)
}

// fullRefill é o tempo para um bucket vazio voltar a ficar cheio.
// Retorna 0 quando não há reabastecimento.
func fullRefill(capacity int, refillRate float64) time.Duration {
	if refillRate <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(float64(capacity) / refillRate * float64(time.Second)))
}
