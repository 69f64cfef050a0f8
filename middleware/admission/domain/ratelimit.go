package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o cliente para fins de rate limit (ex: IP, API key).
type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// A implementação padrão é o token bucket de infra.Registry, mas
// *rate.Limiter (golang.org/x/time/rate) também satisfaz esta interface.
type Limiter interface {
	Allow() bool
}

// RetryHinter é implementado por limiters que sabem estimar quando a
// próxima ação será permitida.
type RetryHinter interface {
	RetryAfter() time.Duration
}

// LimiterStore obtém um limiter por chave (ex: IP, API key, usuário).
// A implementação pode manter cache, TTL, etc.
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
