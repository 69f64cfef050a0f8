package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão (permitida ou rejeitada).
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
// Reason carrega o código da rejeição (Kind.Code) e fica vazio quando Allowed.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de chaves em uma base como Redis).
type StatsEvent struct {
	Key     Key
	Allowed bool
	Reason  string

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Implementações podem armazenar em Redis, memória, etc.
// Quem grava deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
