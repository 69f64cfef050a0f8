package domain

import "time"

// Clock é a fonte de tempo usada pelo rate limit.
// Regressões do relógio são toleradas: quem consome trata elapsed < 0 como 0.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapta uma função comum para Clock. Útil em testes.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock usa time.Now.
var SystemClock Clock = systemClock{}
