package application

import (
	"fmt"

	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/validation"
)

const (
	DefaultRequestsPerMinute = 10
	DefaultMaxPayloadBytes   = 1024
)

// Config são as opções reconhecidas pelo Gate.
type Config struct {
	RequestsPerMinute int
	MaxPayloadBytes   int64
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: DefaultRequestsPerMinute,
		MaxPayloadBytes:   DefaultMaxPayloadBytes,
	}
}

// Capacity é o tamanho do bucket: um minuto inteiro de requisições.
func (c Config) Capacity() int { return c.RequestsPerMinute }

// RefillRate é a taxa de reabastecimento em tokens por segundo.
func (c Config) RefillRate() float64 { return float64(c.RequestsPerMinute) / 60 }

func (c Config) Validate() error {
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be > 0, got %d", c.RequestsPerMinute)
	}
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max payload bytes must be > 0, got %d", c.MaxPayloadBytes)
	}
	return nil
}

// RateChecker consome a cota de uma chave; infra.Registry implementa.
type RateChecker interface {
	Check(key domain.Key) error
}

// Gate orquestra a admissão de uma inscrição: tamanho do payload, rate limit,
// email e nome, nessa ordem. A primeira falha interrompe as demais.
// Não faz I/O e é seguro para uso concorrente se o RateChecker for.
type Gate struct {
	limiter    RateChecker
	maxPayload int64
}

func NewGate(cfg Config, limiter RateChecker) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate checker is required")
	}
	return &Gate{limiter: limiter, maxPayload: cfg.MaxPayloadBytes}, nil
}

func (g *Gate) MaxPayloadBytes() int64 { return g.maxPayload }

// Admit devolve os campos canônicos ou um *domain.Rejection.
func (g *Gate) Admit(key domain.Key, payloadLen int64, rawEmail, rawName string) (domain.CanonicalFields, error) {
	if err := domain.CheckPayloadSize(payloadLen, g.maxPayload); err != nil {
		return domain.CanonicalFields{}, err
	}
	if err := g.limiter.Check(key); err != nil {
		return domain.CanonicalFields{}, err
	}

	email, err := validation.ValidateEmail(rawEmail)
	if err != nil {
		return domain.CanonicalFields{}, err
	}
	name, err := validation.ValidateName(rawName)
	if err != nil {
		return domain.CanonicalFields{}, err
	}
	return domain.CanonicalFields{Email: email, Name: name}, nil
}
