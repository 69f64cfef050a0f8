package infra

import (
	"golang.org/x/time/rate"

	"subscription-gateway/middleware/admission/domain"
)

// GlobalStore devolve o mesmo limiter para qualquer chave: é o teto
// agregado do serviço, independente de quem está chamando.
type GlobalStore struct {
	lim *rate.Limiter
}

func NewGlobalStore(rps float64, burst int) *GlobalStore {
	return &GlobalStore{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (s *GlobalStore) RPS() float64 { return float64(s.lim.Limit()) }
func (s *GlobalStore) Burst() int   { return s.lim.Burst() }

// Get implementa domain.LimiterStore.
func (s *GlobalStore) Get(domain.Key) domain.Limiter { return s.lim }
