package main

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"subscription-gateway/middleware/admission/domain"
	"subscription-gateway/middleware/admission/validation"
)

// memoryStore é a tabela de inscrições do exemplo. Nada sobrevive a um restart.
type memoryStore struct {
	mu      sync.RWMutex
	records []validation.Record
	byEmail map[string]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byEmail: make(map[string]struct{})}
}

// Subscribe grava a inscrição como pendente. Email repetido é ignorado.
//
// Os campos passam de novo pelos validadores de entrada (inclusive padrões de
// ameaça): a tabela não confia em quem chamou, seja o Gate ou o gateway.
func (s *memoryStore) Subscribe(_ context.Context, fields domain.CanonicalFields) error {
	email, err := validation.ValidateEmail(fields.Email)
	if err != nil {
		return err
	}
	name, err := validation.ValidateName(fields.Name)
	if err != nil {
		return err
	}

	rec := validation.Record{
		ID:     uuid.NewString(),
		Email:  email,
		Name:   name,
		Status: validation.StatusPending,
	}
	if err := validation.ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[rec.Email]; ok {
		return nil
	}
	s.byEmail[rec.Email] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryStore) List() []validation.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]validation.Record, len(s.records))
	copy(out, s.records)
	return out
}
