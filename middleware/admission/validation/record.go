package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"subscription-gateway/middleware/admission/domain"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Record é uma inscrição já persistida, como lida de volta do armazenamento.
type Record struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ValidateRecord confere a integridade de um registro antes de servi-lo.
func ValidateRecord(rec Record) error {
	if err := ValidateSubscriberID(rec.ID); err != nil {
		return err
	}
	if _, err := ValidateEmail(rec.Email); err != nil {
		return err
	}
	if err := ValidateStoredName(rec.Name); err != nil {
		return err
	}
	return ValidateStatus(rec.Status)
}

// ValidateRecords para no primeiro registro inválido e devolve seu índice.
// Com todos válidos devolve (-1, nil).
func ValidateRecords(recs []Record) (int, error) {
	for i, rec := range recs {
		if err := ValidateRecord(rec); err != nil {
			return i, err
		}
	}
	return -1, nil
}

// ValidateSubscriberID exige um UUID na forma canônica (minúsculo, 8-4-4-4-12).
func ValidateSubscriberID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.FieldEmpty(domain.FieldID)
	}
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return domain.InvalidFormat(domain.FieldID)
	}
	return nil
}

// ValidateStoredName é mais branda que ValidateName: dados antigos podem ter
// caracteres especiais, mas nunca bytes nulos ou de controle.
func ValidateStoredName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.FieldEmpty(domain.FieldName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return domain.FieldTooLong(domain.FieldName, maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return domain.SuspiciousContent(domain.FieldName)
		}
	}
	return nil
}

func ValidateStatus(status string) error {
	switch strings.TrimSpace(status) {
	case StatusPending, StatusConfirmed:
		return nil
	case "":
		return domain.FieldEmpty(domain.FieldStatus)
	default:
		return domain.InvalidFormat(domain.FieldStatus)
	}
}
