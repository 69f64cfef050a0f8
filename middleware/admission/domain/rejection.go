package domain

import (
	"errors"
	"fmt"
)

// Kind é o conjunto fechado de motivos de rejeição de uma inscrição.
type Kind int

const (
	KindTooManyRequests Kind = iota + 1
	KindPayloadTooLarge
	KindFieldEmpty
	KindFieldTooShort
	KindFieldTooLong
	KindInvalidFormat
	KindSuspiciousContent
	KindPossibleInjection
)

// Code é o código estável exposto para clientes e estatísticas.
func (k Kind) Code() string {
	switch k {
	case KindTooManyRequests:
		return "too_many_requests"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindFieldEmpty:
		return "field_empty"
	case KindFieldTooShort:
		return "field_too_short"
	case KindFieldTooLong:
		return "field_too_long"
	case KindInvalidFormat:
		return "invalid_format"
	case KindSuspiciousContent:
		return "suspicious_content"
	case KindPossibleInjection:
		return "possible_injection"
	default:
		return "unknown"
	}
}

func (k Kind) String() string { return k.Code() }

// Field nomeia o campo que falhou na validação.
type Field string

const (
	FieldEmail  Field = "email"
	FieldName   Field = "name"
	FieldID     Field = "id"
	FieldStatus Field = "status"
)

// Rejection é o erro tipado devolvido por toda verificação de admissão.
//
// Field só é preenchido para as variantes de campo; Limit guarda o mínimo,
// o máximo ou o tamanho máximo de payload, conforme a variante.
// A mensagem nunca repete o valor recebido.
type Rejection struct {
	Kind  Kind
	Field Field
	Limit int64
}

func (r *Rejection) Error() string {
	switch r.Kind {
	case KindTooManyRequests:
		return "rate limit exceeded"
	case KindPayloadTooLarge:
		return fmt.Sprintf("payload exceeds maximum of %d bytes", r.Limit)
	case KindFieldEmpty:
		return fmt.Sprintf("%s is empty", r.Field)
	case KindFieldTooShort:
		return fmt.Sprintf("%s is too short (minimum %d characters)", r.Field, r.Limit)
	case KindFieldTooLong:
		return fmt.Sprintf("%s is too long (maximum %d characters)", r.Field, r.Limit)
	case KindInvalidFormat:
		return fmt.Sprintf("%s has invalid format", r.Field)
	case KindSuspiciousContent:
		return fmt.Sprintf("%s contains suspicious content", r.Field)
	case KindPossibleInjection:
		return "input contains potentially dangerous SQL patterns"
	default:
		return "request rejected"
	}
}

func TooManyRequests() *Rejection { return &Rejection{Kind: KindTooManyRequests} }

func PayloadTooLarge(max int64) *Rejection {
	return &Rejection{Kind: KindPayloadTooLarge, Limit: max}
}

func FieldEmpty(f Field) *Rejection { return &Rejection{Kind: KindFieldEmpty, Field: f} }

func FieldTooShort(f Field, min int) *Rejection {
	return &Rejection{Kind: KindFieldTooShort, Field: f, Limit: int64(min)}
}

func FieldTooLong(f Field, max int) *Rejection {
	return &Rejection{Kind: KindFieldTooLong, Field: f, Limit: int64(max)}
}

func InvalidFormat(f Field) *Rejection { return &Rejection{Kind: KindInvalidFormat, Field: f} }

func SuspiciousContent(f Field) *Rejection {
	return &Rejection{Kind: KindSuspiciousContent, Field: f}
}

func PossibleInjection() *Rejection { return &Rejection{Kind: KindPossibleInjection} }

// AsRejection extrai a Rejection de err (inclusive se estiver embrulhada).
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// IsKind informa se err é uma Rejection do tipo indicado.
func IsKind(err error, kind Kind) bool {
	rej, ok := AsRejection(err)
	return ok && rej.Kind == kind
}
