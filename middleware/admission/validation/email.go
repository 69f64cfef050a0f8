package validation

import (
	"regexp"
	"strings"

	"subscription-gateway/middleware/admission/domain"
)

const (
	minEmailLength      = 5
	maxEmailLength      = 254 // RFC 5321
	maxEmailLocalLength = 64
)

// RFC 5322 simplificado: parte local com o charset permitido, domínio em
// rótulos de até 63 caracteres que não começam nem terminam com hífen.
var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+" +
	`@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateEmail devolve o email aparado ou um *domain.Rejection.
//
// Ordem: vazio, tamanho (em bytes), estrutura suspeita, padrões de ameaça e,
// por último, a gramática do endereço.
func ValidateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)

	if email == "" {
		return "", domain.FieldEmpty(domain.FieldEmail)
	}
	if len(email) < minEmailLength {
		return "", domain.FieldTooShort(domain.FieldEmail, minEmailLength)
	}
	if len(email) > maxEmailLength {
		return "", domain.FieldTooLong(domain.FieldEmail, maxEmailLength)
	}

	if suspiciousEmail(email) {
		return "", domain.SuspiciousContent(domain.FieldEmail)
	}
	if Threats.MatchesAny(email) {
		return "", domain.PossibleInjection()
	}
	if !emailPattern.MatchString(email) {
		return "", domain.InvalidFormat(domain.FieldEmail)
	}
	return email, nil
}

func suspiciousEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return true
	}
	if strings.IndexByte(email, 0) >= 0 {
		return true
	}
	local, _, _ := strings.Cut(email, "@")
	return len(local) > maxEmailLocalLength
}
