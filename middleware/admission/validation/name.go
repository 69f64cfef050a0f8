package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"subscription-gateway/middleware/admission/domain"
)

const (
	minNameLength = 1
	maxNameLength = 256

	// acima disso o nome parece mais um payload do que um nome
	maxNameSpecialChars = 5
)

// ValidateName devolve o nome aparado ou um *domain.Rejection.
// O tamanho é contado em caracteres (runes), não em bytes.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)

	if name == "" {
		return "", domain.FieldEmpty(domain.FieldName)
	}
	n := utf8.RuneCountInString(name)
	if n < minNameLength {
		return "", domain.FieldTooShort(domain.FieldName, minNameLength)
	}
	if n > maxNameLength {
		return "", domain.FieldTooLong(domain.FieldName, maxNameLength)
	}

	if suspiciousName(name) {
		return "", domain.SuspiciousContent(domain.FieldName)
	}
	if Threats.MatchesAny(name) {
		return "", domain.PossibleInjection()
	}
	return name, nil
}

func suspiciousName(name string) bool {
	if !utf8.ValidString(name) {
		return true
	}

	special := 0
	for _, r := range name {
		// inclui o byte nulo
		if unicode.IsControl(r) {
			return true
		}
		if !allowedNameRune(r) {
			special++
		}
	}
	return special > maxNameSpecialChars
}

func allowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '-', '.', '_', '\'':
		return true
	}
	return false
}
