package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-gateway/middleware/admission/domain"
)

func TestValidateEmail_Valid(t *testing.T) {
	for _, in := range []string{"user@example.com", "test.email@domain.co.uk", "user+tag@example.com", "first_last@sub-domain.example.org"} {
		got, err := ValidateEmail(in)
		require.NoErrorf(t, err, "expected %q to be valid", in)
		assert.Equal(t, in, got)
	}
}

func TestValidateEmail_TrimsWhitespace(t *testing.T) {
	got, err := ValidateEmail("  user@example.com \n")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got)
}

func TestValidateEmail_IsIdempotent(t *testing.T) {
	first, err := ValidateEmail(" user@example.com ")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := ValidateEmail(first)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestValidateEmail_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  domain.Kind
	}{
		{"empty", "", domain.KindFieldEmpty},
		{"only whitespace", "   ", domain.KindFieldEmpty},
		{"too short", "a@b", domain.KindFieldTooShort},
		{"too long", strings.Repeat("a", 250) + "@example.com", domain.KindFieldTooLong},
		{"double at", "user@@example.com", domain.KindSuspiciousContent},
		{"no at", "invalid", domain.KindSuspiciousContent},
		{"long local part", strings.Repeat("a", 100) + "@example.com", domain.KindSuspiciousContent},
		{"null byte", "us\x00er@example.com", domain.KindSuspiciousContent},
		{"union injection", "x' UNION SELECT password FROM users--@example.com", domain.KindPossibleInjection},
		{"tautology", "user' OR '1'='1@example.com", domain.KindPossibleInjection},
		{"stacked query", "user; DROP TABLE@example.com", domain.KindPossibleInjection},
		{"missing domain", "user@", domain.KindInvalidFormat},
		{"missing local part", "@example.com", domain.KindInvalidFormat},
		{"label too long", "user@" + strings.Repeat("a", 64) + ".com", domain.KindInvalidFormat},
		{"label starts with hyphen", "user@-example.com", domain.KindInvalidFormat},
		{"space in local part", "first last@example.com", domain.KindInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateEmail(tt.input)
			require.Error(t, err)
			assert.Empty(t, got)

			rej, ok := domain.AsRejection(err)
			require.True(t, ok, "expected a rejection, got %T", err)
			assert.Equal(t, tt.kind, rej.Kind)
			assert.NotContains(t, err.Error(), "@", "rejection must not echo the input")
		})
	}
}

func TestValidateEmail_LengthBoundaries(t *testing.T) {
	_, err := ValidateEmail("a@b.c")
	assert.NoError(t, err, "5 bytes is the minimum length")

	// 64 + 1 + 189 = 254 bytes, labels of at most 63 characters
	local := strings.Repeat("a", 64)
	domainPart := strings.Repeat("b", 63) + "." + strings.Repeat("c", 63) + "." + strings.Repeat("d", 61)
	email := local + "@" + domainPart
	require.Len(t, email, 254)
	_, err = ValidateEmail(email)
	assert.NoError(t, err)

	_, err = ValidateEmail(email + "d")
	assert.True(t, domain.IsKind(err, domain.KindFieldTooLong))
}

func TestValidateEmail_RejectionFieldIsEmail(t *testing.T) {
	_, err := ValidateEmail("user@")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.FieldEmail, rej.Field)
}
