package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckPasswordComplexityOrder(t *testing.T) {
	cases := []struct {
		name string
		pwd  string
		want error
	}{
		{"empty", "", ErrPasswordTooShort},
		{"short but otherwise fine", "Ab1!", ErrPasswordTooShort},
		{"no upper", "abcdefg1!", ErrPasswordNoUpper},
		{"no lower", "ABCDEFG1!", ErrPasswordNoLower},
		{"no digit", "Abcdefgh!", ErrPasswordNoDigit},
		{"no special", "Abcdefg12", ErrPasswordNoSpecial},
		{"lower only reports upper first", "abcdefgh", ErrPasswordNoUpper},
		{"valid", "Abcdefg1!", nil},
		{"valid with backtick", "Abcdefg1`", nil},
		{"valid with backslash", `Abcdefg1\`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPasswordComplexity(tc.pwd)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCheckPasswordComplexityMessages(t *testing.T) {
	require.EqualError(t, CheckPasswordComplexity("short"), "Password must be at least 8 characters long.")
	require.EqualError(t, CheckPasswordComplexity("Abcdefgh1"), "Password must contain at least one special character.")
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Secret123!", 4)
	require.NoError(t, err)
	require.NotEqual(t, "Secret123!", hash)

	require.True(t, VerifyPassword(hash, "Secret123!"))
	require.False(t, VerifyPassword(hash, "secret123!"))
	require.False(t, VerifyPassword("", "Secret123!"))
}

func TestNewOpaqueToken(t *testing.T) {
	a, err := NewOpaqueToken()
	require.NoError(t, err)
	b, err := NewOpaqueToken()
	require.NoError(t, err)

	require.Len(t, a, 2*TokenBytes)
	require.NotEqual(t, a, b)
}
