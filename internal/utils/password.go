package utils

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 8

// PasswordSpecialChars is the set of characters that satisfies the
// special-character rule.
const PasswordSpecialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// Complexity violations, in the order they are checked.
var (
	ErrPasswordTooShort  = errors.New("Password must be at least 8 characters long.")
	ErrPasswordNoUpper   = errors.New("Password must contain at least one uppercase letter.")
	ErrPasswordNoLower   = errors.New("Password must contain at least one lowercase letter.")
	ErrPasswordNoDigit   = errors.New("Password must contain at least one number.")
	ErrPasswordNoSpecial = errors.New("Password must contain at least one special character.")
)

// CheckPasswordComplexity returns the first violated rule or nil. Rules are
// checked as length, uppercase, lowercase, digit, special character, and the
// order is part of the user-facing contract.
func CheckPasswordComplexity(pwd string) error {
	if len([]rune(pwd)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	var upper, lower, digit, special bool
	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return ErrPasswordNoUpper
	case !lower:
		return ErrPasswordNoLower
	case !digit:
		return ErrPasswordNoDigit
	case !special:
		return ErrPasswordNoSpecial
	}
	return nil
}

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
