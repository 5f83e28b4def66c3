package model

import "time"

// TokenKind selects which single-use token family a Token belongs to.
type TokenKind string

const (
    // TokenPasswordReset rows live in `password_reset_tokens`.
    TokenPasswordReset TokenKind = "password_reset"
    // TokenVerification rows live in `verification_tokens` and are keyed
    // by (identifier, token).
    TokenVerification TokenKind = "verification"
)

// Token is an ephemeral, single-use credential bound to an email address.
// ID is only populated for password reset tokens; verification tokens are
// identified by the (Subject, Value) pair.
type Token struct {
    Kind    TokenKind
    ID      string    // password_reset_tokens.id
    Subject string    // password_reset_tokens.email | verification_tokens.identifier
    Value   string    // random hex string handed to the user
    Expires time.Time // UTC expiry
}

// Expired reports whether the token is no longer usable at now.
func (t *Token) Expired(now time.Time) bool {
    return t.Expires.Before(now)
}
