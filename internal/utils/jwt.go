package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/property-listings/internal/model"
)

// SessionToken is a signed JWT carrying the caller's identity along with
// its expiry. Sessions are stateless: nothing about them is stored.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims are the claims embedded in a session token. The subject
// duplicates UserID so that generic JWT tooling can read it.
type SessionClaims struct {
	UserID        string     `json:"id"`
	Role          model.Role `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	Email         string     `json:"email,omitempty"`
	Name          string     `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidSession is returned for any token that fails signature,
// expiry or claim validation.
var ErrInvalidSession = errors.New("invalid session token")

// NewSessionToken builds and signs an HS256 JWT for id that expires after ttl.
func NewSessionToken(secret string, id model.Identity, ttl time.Duration, now time.Time) (SessionToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		UserID:        id.ID,
		Role:          id.Role,
		EmailVerified: id.EmailVerified,
		Email:         id.Email,
		Name:          id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies the signature and expiry of raw and returns the
// identity it carries. Every failure is reported as ErrInvalidSession.
func ParseSessionToken(secret, raw string) (model.Identity, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return model.Identity{}, fmt.Errorf("%w: missing id or role claim", ErrInvalidSession)
	}
	return model.Identity{
		ID:            claims.UserID,
		Name:          claims.Name,
		Email:         claims.Email,
		Role:          claims.Role,
		EmailVerified: claims.EmailVerified,
	}, nil
}
