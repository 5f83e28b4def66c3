package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/property-listings/internal/model"
	"github.com/iliyamo/property-listings/internal/repository"
	"github.com/iliyamo/property-listings/internal/utils"
)

// TokenStore persists single-use tokens. *repository.TokenRepo satisfies it.
type TokenStore interface {
	Create(ctx context.Context, t *model.Token) error
	DeleteBySubject(ctx context.Context, kind model.TokenKind, subject string) error
	Find(ctx context.Context, kind model.TokenKind, value, subject string) (*model.Token, error)
	Delete(ctx context.Context, t *model.Token) error
}

// Token validity windows.
const (
	PasswordResetTTL = time.Hour
	VerificationTTL  = 24 * time.Hour
)

// TokenManager issues and consumes password reset and verification tokens.
type TokenManager struct {
	store TokenStore
	now   func() time.Time
}

func NewTokenManager(store TokenStore) *TokenManager {
	return &TokenManager{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func ttlOf(kind model.TokenKind) (time.Duration, error) {
	switch kind {
	case model.TokenPasswordReset:
		return PasswordResetTTL, nil
	case model.TokenVerification:
		return VerificationTTL, nil
	}
	return 0, fmt.Errorf("unknown token kind %q", kind)
}

// Issue creates a fresh token of kind for subject. Older tokens of the same
// kind for subject are deleted first so at most one stays live.
func (m *TokenManager) Issue(ctx context.Context, kind model.TokenKind, subject string) (*model.Token, error) {
	ttl, err := ttlOf(kind)
	if err != nil {
		return nil, err
	}
	value, err := utils.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if err := m.store.DeleteBySubject(ctx, kind, subject); err != nil {
		return nil, upstream("delete previous tokens", err)
	}
	t := &model.Token{
		Kind:    kind,
		ID:      uuid.NewString(),
		Subject: subject,
		Value:   value,
		Expires: m.now().Add(ttl),
	}
	if err := m.store.Create(ctx, t); err != nil {
		return nil, upstream("store token", err)
	}
	return t, nil
}

// Consume validates and invalidates a token, returning its subject.
// Verification tokens are matched on (subject, value); reset tokens on
// value alone. An expired token is deleted before ErrTokenExpired is
// returned. A token that another caller consumed first yields
// ErrTokenNotFound.
func (m *TokenManager) Consume(ctx context.Context, kind model.TokenKind, value, subject string) (string, error) {
	if value == "" || (kind == model.TokenVerification && subject == "") {
		return "", ErrTokenNotFound
	}
	t, err := m.store.Find(ctx, kind, value, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", upstream("find token", err)
	}

	if t.Expired(m.now()) {
		if err := m.store.Delete(ctx, t); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return "", upstream("delete expired token", err)
		}
		return "", ErrTokenExpired
	}

	if err := m.store.Delete(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTokenNotFound
		}
		return "", upstream("delete token", err)
	}
	return t.Subject, nil
}
