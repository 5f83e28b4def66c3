// Package service implements the business operations of the listing API:
// authentication and account recovery, listing management and user
// administration. Services depend on small store interfaces so they can be
// exercised without a database.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/property-listings/internal/model"
	"github.com/iliyamo/property-listings/internal/policy"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidImageURL    = errors.New("invalid image url")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrUpstream           = errors.New("upstream failure")

	// Self-protection denials; both match ErrForbidden with errors.Is.
	ErrSelfDemotion = fmt.Errorf("%w: you cannot remove your own admin role", ErrForbidden)
	ErrSelfDeletion = fmt.Errorf("%w: you cannot delete your own account", ErrForbidden)
)

// ValidationError reports malformed or missing input on a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// upstream marks err as a store or transport failure of op.
func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// authorize turns a policy decision into an error.
func authorize(who *model.Identity, action policy.Action, res policy.Resource) error {
	d := policy.Authorize(who, action, res)
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case policy.Unauthenticated:
		return ErrUnauthenticated
	case policy.SelfDemotionForbidden:
		return ErrSelfDemotion
	case policy.SelfDeletionForbidden:
		return ErrSelfDeletion
	}
	return ErrForbidden
}
