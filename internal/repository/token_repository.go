package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/property-listings/internal/model"
)

// TokenRepo persists password reset tokens ('password_reset_tokens') and
// email verification tokens ('verification_tokens'). Both tables hold
// single-use rows that are deleted once consumed.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func unknownKind(k model.TokenKind) error {
	return fmt.Errorf("unknown token kind %q", k)
}

// Create inserts t into the table for its kind.
func (r *TokenRepo) Create(ctx context.Context, t *model.Token) error {
	var err error
	switch t.Kind {
	case model.TokenPasswordReset:
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO password_reset_tokens (id, token, email, expires) VALUES (?,?,?,?)",
			t.ID, t.Value, t.Subject, t.Expires)
	case model.TokenVerification:
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO verification_tokens (identifier, token, expires) VALUES (?,?,?)",
			t.Subject, t.Value, t.Expires)
	default:
		return unknownKind(t.Kind)
	}
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// DeleteBySubject removes every token of kind issued to subject.
func (r *TokenRepo) DeleteBySubject(ctx context.Context, kind model.TokenKind, subject string) error {
	var err error
	switch kind {
	case model.TokenPasswordReset:
		_, err = r.DB.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE email=?", subject)
	case model.TokenVerification:
		_, err = r.DB.ExecContext(ctx, "DELETE FROM verification_tokens WHERE identifier=?", subject)
	default:
		err = unknownKind(kind)
	}
	return err
}

// Find looks a token up by value. Verification tokens are matched on the
// compound (identifier, token) key, so subject is required for them and
// ignored for password reset tokens.
func (r *TokenRepo) Find(ctx context.Context, kind model.TokenKind, value, subject string) (*model.Token, error) {
	t := model.Token{Kind: kind}
	var err error
	switch kind {
	case model.TokenPasswordReset:
		err = r.DB.QueryRowContext(ctx,
			"SELECT id, token, email, expires FROM password_reset_tokens WHERE token=? LIMIT 1", value).
			Scan(&t.ID, &t.Value, &t.Subject, &t.Expires)
	case model.TokenVerification:
		err = r.DB.QueryRowContext(ctx,
			"SELECT identifier, token, expires FROM verification_tokens WHERE identifier=? AND token=? LIMIT 1",
			subject, value).
			Scan(&t.Subject, &t.Value, &t.Expires)
	default:
		return nil, unknownKind(kind)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes t. Deleting a row that is already gone yields ErrNotFound,
// which lets concurrent consumers of the same token detect that they lost.
func (r *TokenRepo) Delete(ctx context.Context, t *model.Token) error {
	var (
		res sql.Result
		err error
	)
	switch t.Kind {
	case model.TokenPasswordReset:
		res, err = r.DB.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE id=?", t.ID)
	case model.TokenVerification:
		res, err = r.DB.ExecContext(ctx,
			"DELETE FROM verification_tokens WHERE identifier=? AND token=?", t.Subject, t.Value)
	default:
		return unknownKind(t.Kind)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
