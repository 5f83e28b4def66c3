package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/property-listings/internal/model"
)

const userColumns = "id, name, email, hashed_password, role, email_verified, created_at, updated_at"

// UserRepo persists rows of the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		name     sql.NullString
		verified sql.NullTime
		role     string
	)
	err := row.Scan(&u.ID, &name, &u.Email, &u.HashedPassword, &role, &verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if name.Valid {
		u.Name = &name.String
	}
	if verified.Valid {
		t := verified.Time
		u.EmailVerified = &t
	}
	return &u, nil
}

// Create inserts u. ID, CreatedAt and UpdatedAt must already be set.
// A duplicate email yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, name, email, hashed_password, role, email_verified, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.HashedPassword, string(u.Role), u.EmailVerified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// List returns every user, oldest first.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateRole sets the role of user id.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role model.Role, now time.Time) error {
	return r.execOne(ctx, "UPDATE users SET role=?, updated_at=? WHERE id=?", string(role), now, id)
}

// UpdatePassword replaces the password hash of user id.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string, now time.Time) error {
	return r.execOne(ctx, "UPDATE users SET hashed_password=?, updated_at=? WHERE id=?", hash, now, id)
}

// MarkEmailVerified records when the user proved ownership of their email.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, "UPDATE users SET email_verified=?, updated_at=? WHERE id=?", at, at, id)
}

// Delete removes user id. Listings owned by the user are removed by the
// ON DELETE CASCADE constraint on properties.owner_id.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "DELETE FROM users WHERE id=?", id)
}

// execOne runs a statement that must touch exactly one existing row. MySQL
// reports zero affected rows for an UPDATE that changes nothing, so a
// zero count is confirmed with an existence check before ErrNotFound.
func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", args[len(args)-1]).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
