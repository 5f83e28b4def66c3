package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/property-listings/internal/model"
	"github.com/iliyamo/property-listings/internal/policy"
	"github.com/iliyamo/property-listings/internal/repository"
	"github.com/iliyamo/property-listings/internal/utils"
)

// UserService backs the admin panel and the operator CLI.
type UserService struct {
	users      UserStore
	cache      CachePurger
	bcryptCost int
	log        *zap.Logger
	now        func() time.Time
}

func NewUserService(users UserStore, cache CachePurger, bcryptCost int, log *zap.Logger) *UserService {
	if cache == nil {
		cache = noopPurger{}
	}
	return &UserService{
		users:      users,
		cache:      cache,
		bcryptCost: bcryptCost,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListUsers returns every account, oldest first.
func (s *UserService) ListUsers(ctx context.Context, who *model.Identity) ([]*model.User, error) {
	if err := authorize(who, policy.ListUsers, policy.Resource{}); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, upstream("list users", err)
	}
	return users, nil
}

// ChangeRole sets the role of user id on behalf of who.
func (s *UserService) ChangeRole(ctx context.Context, who *model.Identity, id string, role model.Role) (*model.User, error) {
	// Non-admins are refused before the role is inspected.
	err := authorize(who, policy.ChangeUserRole, policy.Resource{TargetUserID: id, NewRole: role})
	if err != nil && !errors.Is(err, ErrSelfDemotion) {
		return nil, err
	}
	if !role.Valid() {
		return nil, invalid("role", "Invalid role provided.")
	}
	if err != nil {
		return nil, err
	}
	return s.setRole(ctx, id, role)
}

// DeleteUser removes user id on behalf of who. The user's listings go
// with it.
func (s *UserService) DeleteUser(ctx context.Context, who *model.Identity, id string) error {
	if err := authorize(who, policy.DeleteUser, policy.Resource{TargetUserID: id}); err != nil {
		return err
	}
	return s.deleteByID(ctx, id)
}

// CreateAdmin creates a verified ADMIN account. Operator use only: it is
// not subject to the session policy.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("", "Email and password are required.")
	}
	if err := utils.CheckPasswordComplexity(password); err != nil {
		return nil, invalid("password", err.Error())
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &model.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		Role:           model.RoleAdmin,
		EmailVerified:  &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = &name
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, upstream("create admin", err)
	}
	s.log.Info("admin created", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

// SetRoleByEmail changes a role from the operator CLI.
func (s *UserService) SetRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, invalid("role", "Invalid role provided.")
	}
	u, err := s.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.setRole(ctx, u.ID, role)
}

// DeleteByEmail removes an account from the operator CLI.
func (s *UserService) DeleteByEmail(ctx context.Context, email string) error {
	u, err := s.byEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.deleteByID(ctx, u.ID)
}

func (s *UserService) byEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, upstream("load user", err)
	}
	return u, nil
}

func (s *UserService) setRole(ctx context.Context, id string, role model.Role) (*model.User, error) {
	err := s.users.UpdateRole(ctx, id, role, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, upstream("update role", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, upstream("reload user", err)
	}
	s.log.Info("role changed", zap.String("user_id", id), zap.String("role", string(role)))
	return u, nil
}

func (s *UserService) deleteByID(ctx context.Context, id string) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return upstream("delete user", err)
	}
	// Cached listing pages may still show the user's properties.
	s.cache.Purge(ctx)
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}
