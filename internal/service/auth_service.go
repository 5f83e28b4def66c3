package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/property-listings/internal/mail"
	"github.com/iliyamo/property-listings/internal/model"
	"github.com/iliyamo/property-listings/internal/repository"
	"github.com/iliyamo/property-listings/internal/utils"
)

// User-facing messages of the account recovery flows. The two "If an
// account..." messages are returned whether or not the email is known.
const (
	MsgResetRequested        = "If an account with that email exists, a password reset link has been sent."
	MsgVerificationRequested = "If an account with that email exists, a verification link has been sent."
	MsgAlreadyVerified       = "Email is already verified."
	MsgPasswordReset         = "Password has been reset successfully."
	MsgEmailVerified         = "Email verified successfully! You can now sign in."
)

// UserStore persists users. *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role, now time.Time) error
	UpdatePassword(ctx context.Context, id, hash string, now time.Time) error
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// Mailer dispatches an email. Delivery is best effort.
type Mailer interface {
	Send(ctx context.Context, m mail.Message) error
}

// AuthConfig holds the settings of AuthService.
type AuthConfig struct {
	JWTSecret            string
	SessionTTL           time.Duration
	BcryptCost           int
	RequireVerifiedEmail bool
	AppURL               string
}

// AuthService registers users, checks credentials, issues sessions and
// runs the password reset and email verification flows.
type AuthService struct {
	users  UserStore
	tokens *TokenManager
	mailer Mailer
	cfg    AuthConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens *TokenManager, mailer Mailer, cfg AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a CLIENT account and requests a verification email.
// A failure to send the email does not fail the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, invalid("", "Name, email, and password are required.")
	}
	if err := utils.CheckPasswordComplexity(in.Password); err != nil {
		return nil, invalid("password", err.Error())
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &model.User{
		ID:             uuid.NewString(),
		Name:           &name,
		Email:          email,
		HashedPassword: hash,
		Role:           model.RoleClient,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, upstream("create user", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("email", u.Email))

	s.sendVerification(ctx, u)
	return u, nil
}

// Authenticate checks email and password. Unknown email and wrong password
// both yield ErrInvalidCredentials. When RequireVerifiedEmail is set, an
// unverified account yields ErrEmailNotVerified after the password matched.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (model.Identity, error) {
	if email == "" || password == "" {
		return model.Identity{}, ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("login failed: unknown email", zap.String("email", email))
		return model.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Identity{}, upstream("load user", err)
	}
	if !utils.VerifyPassword(u.HashedPassword, password) {
		s.log.Info("login failed: bad password", zap.String("email", email))
		return model.Identity{}, ErrInvalidCredentials
	}
	if s.cfg.RequireVerifiedEmail && u.EmailVerified == nil {
		return model.Identity{}, ErrEmailNotVerified
	}
	return model.IdentityOf(u), nil
}

// IssueSession signs a session token for id.
func (s *AuthService) IssueSession(id model.Identity) (utils.SessionToken, error) {
	return utils.NewSessionToken(s.cfg.JWTSecret, id, s.cfg.SessionTTL, s.now())
}

// ParseSession decodes a session token. Any failure means the caller is
// anonymous.
func (s *AuthService) ParseSession(raw string) (*model.Identity, error) {
	id, err := utils.ParseSessionToken(s.cfg.JWTSecret, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ForgotPassword issues a reset token and mails the link if email belongs
// to an account. The returned message is the same either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", invalid("email", "Email is required.")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("password reset requested for unknown email", zap.String("email", email))
		return MsgResetRequested, nil
	}
	if err != nil {
		return "", upstream("load user", err)
	}

	s.sendPasswordReset(ctx, u)
	return MsgResetRequested, nil
}

// ResetPassword consumes a reset token and stores a new password. The
// complexity check runs first so a weak password does not burn the token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if token == "" || password == "" {
		return "", invalid("", "Token and new password are required.")
	}
	if err := utils.CheckPasswordComplexity(password); err != nil {
		return "", invalid("password", err.Error())
	}
	email, err := s.tokens.Consume(ctx, model.TokenPasswordReset, token, "")
	if err != nil {
		return "", err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", upstream("load user", err)
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, s.now()); err != nil {
		return "", upstream("update password", err)
	}
	s.log.Info("password reset", zap.String("user_id", u.ID))
	return MsgPasswordReset, nil
}

// ResendVerification issues a new verification token for an unverified
// account. Unknown emails get the generic message.
func (s *AuthService) ResendVerification(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", invalid("email", "Email is required.")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("verification requested for unknown email", zap.String("email", email))
		return MsgVerificationRequested, nil
	}
	if err != nil {
		return "", upstream("load user", err)
	}
	if u.EmailVerified != nil {
		return MsgAlreadyVerified, nil
	}
	s.sendVerification(ctx, u)
	return MsgVerificationRequested, nil
}

// VerifyEmail consumes the verification token of email and marks the
// account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token, email string) (string, error) {
	if token == "" || email == "" {
		return "", invalid("", "Missing token or email.")
	}
	subject, err := s.tokens.Consume(ctx, model.TokenVerification, token, email)
	if err != nil {
		return "", err
	}
	u, err := s.users.GetByEmail(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", upstream("load user", err)
	}
	if err := s.users.MarkEmailVerified(ctx, u.ID, s.now()); err != nil {
		return "", upstream("mark verified", err)
	}
	s.log.Info("email verified", zap.String("user_id", u.ID))
	return MsgEmailVerified, nil
}

// sendVerification issues a verification token for u and requests the
// email. Failures are logged only, so callers answer the same way whether
// or not the account exists.
func (s *AuthService) sendVerification(ctx context.Context, u *model.User) {
	t, err := s.tokens.Issue(ctx, model.TokenVerification, u.Email)
	if err != nil {
		s.log.Error("verification token not issued", zap.String("email", u.Email), zap.Error(err))
		return
	}
	msg, err := mail.VerificationMessage(u.Email, nameOf(u), mail.VerificationLink(s.cfg.AppURL, t.Value, u.Email))
	s.deliver(ctx, "verification", u.Email, msg, err)
}

// sendPasswordReset is the password reset counterpart of sendVerification.
func (s *AuthService) sendPasswordReset(ctx context.Context, u *model.User) {
	t, err := s.tokens.Issue(ctx, model.TokenPasswordReset, u.Email)
	if err != nil {
		s.log.Error("password reset token not issued", zap.String("email", u.Email), zap.Error(err))
		return
	}
	msg, err := mail.PasswordResetMessage(u.Email, nameOf(u), mail.ResetLink(s.cfg.AppURL, t.Value))
	s.deliver(ctx, "password reset", u.Email, msg, err)
}

func (s *AuthService) deliver(ctx context.Context, kind, email string, msg mail.Message, renderErr error) {
	err := renderErr
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn(kind+" email not sent", zap.String("email", email), zap.Error(err))
	}
}

func nameOf(u *model.User) string {
	if u.Name == nil {
		return ""
	}
	return *u.Name
}
