package handler

import (
    "context"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/middleware"
    "github.com/iliyamo/property-listings/internal/model"
    "github.com/iliyamo/property-listings/internal/service"
    "github.com/iliyamo/property-listings/internal/utils"
)

// AuthAPI is the part of service.AuthService the auth endpoints use.
type AuthAPI interface {
    Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
    Authenticate(ctx context.Context, email, password string) (model.Identity, error)
    IssueSession(id model.Identity) (utils.SessionToken, error)
    ForgotPassword(ctx context.Context, email string) (string, error)
    ResetPassword(ctx context.Context, token, password string) (string, error)
    ResendVerification(ctx context.Context, email string) (string, error)
    VerifyEmail(ctx context.Context, token, email string) (string, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Auth   AuthAPI
    AppURL string
    Log    *zap.Logger
}

func NewAuthHandler(auth AuthAPI, appURL string, log *zap.Logger) *AuthHandler {
    return &AuthHandler{Auth: auth, AppURL: appURL, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name" validate:"required,max=255"`
    Email    string `json:"email" validate:"required,email,max=255"`
    Password string `json:"password" validate:"required"`
}

type loginReq struct {
    Email    string `json:"email" validate:"required"`
    Password string `json:"password" validate:"required"`
}

type emailReq struct {
    Email string `json:"email" validate:"required"`
}

type resetReq struct {
    Token    string `json:"token" validate:"required"`
    Password string `json:"password" validate:"required"`
}

type registerResp struct {
    ID    string `json:"id"`
    Name  string `json:"name"`
    Email string `json:"email"`
}

type loginResp struct {
    User    model.Identity `json:"user"`
    Token   string         `json:"token"`
    Expires time.Time      `json:"expires"`
}

type messageResp struct {
    Message string `json:"message"`
}

// Register: create a CLIENT account and request the verification email.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    u, err := h.Auth.Register(ctx, service.RegisterInput{
        Name:     req.Name,
        Email:    strings.TrimSpace(req.Email),
        Password: req.Password,
    })
    if err != nil {
        return respondError(c, h.Log, err)
    }
    name := ""
    if u.Name != nil {
        name = *u.Name
    }
    return c.JSON(http.StatusCreated, registerResp{ID: u.ID, Name: name, Email: u.Email})
}

// Login: check credentials and return a signed session token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    id, err := h.Auth.Authenticate(ctx, strings.TrimSpace(req.Email), req.Password)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    tok, err := h.Auth.IssueSession(id)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, loginResp{User: id, Token: tok.Token, Expires: tok.Exp})
}

// Me returns the identity carried by the caller's session.
func (h *AuthHandler) Me(c echo.Context) error {
    id := middleware.IdentityFrom(c)
    if id == nil {
        return respondError(c, h.Log, service.ErrUnauthenticated)
    }
    return c.JSON(http.StatusOK, id)
}

// ForgotPassword always answers with the same message so callers cannot
// probe which emails have accounts.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
    var req emailReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    msg, err := h.Auth.ForgotPassword(ctx, req.Email)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, messageResp{Message: msg})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
    var req resetReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    msg, err := h.Auth.ResetPassword(ctx, strings.TrimSpace(req.Token), req.Password)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, messageResp{Message: msg})
}

func (h *AuthHandler) SendVerificationEmail(c echo.Context) error {
    var req emailReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    msg, err := h.Auth.ResendVerification(ctx, req.Email)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, messageResp{Message: msg})
}

// VerifyEmail is the target of the emailed link. Success redirects to the
// sign-in page with a message; a bad link gets a JSON error.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
    token := strings.TrimSpace(c.QueryParam("token"))
    email := strings.TrimSpace(c.QueryParam("email"))
    if token == "" || email == "" {
        return c.JSON(http.StatusBadRequest, messageResp{Message: "Missing token or email."})
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    msg, err := h.Auth.VerifyEmail(ctx, token, email)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    q := url.Values{}
    q.Set("message", msg)
    return c.Redirect(http.StatusSeeOther, strings.TrimRight(h.AppURL, "/")+"/auth/signin?"+q.Encode())
}
