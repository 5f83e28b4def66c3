package handler

import (
    "context"
    "io"
    "net/http/httptest"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-listings/internal/middleware"
    "github.com/iliyamo/property-listings/internal/model"
    "github.com/iliyamo/property-listings/internal/service"
    "github.com/iliyamo/property-listings/internal/utils"
)

func newEcho() *echo.Echo {
    e := echo.New()
    e.Validator = NewValidator()
    return e
}

// call runs h against a request built from method, target and body. When
// who is non-nil it is placed on the context as the session identity.
func call(e *echo.Echo, h echo.HandlerFunc, method, target, body string, who *model.Identity, params ...string) *httptest.ResponseRecorder {
    var r io.Reader
    if body != "" {
        r = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, target, r)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if len(params) == 2 {
        c.SetParamNames(params[0])
        c.SetParamValues(params[1])
    }
    if who != nil {
        middleware.SetIdentity(c, who)
    }
    if err := h(c); err != nil {
        e.HTTPErrorHandler(err, c)
    }
    return rec
}


type stubAuth struct {
    registered service.RegisterInput
    user       *model.User
    identity   model.Identity
    msg        string
    err        error
    gotToken   string
    gotEmail   string
}

func (s *stubAuth) Register(_ context.Context, in service.RegisterInput) (*model.User, error) {
    s.registered = in
    return s.user, s.err
}

func (s *stubAuth) Authenticate(_ context.Context, email, _ string) (model.Identity, error) {
    s.gotEmail = email
    return s.identity, s.err
}

func (s *stubAuth) IssueSession(id model.Identity) (utils.SessionToken, error) {
    return utils.SessionToken{Token: "jwt-for-" + id.ID, Exp: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (s *stubAuth) ForgotPassword(_ context.Context, email string) (string, error) {
    s.gotEmail = email
    return s.msg, s.err
}

func (s *stubAuth) ResetPassword(_ context.Context, token, _ string) (string, error) {
    s.gotToken = token
    return s.msg, s.err
}

func (s *stubAuth) ResendVerification(_ context.Context, email string) (string, error) {
    s.gotEmail = email
    return s.msg, s.err
}

func (s *stubAuth) VerifyEmail(_ context.Context, token, email string) (string, error) {
    s.gotToken, s.gotEmail = token, email
    return s.msg, s.err
}

type stubCatalog struct {
    props  []*model.Property
    filter model.PropertyFilter
    input  service.PropertyInput
    who    *model.Identity
    id     string
    err    error
}

func (s *stubCatalog) List(_ context.Context, f model.PropertyFilter) ([]*model.Property, error) {
    s.filter = f
    return s.props, s.err
}

func (s *stubCatalog) Get(_ context.Context, id string) (*model.Property, error) {
    s.id = id
    if s.err != nil {
        return nil, s.err
    }
    return s.props[0], nil
}

func (s *stubCatalog) Create(_ context.Context, who *model.Identity, in service.PropertyInput) (*model.Property, error) {
    s.who, s.input = who, in
    if s.err != nil {
        return nil, s.err
    }
    return &model.Property{ID: "p-new", Title: in.Title, OwnerID: who.ID, Images: []model.PropertyImage{}}, nil
}

func (s *stubCatalog) Update(_ context.Context, who *model.Identity, id string, in service.PropertyInput) (*model.Property, error) {
    s.who, s.id, s.input = who, id, in
    if s.err != nil {
        return nil, s.err
    }
    return &model.Property{ID: id, Title: in.Title, Images: []model.PropertyImage{}}, nil
}

func (s *stubCatalog) Delete(_ context.Context, who *model.Identity, id string) error {
    s.who, s.id = who, id
    return s.err
}

type stubAdmin struct {
    users []*model.User
    role  model.Role
    id    string
    err   error
}

func (s *stubAdmin) ListUsers(context.Context, *model.Identity) ([]*model.User, error) {
    return s.users, s.err
}

func (s *stubAdmin) ChangeRole(_ context.Context, _ *model.Identity, id string, role model.Role) (*model.User, error) {
    s.id, s.role = id, role
    if s.err != nil {
        return nil, s.err
    }
    return &model.User{ID: id, Email: "u@example.com", Role: role, HashedPassword: "secret-hash"}, nil
}

func (s *stubAdmin) DeleteUser(_ context.Context, _ *model.Identity, id string) error {
    s.id = id
    return s.err
}
