package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/middleware"
    "github.com/iliyamo/property-listings/internal/model"
)

// UserAdmin is the part of service.UserService behind the admin panel.
type UserAdmin interface {
    ListUsers(ctx context.Context, who *model.Identity) ([]*model.User, error)
    ChangeRole(ctx context.Context, who *model.Identity, id string, role model.Role) (*model.User, error)
    DeleteUser(ctx context.Context, who *model.Identity, id string) error
}

// AdminUsersHandler serves /v1/admin/users.
type AdminUsersHandler struct {
    Users UserAdmin
    Log   *zap.Logger
}

func NewAdminUsersHandler(u UserAdmin, log *zap.Logger) *AdminUsersHandler {
    return &AdminUsersHandler{Users: u, Log: log}
}

type roleReq struct {
    Role string `json:"role" validate:"required"`
}

// List returns every account without credentials, oldest first.
func (h *AdminUsersHandler) List(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    users, err := h.Users.ListUsers(ctx, middleware.IdentityFrom(c))
    if err != nil {
        return respondError(c, h.Log, err)
    }
    out := make([]model.PublicUser, 0, len(users))
    for _, u := range users {
        out = append(out, u.Public())
    }
    return c.JSON(http.StatusOK, out)
}

func (h *AdminUsersHandler) ChangeRole(c echo.Context) error {
    var req roleReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    u, err := h.Users.ChangeRole(ctx, middleware.IdentityFrom(c), c.Param("id"), model.Role(req.Role))
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, u.Public())
}

func (h *AdminUsersHandler) Delete(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Users.DeleteUser(ctx, middleware.IdentityFrom(c), c.Param("id")); err != nil {
        return respondError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
