package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-listings/internal/model"
)

// SessionParser decodes a session token into an identity.
type SessionParser interface {
    ParseSession(raw string) (*model.Identity, error)
}

// Session reads an optional "Authorization: Bearer <jwt>" header. A valid
// token puts its identity on the context; a missing, malformed or expired
// token leaves the request anonymous. Access decisions happen later.
func Session(p SessionParser) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if raw, ok := strings.CutPrefix(auth, "Bearer "); ok && raw != "" {
                if id, err := p.ParseSession(strings.TrimSpace(raw)); err == nil {
                    SetIdentity(c, id)
                }
            }
            return next(c)
        }
    }
}

// RequireSession rejects anonymous requests with 401. It must run after
// Session.
func RequireSession() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if IdentityFrom(c) == nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
            }
            return next(c)
        }
    }
}
