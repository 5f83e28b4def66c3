package middleware

// identity.go holds the helpers that move the caller's identity in and out
// of the Echo context. Session stores it; handlers, the policy gate and the
// request logger read it.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-listings/internal/model"
)

const identityKey = "identity"

// SetIdentity stores id on the request context.
func SetIdentity(c echo.Context, id *model.Identity) {
    c.Set(identityKey, id)
}

// IdentityFrom returns the authenticated caller or nil for anonymous
// requests.
func IdentityFrom(c echo.Context) *model.Identity {
    id, _ := c.Get(identityKey).(*model.Identity)
    return id
}

// userID returns the caller id, or "anon" when no identity is present.
func userID(c echo.Context) string {
    if id := IdentityFrom(c); id != nil && id.ID != "" {
        return id.ID
    }
    return "anon"
}
