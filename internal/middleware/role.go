package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-listings/internal/policy"
)

// RequireAction rejects the request early when the caller may not perform
// action at all. Resource-specific rules (ownership, self-protection) are
// still evaluated by the services, which hold the resource.
func RequireAction(action policy.Action) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            who := IdentityFrom(c)
            res := policy.Resource{}
            if who != nil {
                // Assume ownership so only the role decides here.
                res.OwnerID = who.ID
            }
            d := policy.Authorize(who, action, res)
            switch {
            case d.Allowed:
                return next(c)
            case d.Reason == policy.Unauthenticated:
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authentication required"})
            default:
                return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
            }
        }
    }
}
