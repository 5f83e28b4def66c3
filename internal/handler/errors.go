package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/service"
)

// requestTimeout bounds the store and mail work of one request.
const requestTimeout = 10 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// respondError translates a service error into one HTTP response. Unknown
// errors become a 500 whose body never carries internal detail.
func respondError(c echo.Context, log *zap.Logger, err error) error {
    var ve *service.ValidationError
    switch {
    case errors.As(err, &ve):
        body := echo.Map{"message": ve.Message}
        if ve.Field != "" {
            body["field"] = ve.Field
        }
        return c.JSON(http.StatusBadRequest, body)
    case errors.Is(err, service.ErrInvalidImageURL):
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "One or more image URLs are invalid or not from an allowed host."})
    case errors.Is(err, service.ErrTokenNotFound), errors.Is(err, service.ErrTokenExpired):
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid or expired token."})
    case errors.Is(err, service.ErrInvalidCredentials):
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid email or password."})
    case errors.Is(err, service.ErrEmailNotVerified):
        return c.JSON(http.StatusForbidden, echo.Map{"message": "Please verify your email address before signing in."})
    case errors.Is(err, service.ErrUnauthenticated):
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Authentication required."})
    case errors.Is(err, service.ErrSelfDemotion):
        return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden: An ADMIN cannot change their own role to a non-ADMIN role."})
    case errors.Is(err, service.ErrSelfDeletion):
        return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden: You cannot delete your own account."})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden."})
    case errors.Is(err, service.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"message": "Not found."})
    case errors.Is(err, service.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"message": "A user with this email already exists."})
    }
    log.Error("request failed",
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err))
    return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something went wrong. Please try again later."})
}
