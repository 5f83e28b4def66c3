package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/property-listings/internal/handler"
	"github.com/iliyamo/property-listings/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account endpoints under /v1/auth. limiter is
// applied to the whole group; pass nil to skip rate limiting.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.POST("/send-verification-email", a.SendVerificationEmail)
	// Target of the emailed verification link.
	g.GET("/verify-email", a.VerifyEmail)

	g.GET("/me", a.Me, middleware.RequireSession())
}
