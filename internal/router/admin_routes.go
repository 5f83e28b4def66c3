package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/property-listings/internal/handler"
	"github.com/iliyamo/property-listings/internal/middleware"
	"github.com/iliyamo/property-listings/internal/policy"
)

// RegisterAdmin registers the admin panel endpoints under /v1/admin. Only
// ADMIN sessions get past the group gate; self-demotion and self-deletion
// are rejected by the service.
func RegisterAdmin(e *echo.Echo, h *handler.AdminUsersHandler) {
	g := e.Group("/v1/admin", middleware.RequireAction(policy.ListUsers))
	g.GET("/users", h.List)
	g.PUT("/users/:id", h.ChangeRole)
	g.DELETE("/users/:id", h.Delete)
}
