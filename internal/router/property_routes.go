package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/property-listings/internal/handler"
	"github.com/iliyamo/property-listings/internal/middleware"
	"github.com/iliyamo/property-listings/internal/policy"
)

// RegisterProperties registers the listing catalog. Reads are public and
// go through cache (nil disables it). Writes pass the policy gate first;
// ownership of an existing listing is checked by the service.
func RegisterProperties(e *echo.Echo, h *handler.PropertyHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/properties")

	var read []echo.MiddlewareFunc
	if cache != nil {
		read = append(read, cache)
	}
	g.GET("", h.List, read...)
	g.GET("/:id", h.Get, read...)

	g.POST("", h.Create, middleware.RequireAction(policy.CreateListing))
	g.PUT("/:id", h.Update, middleware.RequireAction(policy.UpdateListing))
	g.DELETE("/:id", h.Delete, middleware.RequireAction(policy.DeleteListing))
}
