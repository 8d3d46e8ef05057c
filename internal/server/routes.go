package server

import (
	"github.com/labstack/echo/v4"

	"github.com/regtrace/lineage/internal/server/middleware"
	"github.com/regtrace/lineage/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Graph views
	apiRoutes.GET("/entities", routes.GetEntitiesHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.GET("/edges", routes.GetEdgesHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.GET("/hubs", routes.GetHubsHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.GET("/chains/:key", routes.GetChainHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.GET("/cycles", routes.GetCyclesHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.GET("/mismatches", routes.GetMismatchesHandler, middleware.RequirePermission("graph.view"))
	apiRoutes.GET("/correlation", routes.GetCorrelationHandler, middleware.RequirePermission("graph.view"))

	// Profiles
	apiRoutes.GET("/profiles", routes.GetProfilesHandler, middleware.RequireAnyPermission("profile.view", "graph.view"))

	// Build management
	apiRoutes.POST("/rebuild", routes.PostRebuildHandler, middleware.RequirePermission("graph.rebuild"))
	apiRoutes.DELETE("/graphs", routes.DeleteGraphHandler, middleware.RequirePermission("graph.delete"))
}
