package server

import (
	"net/http"

	"github.com/OFFIS-RIT/bibliograph/internal/server/middleware"
	"github.com/OFFIS-RIT/bibliograph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.GET("/schema/snapshot", routes.GetSnapshotSchemaHandler)

	// Store routes
	apiRoutes.GET("/stores", routes.GetStoresHandler, middleware.RequirePermission(middleware.PermStoreView))
	apiRoutes.POST("/stores", routes.CreateStoreHandler, middleware.RequirePermission(middleware.PermStoreCreate))
	apiRoutes.GET("/stores/:id", routes.GetStoreHandler, middleware.RequirePermission(middleware.PermStoreView))
	apiRoutes.DELETE("/stores/:id", routes.DeleteStoreHandler, middleware.RequirePermission(middleware.PermStoreDelete))
	apiRoutes.GET("/stores/:id/export", routes.ExportStoreHandler, middleware.RequirePermission(middleware.PermStoreView))

	// Input and compile routes
	apiRoutes.POST("/stores/:id/files", routes.AddFilesToStoreHandler, middleware.RequirePermission(middleware.PermStoreAddFile))
	apiRoutes.POST("/stores/:id/compile", routes.CompileStoreHandler, middleware.RequirePermission(middleware.PermStoreCompile))

	// Query routes
	apiRoutes.GET("/stores/:id/nodes", routes.GetNodesHandler, middleware.RequirePermission(middleware.PermStoreView))
	apiRoutes.GET("/stores/:id/nodes/:node_id", routes.GetNodeHandler, middleware.RequirePermission(middleware.PermStoreView))
	apiRoutes.GET("/stores/:id/strings", routes.GetStringsHandler, middleware.RequirePermission(middleware.PermStoreView))
	apiRoutes.POST("/stores/:id/entries", routes.SynthesizeHandler, middleware.RequirePermission(middleware.PermStoreSynthesize))
}
