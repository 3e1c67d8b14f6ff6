// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/profyagosales/correction-engine-api/internal/config"
	"github.com/profyagosales/correction-engine-api/internal/database"
	"github.com/profyagosales/correction-engine-api/internal/handlers"
	"github.com/profyagosales/correction-engine-api/internal/middleware"
	"github.com/profyagosales/correction-engine-api/internal/services/document"
	"github.com/profyagosales/correction-engine-api/internal/services/export"
	"github.com/profyagosales/correction-engine-api/internal/services/raster"
	"github.com/profyagosales/correction-engine-api/internal/services/session"
)

// Setup creates and configures the Gin router with all routes.
func Setup(db *database.DB, cfg *config.Config, mgr *document.Manager, rnd *raster.Renderer, hub *session.Hub, pool *export.Pool) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	h := handlers.NewHandler(db, cfg, mgr, rnd, hub, pool)

	// --- Public routes ---
	r.GET("/api/v1/health", h.HealthCheck)

	api := r.Group("/api/v1")
	{
		// Document access tokens and the token-guarded file stream
		api.POST("/essays/:id/file-token", h.CreateFileToken)
		api.GET("/essays/:id/file", middleware.FileTokenAuth(db, cfg.FileTokenSecret), h.ServeEssayFile)

		// Document lifecycle and page rasters
		api.POST("/essays/:id/document/open", h.OpenDocument)
		api.DELETE("/essays/:id/document", h.CloseDocument)
		api.GET("/essays/:id/document/pages/:page/raster", h.RenderPage)

		// Annotations
		api.GET("/essays/:id/annotations", h.GetAnnotations)
		api.PUT("/essays/:id/annotations", h.SaveAnnotations)
		api.DELETE("/essays/:id/annotations", h.DeleteAnnotations)
		api.PATCH("/essays/:id/regions/:regionId", h.UpdateRegionComment)
		api.DELETE("/essays/:id/regions/:regionId", h.DeleteRegion)

		// Interaction and layout
		api.POST("/essays/:id/events", h.PointerEvent)
		api.POST("/essays/:id/select", h.SelectRegion)
		api.POST("/essays/:id/focus", h.FocusRegion)
		api.PUT("/essays/:id/category", h.SetCategory)
		api.POST("/essays/:id/resize", h.ReportResize)
		api.POST("/essays/:id/layout", h.ReportLayout)

		// Print/export pipeline
		api.POST("/essays/:id/exports", h.CreateExport)
		api.GET("/essays/:id/exports", h.ListExports)
		api.GET("/exports/:id", h.GetExport)
		api.GET("/exports/:id/pages/:page", h.GetExportPage)
	}

	return r
}
