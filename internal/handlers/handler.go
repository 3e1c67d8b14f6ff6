// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides request
// data, response methods, and middleware values. We group related handlers
// into a struct (Handler) that holds shared dependencies — dependency
// injection via struct fields, no globals, which keeps testing simple.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/profyagosales/correction-engine-api/internal/config"
	"github.com/profyagosales/correction-engine-api/internal/database"
	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/document"
	"github.com/profyagosales/correction-engine-api/internal/services/export"
	"github.com/profyagosales/correction-engine-api/internal/services/raster"
	"github.com/profyagosales/correction-engine-api/internal/services/session"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	DB       *database.DB
	Config   *config.Config
	Manager  *document.Manager
	Renderer *raster.Renderer
	Hub      *session.Hub
	Exports  *export.Pool
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(db *database.DB, cfg *config.Config, mgr *document.Manager, rnd *raster.Renderer, hub *session.Hub, pool *export.Pool) *Handler {
	return &Handler{
		DB:       db,
		Config:   cfg,
		Manager:  mgr,
		Renderer: rnd,
		Hub:      hub,
		Exports:  pool,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  "1.0.0",
		Database: dbStatus,
		Workers:  h.Exports.WorkerCount(),
		Queue:    h.Exports.QueueSize(),
	})
}

// fail writes the standard error envelope.
func fail(c *gin.Context, status int, kind, message string) {
	c.JSON(status, models.ErrorResponse{
		Error:   kind,
		Message: message,
		Code:    status,
	})
}
