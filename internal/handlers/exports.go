// exports.go handles the asynchronous print/export pipeline.
package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/export"
)

// Client polling cadence, mirrored into every status response so the
// frontend does not hardcode it: poll every 2 seconds, give up after 20.
const (
	exportPollIntervalMS = 2000
	exportPollBudgetMS   = 20000
)

// CreateExport queues a composite export run for an essay and returns the
// pending job. Clients poll GET /exports/:id until it settles.
// POST /api/v1/essays/:id/exports
func (h *Handler) CreateExport(c *gin.Context) {
	essayID := c.Param("id")

	var req models.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'document_url' in the request body")
		return
	}
	if req.FirstPage < 0 || (req.LastPage != 0 && req.LastPage < req.FirstPage) {
		fail(c, http.StatusBadRequest, "invalid_range", "Page range is empty")
		return
	}

	job := &models.ExportJob{
		EssayID:     essayID,
		DocumentURL: req.DocumentURL,
		Status:      models.ExportPending,
		FirstPage:   req.FirstPage,
		LastPage:    req.LastPage,
	}
	if err := h.DB.CreateExportJob(c.Request.Context(), job); err != nil {
		log.Printf("❌ Failed to create export job for %s: %v", essayID, err)
		fail(c, http.StatusInternalServerError, "database_error", "Failed to create export job")
		return
	}

	if err := h.Exports.Submit(export.Job{ID: job.ID, EssayID: essayID, CreatedAt: job.CreatedAt}); err != nil {
		job.Status = models.ExportFailed
		job.ErrorMessage = err.Error()
		h.DB.UpdateExportJob(c.Request.Context(), job)
		fail(c, http.StatusServiceUnavailable, "queue_full", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// GetExport reports an export job's progress for polling.
// GET /api/v1/exports/:id
func (h *Handler) GetExport(c *gin.Context) {
	job, err := h.DB.GetExportJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "not_found", "Export job not found")
		return
	}

	pages, err := h.DB.ListExportPageNumbers(c.Request.Context(), job.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "database_error", "Failed to list export pages")
		return
	}
	if pages == nil {
		pages = []int{}
	}

	c.JSON(http.StatusOK, models.ExportStatusResponse{
		Job:          *job,
		Pages:        pages,
		PollAfterMS:  exportPollIntervalMS,
		PollBudgetMS: exportPollBudgetMS,
	})
}

// ListExports returns an essay's export jobs, newest first.
// GET /api/v1/essays/:id/exports
func (h *Handler) ListExports(c *gin.Context) {
	jobs, err := h.DB.ListExportJobs(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "database_error", "Failed to list export jobs")
		return
	}
	if jobs == nil {
		jobs = []models.ExportJob{}
	}
	c.JSON(http.StatusOK, gin.H{"exports": jobs})
}

// GetExportPage streams one composited page of a completed job as PNG.
// GET /api/v1/exports/:id/pages/:page
func (h *Handler) GetExportPage(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		fail(c, http.StatusBadRequest, "invalid_page", "Page must be a positive integer")
		return
	}

	p, err := h.DB.GetExportPage(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		fail(c, http.StatusNotFound, "not_found", "Export page not found")
		return
	}
	c.Data(http.StatusOK, "image/png", p.PNG)
}
