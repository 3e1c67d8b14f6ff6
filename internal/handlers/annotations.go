// annotations.go handles loading and saving an essay's region list.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/profyagosales/correction-engine-api/internal/models"
)

// GetAnnotations returns the essay's regions, optionally restricted to one
// page via ?page=N. A live session is the source of truth (it may hold
// edits the save debounce has not flushed yet); otherwise the persisted set
// is returned.
// GET /api/v1/essays/:id/annotations
func (h *Handler) GetAnnotations(c *gin.Context) {
	essayID := c.Param("id")

	page := 0
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, "invalid_page", "Page must be a positive integer")
			return
		}
		page = n
	}

	if live, ok := h.Hub.Get(essayID); ok {
		list := live.Store().List()
		if page > 0 {
			list = live.Store().ListByPage(page)
		}
		c.JSON(http.StatusOK, gin.H{"regions": list})
		return
	}

	set, err := h.DB.GetAnnotationSet(c.Request.Context(), essayID)
	if err != nil {
		log.Printf("❌ Failed to load annotations for %s: %v", essayID, err)
		fail(c, http.StatusInternalServerError, "database_error", "Failed to load annotations")
		return
	}

	var regions []models.Region
	if err := json.Unmarshal(set.Regions, &regions); err != nil {
		fail(c, http.StatusInternalServerError, "corrupt_data", "Stored annotations are unreadable")
		return
	}
	if page > 0 {
		filtered := make([]models.Region, 0, len(regions))
		for _, r := range regions {
			if r.Page == page {
				filtered = append(filtered, r)
			}
		}
		regions = filtered
	}
	if regions == nil {
		regions = []models.Region{}
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

// SaveAnnotations replaces the essay's region list wholesale. Regions are
// clamped and renumbered on the way in; a live session picks the new set up
// immediately.
// PUT /api/v1/essays/:id/annotations
func (h *Handler) SaveAnnotations(c *gin.Context) {
	essayID := c.Param("id")

	var req models.SaveAnnotationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'regions' in the request body")
		return
	}

	var regions []models.Region
	if live, ok := h.Hub.Get(essayID); ok {
		live.Store().Load(req.Regions)
		regions = live.Store().List()
	} else {
		// Normalize through a throwaway store so the persisted payload
		// carries the same clamping and dense numbering a session would.
		s := h.Hub.Open(essayID, 0)
		s.Store().Load(req.Regions)
		regions = s.Store().List()
		h.Hub.Close(c.Request.Context(), essayID)
	}

	payload, err := json.Marshal(regions)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "Failed to encode regions")
		return
	}

	set := &models.AnnotationSet{EssayID: essayID, Regions: payload}
	if err := h.DB.SaveAnnotationSet(c.Request.Context(), set); err != nil {
		log.Printf("❌ Failed to save annotations for %s: %v", essayID, err)
		fail(c, http.StatusInternalServerError, "database_error", "Failed to save annotations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"regions": regions, "updated_at": set.UpdatedAt})
}

// DeleteAnnotations wipes the essay's region list, both the persisted set
// and any live session's copy.
// DELETE /api/v1/essays/:id/annotations
func (h *Handler) DeleteAnnotations(c *gin.Context) {
	essayID := c.Param("id")

	if live, ok := h.Hub.Get(essayID); ok {
		live.Store().Load(nil)
	}
	if err := h.DB.DeleteAnnotationSet(c.Request.Context(), essayID); err != nil {
		log.Printf("❌ Failed to delete annotations for %s: %v", essayID, err)
		fail(c, http.StatusInternalServerError, "database_error", "Failed to delete annotations")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteRegion removes one region and renumbers the survivors.
// DELETE /api/v1/essays/:id/regions/:regionId
func (h *Handler) DeleteRegion(c *gin.Context) {
	essayID := c.Param("id")
	regionID := c.Param("regionId")

	live, ok := h.Hub.Get(essayID)
	if !ok {
		fail(c, http.StatusNotFound, "no_session", "No live correction session for this essay")
		return
	}
	if err := live.Remove(regionID); err != nil {
		fail(c, http.StatusNotFound, "not_found", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": live.Store().List()})
}

// UpdateRegionComment edits a region's comment text.
// PATCH /api/v1/essays/:id/regions/:regionId
func (h *Handler) UpdateRegionComment(c *gin.Context) {
	essayID := c.Param("id")
	regionID := c.Param("regionId")

	var req models.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'comment' in the request body")
		return
	}

	live, ok := h.Hub.Get(essayID)
	if !ok {
		fail(c, http.StatusNotFound, "no_session", "No live correction session for this essay")
		return
	}
	if err := live.UpdateComment(regionID, req.Comment); err != nil {
		fail(c, http.StatusNotFound, "not_found", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}
