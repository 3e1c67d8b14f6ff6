// documents.go handles the document lifecycle and page raster endpoints.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/document"
	"github.com/profyagosales/correction-engine-api/internal/services/raster"
)

// correctionSlot names the document slot backing an essay's correction view.
func correctionSlot(essayID string) string {
	return "essay:" + essayID
}

// OpenDocument loads an essay's document into its correction slot and
// starts (or joins) the live session. Reopening with a different URL swaps
// the document: the previous handle is destroyed before the new one goes
// live, and an in-flight open is superseded silently.
// POST /api/v1/essays/:id/document/open
func (h *Handler) OpenDocument(c *gin.Context) {
	essayID := c.Param("id")

	var req models.OpenDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'url' in the request body")
		return
	}

	// Forward the caller's platform session cookie and any file token it
	// already holds; the fetcher falls back to re-issuing a token itself.
	creds := document.Credentials{QueryToken: req.FileToken}
	if cookie, err := c.Request.Cookie(h.Config.SessionCookie); err == nil {
		creds.SessionCookie = cookie
	}

	handle, err := h.Manager.Open(c.Request.Context(), correctionSlot(essayID), req.URL, creds)
	if err != nil {
		if errors.Is(err, context.Canceled) || c.Request.Context().Err() != nil {
			// Superseded or abandoned open; nothing to report.
			c.Status(http.StatusNoContent)
			return
		}
		log.Printf("❌ Failed to open document for %s: %v", essayID, err)
		fail(c, http.StatusBadGateway, "document_error", "Failed to acquire or decode the document")
		return
	}

	pages := handle.Pages()
	sess := h.Hub.Open(essayID, pages[0].Width)
	sess.OnScale(func(scale float64) {
		log.Printf("📐 Fit-width scale for essay %s settled at %.3f", essayID, scale)
	})

	// Seed the session with the persisted regions.
	set, err := h.DB.GetAnnotationSet(c.Request.Context(), essayID)
	if err == nil {
		var regions []models.Region
		if json.Unmarshal(set.Regions, &regions) == nil {
			sess.Store().Load(regions)
		}
	}

	resp := models.OpenDocumentResponse{
		Document: models.DocumentInfo{
			Slot:      correctionSlot(essayID),
			Ref:       req.URL,
			PageCount: handle.PageCount(),
			Pages:     pages,
		},
	}
	if req.ContainerWidth > 0 {
		resp.Scale = raster.FitWidthScale(req.ContainerWidth, pages[0].Width)
	}
	c.JSON(http.StatusOK, resp)
}

// CloseDocument tears down the essay's slot and flushes its session.
// DELETE /api/v1/essays/:id/document
func (h *Handler) CloseDocument(c *gin.Context) {
	essayID := c.Param("id")

	h.Renderer.CancelAll()
	if err := h.Hub.Close(c.Request.Context(), essayID); err != nil {
		log.Printf("⚠️  Failed to flush session for %s on close: %v", essayID, err)
	}
	if err := h.Manager.Close(correctionSlot(essayID)); err != nil {
		fail(c, http.StatusInternalServerError, "document_error", "Failed to close document")
		return
	}
	c.Status(http.StatusNoContent)
}

// RenderPage rasterizes one page and streams it back as PNG. A newer
// request for the same page cancels this one; the superseded request ends
// with 204 and no image.
// GET /api/v1/essays/:id/document/pages/:page/raster?scale=1.0&dpr=2
func (h *Handler) RenderPage(c *gin.Context) {
	essayID := c.Param("id")

	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		fail(c, http.StatusBadRequest, "invalid_page", "Page must be a positive integer")
		return
	}

	handle, ok := h.Manager.Handle(correctionSlot(essayID))
	if !ok {
		fail(c, http.StatusNotFound, "no_document", "No open document for this essay")
		return
	}

	scale, _ := strconv.ParseFloat(c.DefaultQuery("scale", "1.0"), 64)
	dpr, _ := strconv.ParseFloat(c.DefaultQuery("dpr", "1"), 64)

	res, err := h.Renderer.Render(c.Request.Context(), handle, raster.Request{
		Page:  page,
		Scale: scale,
		DPR:   dpr,
	})
	if err != nil {
		if errors.Is(err, document.ErrHandleClosed) {
			fail(c, http.StatusConflict, "document_swapped", "Document was swapped during render")
			return
		}
		if c.Request.Context().Err() != nil || errors.Is(err, context.Canceled) {
			c.Status(http.StatusNoContent)
			return
		}
		fail(c, http.StatusBadRequest, "render_error", err.Error())
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Image); err != nil {
		fail(c, http.StatusInternalServerError, "render_error", "Failed to encode raster")
		return
	}
	c.Header("X-Render-Scale", strconv.FormatFloat(res.Scale, 'f', -1, 64))
	if res.Placeholder {
		c.Header("X-Render-Placeholder", "true")
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
