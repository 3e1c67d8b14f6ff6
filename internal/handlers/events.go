// events.go feeds the pointer state machine and the selection coordinator.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/interaction"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
	"github.com/profyagosales/correction-engine-api/internal/services/selection"
	"github.com/profyagosales/correction-engine-api/internal/services/session"
)

// liveSession fetches the essay's session or writes the 404 envelope.
func (h *Handler) liveSession(c *gin.Context) (*session.Session, bool) {
	live, ok := h.Hub.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "no_session", "No live correction session for this essay; open the document first")
		return nil, false
	}
	return live, true
}

// PointerEvent advances the annotation state machine with one pointer
// event. The response carries the resulting phase, any region created by a
// commit, pointer capture effects, and scroll commands.
// POST /api/v1/essays/:id/events
func (h *Handler) PointerEvent(c *gin.Context) {
	live, ok := h.liveSession(c)
	if !ok {
		return
	}

	var ev interaction.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Malformed pointer event")
		return
	}

	out, err := live.ApplyEvent(ev)
	if err != nil {
		if errors.Is(err, session.ErrSessionClosed) {
			fail(c, http.StatusGone, "session_closed", "Correction session has ended")
			return
		}
		fail(c, http.StatusBadRequest, "event_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

// SelectRegion picks a region from the comment list and returns the scroll
// commands that bring it into view in every container.
// POST /api/v1/essays/:id/select
func (h *Handler) SelectRegion(c *gin.Context) {
	live, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req models.SelectRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'region_id' in the request body")
		return
	}

	commands, err := live.Select(req.RegionID)
	if err != nil {
		fail(c, http.StatusGone, "session_closed", "Correction session has ended")
		return
	}
	if commands == nil {
		commands = []selection.Command{}
	}
	c.JSON(http.StatusOK, gin.H{"scroll": commands, "selected": req.RegionID})
}

// FocusRegion handles programmatic focus of a region's comment field. Only
// the comment list may scroll; the page canvas is never moved out from under
// the corrector.
// POST /api/v1/essays/:id/focus
func (h *Handler) FocusRegion(c *gin.Context) {
	live, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req models.SelectRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'region_id' in the request body")
		return
	}

	commands, err := live.Focus(req.RegionID)
	if err != nil {
		fail(c, http.StatusGone, "session_closed", "Correction session has ended")
		return
	}
	if commands == nil {
		commands = []selection.Command{}
	}
	c.JSON(http.StatusOK, gin.H{"scroll": commands, "selected": req.RegionID})
}

// SetCategory switches the active highlight category for new regions.
// PUT /api/v1/essays/:id/category
func (h *Handler) SetCategory(c *gin.Context) {
	live, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req models.SetCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'category' in the request body")
		return
	}
	if err := live.SetCategory(palette.Category(req.Category)); err != nil {
		fail(c, http.StatusBadRequest, "invalid_category", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// ReportResize feeds a container width sample into the debounced fit-width
// recompute. The settled scale arrives via the session's scale callback;
// the endpoint itself just acknowledges.
// POST /api/v1/essays/:id/resize
func (h *Handler) ReportResize(c *gin.Context) {
	live, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req models.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'width' in the request body")
		return
	}
	live.Resize(req.Width)
	c.Status(http.StatusAccepted)
}

// ReportLayout updates the scroll geometry for one container: its visible
// band and the positions of the region entries inside it.
// POST /api/v1/essays/:id/layout
func (h *Handler) ReportLayout(c *gin.Context) {
	live, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req models.LayoutReport
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "Provide 'container' and 'height'")
		return
	}

	coord := live.Coordinator()
	coord.SetBand(req.Container, selection.Band{Top: req.Top, Height: req.Height, Margin: req.Margin})
	for id, pos := range req.Entries {
		coord.SetEntry(req.Container, id, selection.Entry{Top: pos[0], Height: pos[1]})
	}
	c.Status(http.StatusNoContent)
}
