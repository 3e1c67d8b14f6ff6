package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeEssayFile streams the essay's PDF bytes. PDF viewers load this route
// with a plain GET, so it sits behind the file-token middleware instead of a
// session — the URL itself carries the credential. The bytes come from the
// upstream file store; the service token (when configured) authenticates us
// to it.
// GET /api/v1/essays/:id/file?file-token=...
func (h *Handler) ServeEssayFile(c *gin.Context) {
	essayID := c.Param("id")
	upstream := fmt.Sprintf("%s/essays/%s/file",
		strings.TrimRight(h.Config.EssayFileBase, "/"), url.PathEscape(essayID))

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, upstream, nil)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", "Failed to build upstream request")
		return
	}
	if h.Config.ServiceToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.Config.ServiceToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail(c, http.StatusBadGateway, "upstream_error", "Failed to reach document store")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fail(c, http.StatusBadGateway, "upstream_error",
			fmt.Sprintf("Document store returned status %d", resp.StatusCode))
		return
	}

	c.DataFromReader(http.StatusOK, resp.ContentLength, "application/pdf", resp.Body, nil)
}
