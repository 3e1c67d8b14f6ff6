// tokens.go handles file token issuance for document access.
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/profyagosales/correction-engine-api/internal/middleware"
	"github.com/profyagosales/correction-engine-api/internal/models"
)

// CreateFileToken mints a short-lived token granting access to one essay's
// document. The raw token is returned once; only its hash is stored, so a
// leaked database never yields a usable credential.
// POST /api/v1/essays/:id/file-token
func (h *Handler) CreateFileToken(c *gin.Context) {
	essayID := c.Param("id")

	token, err := middleware.GenerateFileToken(essayID, h.Config.FileTokenSecret, h.Config.FileTokenTTL)
	if err != nil {
		log.Printf("❌ Failed to mint file token for %s: %v", essayID, err)
		fail(c, http.StatusInternalServerError, "token_error", "Failed to mint file token")
		return
	}

	hash, err := middleware.HashFileToken(token)
	if err != nil {
		fail(c, http.StatusInternalServerError, "token_error", "Failed to store file token")
		return
	}

	expiresAt := time.Now().Add(h.Config.FileTokenTTL)
	record := &models.FileToken{
		EssayID:   essayID,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	}
	if err := h.DB.CreateFileToken(c.Request.Context(), record); err != nil {
		log.Printf("❌ Failed to store file token for %s: %v", essayID, err)
		fail(c, http.StatusInternalServerError, "database_error", "Failed to store file token")
		return
	}

	c.JSON(http.StatusCreated, models.FileTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
