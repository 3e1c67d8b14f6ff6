// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Gin is a gin.HandlerFunc that calls c.Next()
// to continue the chain, or c.Abort() to stop processing.
//
// filetoken.go implements the short-lived document access token. PDF
// viewers load documents through plain GET requests that cannot carry an
// Authorization header, so the credential is embedded in the URL as a
// ?file-token= query parameter instead. Tokens are JWTs scoped to one
// essay; a bcrypt hash of each issued token is also stored so tokens can be
// revoked server-side before they expire.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/profyagosales/correction-engine-api/internal/database"
	"github.com/profyagosales/correction-engine-api/internal/models"
)

// FileTokenQueryParam is the query parameter carrying the token.
const FileTokenQueryParam = "file-token"

// FileTokenClaims scope a token to one essay document.
type FileTokenClaims struct {
	EssayID string `json:"essay_id"`
	jwt.RegisteredClaims
}

// GenerateFileToken mints a signed token granting access to one essay's
// document for ttl.
func GenerateFileToken(essayID, secret string, ttl time.Duration) (string, error) {
	claims := FileTokenClaims{
		EssayID: essayID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   essayID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseFileToken validates a token string and returns its claims.
func ParseFileToken(tokenString, secret string) (*FileTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &FileTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*FileTokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// HashFileToken produces the stored form of a token. The token is digested
// first because bcrypt only reads 72 bytes and JWT strings are longer.
func HashFileToken(token string) (string, error) {
	digest := sha256.Sum256([]byte(token))
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(digest[:])), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// matchFileToken checks a presented token against a stored hash.
func matchFileToken(token, storedHash string) bool {
	digest := sha256.Sum256([]byte(token))
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(hex.EncodeToString(digest[:]))) == nil
}

// FileTokenAuth returns middleware that validates the ?file-token= query
// parameter on document file routes. The route must carry an :id parameter
// naming the essay. A token is accepted only if its signature and expiry
// check out, it was minted for this essay, and a live (unrevoked) record
// still exists for it.
func FileTokenAuth(db *database.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		essayID := c.Param("id")
		raw := c.Query(FileTokenQueryParam)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing file-token query parameter",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		claims, err := ParseFileToken(raw, secret)
		if err != nil || claims.EssayID != essayID {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired file token",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		records, err := db.GetActiveFileTokens(c.Request.Context(), essayID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to verify file token",
				Code:    http.StatusInternalServerError,
			})
			c.Abort()
			return
		}
		for _, rec := range records {
			if matchFileToken(raw, rec.TokenHash) {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "unauthorized",
			Message: "File token has been revoked",
			Code:    http.StatusUnauthorized,
		})
		c.Abort()
	}
}
