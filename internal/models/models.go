// Package models defines the data structures used throughout the application.
//
// Models are plain structs with JSON tags for serialization. The `db` tags
// work with sqlx for database column mapping; the engine packages never talk
// to the database directly.
package models

import (
	"encoding/json"
	"time"

	"github.com/profyagosales/correction-engine-api/internal/services/geometry"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
)

// Region is a categorized rectangular annotation anchored to one page of a
// document. All rectangles are normalized to the page's own width/height so
// the record is independent of zoom, DPI and viewport size.
type Region struct {
	ID       string           `json:"id"`
	Page     int              `json:"page"` // 1-based page index
	Rects    []geometry.Rect  `json:"rects"`
	Category palette.Category `json:"category"`
	Comment  string           `json:"comment"`
	// Number is a dense 1..N ordinal assigned by creation order across the
	// whole document (not per page). It drives the on-canvas badges and the
	// comment list cross-references, and is recomputed on every delete.
	Number    int        `json:"number"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// AnnotationSet is the persisted region list for one essay document.
type AnnotationSet struct {
	EssayID   string          `json:"essay_id" db:"essay_id"`
	Regions   json.RawMessage `json:"regions" db:"regions"` // JSONB — the []Region payload
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ExportStatus represents the processing state of an export job.
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

// ExportJob tracks an asynchronous print/export composite run. Clients poll
// GET /api/v1/exports/:id until the job settles.
type ExportJob struct {
	ID           string       `json:"id" db:"id"`
	EssayID      string       `json:"essay_id" db:"essay_id"`
	DocumentURL  string       `json:"document_url" db:"document_url"`
	Status       ExportStatus `json:"status" db:"status"`
	PageCount    int          `json:"page_count" db:"page_count"`
	FirstPage    int          `json:"first_page" db:"first_page"`
	LastPage     int          `json:"last_page" db:"last_page"` // 0 = through the end
	ErrorMessage string       `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// ExportPage is one flattened page composite produced by a completed job.
type ExportPage struct {
	JobID     string    `json:"job_id" db:"job_id"`
	Page      int       `json:"page" db:"page"`
	PNG       []byte    `json:"-" db:"png"`
	Width     int       `json:"width" db:"width"`
	Height    int       `json:"height" db:"height"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FileToken is the stored record of an issued short-lived document token.
// Only the bcrypt hash is kept; the raw token goes to the client once.
type FileToken struct {
	ID        string    `json:"id" db:"id"`
	EssayID   string    `json:"essay_id" db:"essay_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DocumentInfo is what the lifecycle manager reports once a document slot is
// ready: page count plus each page's native size in PDF points.
type DocumentInfo struct {
	Slot      string     `json:"slot"`
	Ref       string     `json:"ref"`
	PageCount int        `json:"page_count"`
	Pages     []PageInfo `json:"pages"`
}

// PageInfo is one page's native dimensions.
type PageInfo struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`  // points
	Height float64 `json:"height"` // points
}

// ErrorResponse is the standard error envelope for API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Workers  int    `json:"workers"`
	Queue    int    `json:"queue"`
}
