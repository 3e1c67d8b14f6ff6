// requests.go defines the request payloads the API accepts.
//
// Go Pattern: `binding` tags drive Gin's ShouldBindJSON validation; a
// missing `required` field fails the bind before the handler runs.
package models

// OpenDocumentRequest asks the engine to open an essay's document.
type OpenDocumentRequest struct {
	URL string `json:"url" binding:"required"`
	// ContainerWidth is the viewport width in CSS pixels; when present the
	// response carries the fit-width scale for it.
	ContainerWidth float64 `json:"container_width"`
	// FileToken is an optional token the caller already holds; it is tried
	// after the session cookie and before re-issuing a fresh one.
	FileToken string `json:"file_token"`
}

// OpenDocumentResponse is the ready-document report plus the initial scale.
type OpenDocumentResponse struct {
	Document DocumentInfo `json:"document"`
	Scale    float64      `json:"scale,omitempty"`
}

// SaveAnnotationsRequest replaces an essay's region list wholesale.
type SaveAnnotationsRequest struct {
	Regions []Region `json:"regions" binding:"required"`
}

// SelectRegionRequest picks a region from the comment list.
type SelectRegionRequest struct {
	RegionID string `json:"region_id" binding:"required"`
}

// UpdateCommentRequest edits one region's comment text.
type UpdateCommentRequest struct {
	Comment string `json:"comment"`
}

// SetCategoryRequest switches the active highlight category.
type SetCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

// ResizeRequest reports a new container width (debounced server-side).
type ResizeRequest struct {
	Width float64 `json:"width" binding:"required"`
}

// LayoutReport carries the scroll geometry the coordinator plans against:
// each container's visible band and the per-region entry positions.
type LayoutReport struct {
	Container string                `json:"container" binding:"required"`
	Top       float64               `json:"top"`
	Height    float64               `json:"height" binding:"required"`
	Margin    float64               `json:"margin"`
	Entries   map[string][2]float64 `json:"entries"` // region id -> [top, height]
}

// CreateExportRequest queues a print/export composite run.
type CreateExportRequest struct {
	DocumentURL string `json:"document_url" binding:"required"`
	FirstPage   int    `json:"first_page"`
	LastPage    int    `json:"last_page"`
}

// FileTokenResponse returns a freshly minted document token.
type FileTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// ExportStatusResponse is the polling payload for an export job.
type ExportStatusResponse struct {
	Job          ExportJob `json:"job"`
	Pages        []int     `json:"pages"`
	PollAfterMS  int       `json:"poll_after_ms"`
	PollBudgetMS int       `json:"poll_budget_ms"`
}
