// exports.go handles export job and export page persistence.
package database

import (
	"context"
	"fmt"

	"github.com/profyagosales/correction-engine-api/internal/models"
)

// CreateExportJob inserts a new export job in pending status.
func (db *DB) CreateExportJob(ctx context.Context, job *models.ExportJob) error {
	query := `
		INSERT INTO export_jobs (essay_id, document_url, status, first_page, last_page)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return db.QueryRowContext(ctx, query,
		job.EssayID, job.DocumentURL, job.Status, job.FirstPage, job.LastPage,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
}

// GetExportJob retrieves an export job by ID.
func (db *DB) GetExportJob(ctx context.Context, id string) (*models.ExportJob, error) {
	var job models.ExportJob
	err := db.GetContext(ctx, &job, `SELECT * FROM export_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("export job not found: %w", err)
	}
	return &job, nil
}

// UpdateExportJob writes back a job's status, page count and error message.
func (db *DB) UpdateExportJob(ctx context.Context, job *models.ExportJob) error {
	query := `
		UPDATE export_jobs
		SET status = $2, page_count = $3, error_message = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	return db.QueryRowContext(ctx, query,
		job.ID, job.Status, job.PageCount, job.ErrorMessage,
	).Scan(&job.UpdatedAt)
}

// ListExportJobs returns an essay's export jobs, newest first.
func (db *DB) ListExportJobs(ctx context.Context, essayID string) ([]models.ExportJob, error) {
	var jobs []models.ExportJob
	err := db.SelectContext(ctx, &jobs,
		`SELECT * FROM export_jobs WHERE essay_id = $1 ORDER BY created_at DESC`, essayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	return jobs, nil
}

// CreateExportPage stores one composited page of a job.
func (db *DB) CreateExportPage(ctx context.Context, page *models.ExportPage) error {
	query := `
		INSERT INTO export_pages (job_id, page, png, width, height)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return db.QueryRowContext(ctx, query,
		page.JobID, page.Page, page.PNG, page.Width, page.Height,
	).Scan(&page.CreatedAt)
}

// GetExportPage fetches one composited page of a completed job.
func (db *DB) GetExportPage(ctx context.Context, jobID string, page int) (*models.ExportPage, error) {
	var p models.ExportPage
	err := db.GetContext(ctx, &p,
		`SELECT * FROM export_pages WHERE job_id = $1 AND page = $2`, jobID, page)
	if err != nil {
		return nil, fmt.Errorf("export page not found: %w", err)
	}
	return &p, nil
}

// ListExportPageNumbers returns the page numbers a job has produced so far,
// in document order. Used by the polling endpoint to report progress.
func (db *DB) ListExportPageNumbers(ctx context.Context, jobID string) ([]int, error) {
	var pages []int
	err := db.SelectContext(ctx, &pages,
		`SELECT page FROM export_pages WHERE job_id = $1 ORDER BY page ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list export pages: %w", err)
	}
	return pages, nil
}
