// Package export runs print/export composite jobs in the background.
//
// Go Pattern: This is the classic worker pool — a buffered channel as the
// job queue, N goroutines reading from it, handlers submitting to it.
// Clients poll the job row over HTTP until it settles, so nothing here ever
// blocks a request.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/profyagosales/correction-engine-api/internal/database"
	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/services/compositor"
	"github.com/profyagosales/correction-engine-api/internal/services/document"
	"github.com/profyagosales/correction-engine-api/internal/services/session"
)

// Job is one queued export run. The job row already exists in the database
// in pending status; the worker drives it to completed or failed.
type Job struct {
	ID        string
	EssayID   string
	CreatedAt time.Time
}

// Pool manages the export worker goroutines.
type Pool struct {
	jobs    chan Job
	workers int
	db      *database.DB
	manager *document.Manager
	comp    *compositor.Compositor
	hub     *session.Hub

	// wg tracks running workers for graceful shutdown: Stop closes the
	// queue, cancels the context and waits for every worker to drain.
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates an export worker pool.
func NewPool(workers, queueSize int, db *database.DB, manager *document.Manager, comp *compositor.Compositor, hub *session.Hub) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		db:      db,
		manager: manager,
		comp:    comp,
		hub:     hub,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d export workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down all workers.
func (p *Pool) Stop() {
	log.Println("⏹️  Stopping export workers...")
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	log.Println("✅ All export workers stopped")
}

// Submit adds a job to the queue. Returns an error if the queue is full so
// the HTTP handler never blocks.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		log.Printf("📥 Export job queued: %s (essay: %s)", job.ID, job.EssayID)
		return nil
	default:
		return fmt.Errorf("export queue is full; try again later")
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log.Printf("👷 Export worker %d started", id)

	for job := range p.jobs {
		select {
		case <-p.ctx.Done():
			log.Printf("👷 Export worker %d shutting down", id)
			return
		default:
		}

		log.Printf("👷 Export worker %d processing job: %s", id, job.ID)
		if err := p.process(job); err != nil {
			log.Printf("❌ Export worker %d: job %s failed: %v", id, job.ID, err)
		} else {
			log.Printf("✅ Export worker %d: job %s completed", id, job.ID)
		}
	}

	log.Printf("👷 Export worker %d stopped", id)
}

// process drives one job from pending to completed or failed. While the job
// runs the essay's live session has gestures disabled so the annotation set
// the export flattens cannot shift under it.
func (p *Pool) process(job Job) error {
	ctx := p.ctx

	row, err := p.db.GetExportJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to get export job: %w", err)
	}

	row.Status = models.ExportProcessing
	if err := p.db.UpdateExportJob(ctx, row); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	if live, ok := p.hub.Get(row.EssayID); ok {
		live.SetExporting(true)
		defer live.SetExporting(false)
		// Any debounced edits land before the snapshot below.
		if err := live.Flush(ctx); err != nil {
			return p.fail(ctx, row, fmt.Errorf("failed to flush session: %w", err))
		}
	}

	regions, err := p.loadRegions(ctx, row.EssayID)
	if err != nil {
		return p.fail(ctx, row, err)
	}

	// The export gets its own document slot; it must never race the
	// correction view's slot for the single-live-handle guarantee.
	slotID := "export:" + row.ID
	// No caller credentials here: export runs detached from any request,
	// so acquisition relies on the token re-issue strategy.
	handle, err := p.manager.Open(ctx, slotID, row.DocumentURL, document.Credentials{})
	if err != nil {
		return p.fail(ctx, row, fmt.Errorf("failed to open document: %w", err))
	}
	defer p.manager.Close(slotID)

	pages, err := p.comp.ComposeRange(ctx, handle, regions, row.FirstPage, row.LastPage)
	if err != nil {
		return p.fail(ctx, row, fmt.Errorf("failed to composite: %w", err))
	}

	for _, pg := range pages {
		err := p.db.CreateExportPage(ctx, &models.ExportPage{
			JobID:  row.ID,
			Page:   pg.Page,
			PNG:    pg.PNG,
			Width:  pg.Width,
			Height: pg.Height,
		})
		if err != nil {
			return p.fail(ctx, row, fmt.Errorf("failed to store page %d: %w", pg.Page, err))
		}
	}

	row.Status = models.ExportCompleted
	row.PageCount = len(pages)
	if err := p.db.UpdateExportJob(ctx, row); err != nil {
		return fmt.Errorf("failed to save export job: %w", err)
	}
	return nil
}

// loadRegions snapshots the essay's persisted region list.
func (p *Pool) loadRegions(ctx context.Context, essayID string) ([]*models.Region, error) {
	set, err := p.db.GetAnnotationSet(ctx, essayID)
	if err != nil {
		return nil, fmt.Errorf("failed to load annotations: %w", err)
	}
	var list []models.Region
	if err := json.Unmarshal(set.Regions, &list); err != nil {
		return nil, fmt.Errorf("stored annotations are corrupt: %w", err)
	}
	out := make([]*models.Region, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

// fail marks the job failed with the error message and returns the error.
func (p *Pool) fail(ctx context.Context, row *models.ExportJob, cause error) error {
	row.Status = models.ExportFailed
	row.ErrorMessage = cause.Error()
	if err := p.db.UpdateExportJob(ctx, row); err != nil {
		log.Printf("⚠️  Failed to mark export job %s failed: %v", row.ID, err)
	}
	return cause
}
