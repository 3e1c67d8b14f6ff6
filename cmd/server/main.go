// Package main is the entry point for the Correction Engine API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/profyagosales/correction-engine-api/internal/config"
	"github.com/profyagosales/correction-engine-api/internal/database"
	"github.com/profyagosales/correction-engine-api/internal/models"
	"github.com/profyagosales/correction-engine-api/internal/router"
	"github.com/profyagosales/correction-engine-api/internal/services/compositor"
	"github.com/profyagosales/correction-engine-api/internal/services/document"
	"github.com/profyagosales/correction-engine-api/internal/services/export"
	"github.com/profyagosales/correction-engine-api/internal/services/palette"
	"github.com/profyagosales/correction-engine-api/internal/services/raster"
	"github.com/profyagosales/correction-engine-api/internal/services/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Correction Engine API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s", cfg.Port, cfg.WorkerCount, cfg.GinMode)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	pal := palette.Default()
	if cfg.PalettePath != "" {
		pal, err = palette.LoadFile(cfg.PalettePath)
		if err != nil {
			log.Fatalf("❌ Failed to load palette override: %v", err)
		}
		log.Printf("🎨 Palette override loaded from %s", cfg.PalettePath)
	}

	fetcherOpts := []document.FetcherOption{
		document.WithAttemptTimeout(cfg.AttemptTimeout),
	}
	if cfg.TokenEndpoint != "" {
		fetcherOpts = append(fetcherOpts, document.WithTokenIssuer(&document.HTTPTokenIssuer{
			Endpoint:     cfg.TokenEndpoint,
			ServiceToken: cfg.ServiceToken,
		}))
		log.Println("✅ Token re-issue strategy enabled")
	} else {
		log.Println("⚠️  No token endpoint configured (set TOKEN_ENDPOINT for token re-issue fallback)")
	}
	manager := document.NewManager(document.NewFetcher(fetcherOpts...))
	defer manager.CloseAll()

	renderer, err := raster.NewRenderer()
	if err != nil {
		log.Fatalf("❌ Failed to initialize renderer: %v", err)
	}

	hub := session.NewHub(pal, persistRegions(db))
	comp := compositor.New(renderer, pal)

	// Step 4: Create and Start the Export Worker Pool
	pool := export.NewPool(cfg.WorkerCount, cfg.JobQueueSize, db, manager, comp, hub)
	pool.Start()
	defer pool.Stop()

	// Step 5: Background Cleanup
	pruneCtx, prunerStop := context.WithCancel(context.Background())
	defer prunerStop()
	go pruneFileTokens(pruneCtx, db)

	// Step 6: Setup HTTP Router
	r := router.Setup(db, cfg, manager, renderer, hub, pool)

	// Step 7: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 8: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Flush any sessions with unsaved edits before the server stops.
	if err := hub.CloseAll(ctx); err != nil {
		log.Printf("⚠️  Session flush on shutdown: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}

// pruneFileTokens deletes expired file token records once an hour so the
// table does not grow unbounded. Revocation checks only read unexpired rows,
// so the cadence is not load-bearing.
func pruneFileTokens(ctx context.Context, db *database.DB) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.PruneExpiredFileTokens(ctx)
			if err != nil {
				log.Printf("⚠️  File token prune: %v", err)
			} else if n > 0 {
				log.Printf("🧹 Pruned %d expired file tokens", n)
			}
		}
	}
}

// persistRegions adapts the database layer into the session save callback.
func persistRegions(db *database.DB) session.SaveFunc {
	return func(ctx context.Context, essayID string, list []models.Region) error {
		payload, err := json.Marshal(list)
		if err != nil {
			return err
		}
		return db.SaveAnnotationSet(ctx, &models.AnnotationSet{EssayID: essayID, Regions: payload})
	}
}
