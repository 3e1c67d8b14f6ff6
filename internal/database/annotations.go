// annotations.go handles the persisted annotation sets.
//
// Go Pattern: We split database operations into multiple files for
// organization — annotations, export jobs, file tokens. They all use the
// same *DB receiver.
//
// The region list is stored as one JSONB document per essay rather than a
// row per region: the engine always loads and saves the whole set (the save
// debounce coalesces edits), and a single row makes the replace atomic
// without a transaction across N rows.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/profyagosales/correction-engine-api/internal/models"
)

// GetAnnotationSet loads the stored region list for an essay. A missing row
// is not an error — a never-annotated essay simply has no regions yet.
func (db *DB) GetAnnotationSet(ctx context.Context, essayID string) (*models.AnnotationSet, error) {
	var set models.AnnotationSet
	err := db.GetContext(ctx, &set,
		`SELECT essay_id, regions, updated_at FROM annotation_sets WHERE essay_id = $1`, essayID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.AnnotationSet{EssayID: essayID, Regions: []byte("[]")}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load annotations: %w", err)
	}
	return &set, nil
}

// SaveAnnotationSet replaces the stored region list for an essay.
// Go Pattern: ON CONFLICT (upsert) keeps this a single round trip whether
// the essay has been annotated before or not.
func (db *DB) SaveAnnotationSet(ctx context.Context, set *models.AnnotationSet) error {
	query := `
		INSERT INTO annotation_sets (essay_id, regions, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (essay_id)
		DO UPDATE SET regions = EXCLUDED.regions, updated_at = NOW()
		RETURNING updated_at`

	return db.QueryRowContext(ctx, query, set.EssayID, set.Regions).Scan(&set.UpdatedAt)
}

// DeleteAnnotationSet removes an essay's annotations entirely.
func (db *DB) DeleteAnnotationSet(ctx context.Context, essayID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM annotation_sets WHERE essay_id = $1`, essayID)
	if err != nil {
		return fmt.Errorf("failed to delete annotations: %w", err)
	}
	return nil
}
