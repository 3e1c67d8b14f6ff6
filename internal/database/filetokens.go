// filetokens.go handles short-lived document access token records.
package database

import (
	"context"
	"fmt"

	"github.com/profyagosales/correction-engine-api/internal/models"
)

// CreateFileToken stores the hash of an issued token. The raw token is
// never persisted — it travels to the client once and is verified against
// the hash on use.
func (db *DB) CreateFileToken(ctx context.Context, t *models.FileToken) error {
	query := `
		INSERT INTO file_tokens (essay_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		t.EssayID, t.TokenHash, t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)
}

// GetActiveFileTokens returns the unexpired token records for an essay,
// newest first. Verification compares the presented token against each hash
// until one matches.
func (db *DB) GetActiveFileTokens(ctx context.Context, essayID string) ([]models.FileToken, error) {
	var tokens []models.FileToken
	err := db.SelectContext(ctx, &tokens,
		`SELECT * FROM file_tokens WHERE essay_id = $1 AND expires_at > NOW() ORDER BY created_at DESC`,
		essayID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file tokens: %w", err)
	}
	return tokens, nil
}

// PruneExpiredFileTokens deletes expired token records. Called periodically
// so the table does not accumulate hashes forever.
func (db *DB) PruneExpiredFileTokens(ctx context.Context) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM file_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune file tokens: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
