// Package credentials provides storage backends for sealed per-account
// credential blobs.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Put(ctx context.Context, accountID, name string, blob []byte) error {
	query := `
		INSERT INTO credentials (account_id, name, blob)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, name) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, name, blob); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, accountID, name string) ([]byte, error) {
	query := `
		SELECT blob FROM credentials
		WHERE account_id = $1 AND name = $2
	`
	var blob []byte
	if err := r.db.QueryRowContext(ctx, query, accountID, name).Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return blob, nil
}
