// Package accounts provides a PostgreSQL-backed repository for accounts
// keyed by their derived identifier.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/dbx"
	"github.com/dmitrijs2005/termbind/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, id string) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id)
		VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET last_login_at = now()
		RETURNING id, created_at, last_login_at
	`
	account := &models.Account{}
	if err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.CreatedAt, &account.LastLoginAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, created_at, last_login_at FROM accounts
		WHERE id = $1
	`
	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.CreatedAt, &account.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}
