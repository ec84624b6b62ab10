// Package pairings provides a PostgreSQL-backed repository for pairing
// requests. One implementation serves both the terminal and the
// account-level namespace; only the table differs.
package pairings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/dbx"
	"github.com/dmitrijs2005/termbind/internal/server/models"
)

// tables maps namespaces to their table names. Table names never come from
// request data.
var tables = map[Namespace]string{
	Terminal: "pairing_requests",
	Account:  "account_pairing_requests",
}

// PostgresRepository implements Repository over dbx.DBTX for one namespace.
type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

// NewPostgresRepository constructs a repository bound to the given DBTX and
// namespace. Unknown namespaces panic: they are a programming error, not a
// runtime condition.
func NewPostgresRepository(db dbx.DBTX, ns Namespace) *PostgresRepository {
	table, ok := tables[ns]
	if !ok {
		panic(fmt.Sprintf("pairings: unknown namespace %q", ns))
	}
	return &PostgresRepository{db: db, table: table}
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, publicKey string, supportsV2 bool) (*models.PairingRequest, error) {
	// The no-op DO UPDATE makes RETURNING yield the surviving row, so a
	// re-request before approval observes the original record (including
	// its supports_v2 flag) instead of overwriting it.
	query := fmt.Sprintf(`
		INSERT INTO %s (public_key, supports_v2)
		VALUES ($1, $2)
		ON CONFLICT (public_key) DO UPDATE SET public_key = EXCLUDED.public_key
		RETURNING public_key, supports_v2, response, response_account_id, created_at, answered_at
	`, r.table)

	row := r.db.QueryRowContext(ctx, query, publicKey, supportsV2)
	req, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) Find(ctx context.Context, publicKey string) (*models.PairingRequest, error) {
	query := fmt.Sprintf(`
		SELECT public_key, supports_v2, response, response_account_id, created_at, answered_at
		FROM %s
		WHERE public_key = $1
	`, r.table)

	row := r.db.QueryRowContext(ctx, query, publicKey)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) Approve(ctx context.Context, publicKey string, response []byte, accountID string) (bool, error) {
	// Conditional update: the WHERE clause makes the first writer win and
	// every later writer a no-op.
	query := fmt.Sprintf(`
		UPDATE %s
		SET response = $2, response_account_id = $3, answered_at = now()
		WHERE public_key = $1 AND response IS NULL
	`, r.table)

	res, err := r.db.ExecContext(ctx, query, publicKey, response, accountID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	// Zero rows: either the request never existed or it is already
	// answered. Distinguish so callers can report 404 vs idempotent OK.
	if _, err := r.Find(ctx, publicKey); err != nil {
		return false, err
	}
	return false, nil
}

func scanRequest(row *sql.Row) (*models.PairingRequest, error) {
	req := &models.PairingRequest{}
	var accountID sql.NullString
	var answeredAt sql.NullTime

	if err := row.Scan(&req.PublicKey, &req.SupportsV2, &req.Response,
		&accountID, &req.CreatedAt, &answeredAt); err != nil {
		return nil, err
	}
	if accountID.Valid {
		req.ResponseAccountID = accountID.String
	}
	if answeredAt.Valid {
		t := answeredAt.Time
		req.AnsweredAt = &t
	}
	return req, nil
}
