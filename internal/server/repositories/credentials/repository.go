package credentials

import "context"

// Repository stores one opaque sealed blob per (account, logical key name).
// Put overwrites wholesale; there is no versioning or merge.
//
// Implementations: PostgresRepository and S3Repository.
type Repository interface {
	Put(ctx context.Context, accountID, name string, blob []byte) error
	// Get returns the stored blob or common.ErrNotFound.
	Get(ctx context.Context, accountID, name string) ([]byte, error)
}
