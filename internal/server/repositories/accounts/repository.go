package accounts

import (
	"context"

	"github.com/dmitrijs2005/termbind/internal/server/models"
)

type Repository interface {
	// Upsert creates the account on first authentication and bumps
	// last_login_at on every later one.
	Upsert(ctx context.Context, id string) (*models.Account, error)
	Get(ctx context.Context, id string) (*models.Account, error)
}
