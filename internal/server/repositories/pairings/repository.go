package pairings

import (
	"context"

	"github.com/dmitrijs2005/termbind/internal/server/models"
)

// Namespace selects which pairing table a repository operates on. Terminal
// and account pairing share one state machine over distinct tables.
type Namespace string

const (
	// Terminal is the terminal/device pairing namespace.
	Terminal Namespace = "terminal"
	// Account is the account-level pairing namespace.
	Account Namespace = "account"
)

type Repository interface {
	// GetOrCreate registers a pairing request for publicKey, or returns the
	// existing record if one is already present. The operation is a single
	// atomic statement, so concurrent first pollers converge on one row.
	GetOrCreate(ctx context.Context, publicKey string, supportsV2 bool) (*models.PairingRequest, error)

	// Find returns the request for publicKey or common.ErrNotFound.
	Find(ctx context.Context, publicKey string) (*models.PairingRequest, error)

	// Approve attaches response and accountID to a pending request. It
	// reports true if this call performed the transition, false if the
	// request was already answered (the stored response is untouched), and
	// common.ErrNotFound if no request exists.
	Approve(ctx context.Context, publicKey string, response []byte, accountID string) (bool, error)
}
