package models

import "time"

// Account is keyed by a stable identifier derived from either the directory
// identity or a raw public key. Accounts are created on first successful
// authentication and only ever updated (last login timestamp) afterwards.
type Account struct {
	ID          string
	CreatedAt   time.Time
	LastLoginAt time.Time
}
