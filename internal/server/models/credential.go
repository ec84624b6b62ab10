package models

import "time"

// SealedCredential is an opaque nonce‖tag‖ciphertext blob stored per
// (account, logical key name) and overwritten wholesale on each new seal.
type SealedCredential struct {
	AccountID string
	Name      string
	Blob      []byte
	UpdatedAt time.Time
}
