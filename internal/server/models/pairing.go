package models

import "time"

// PairingRequest represents an unauthenticated party's request to be linked
// to an account, keyed by its hex-encoded public key.
//
// Response and ResponseAccountID are set together, exactly once: the row is
// pending while Response is nil and authorized afterwards. The transition is
// terminal.
type PairingRequest struct {
	PublicKey         string
	SupportsV2        bool
	Response          []byte
	ResponseAccountID string
	CreatedAt         time.Time
	AnsweredAt        *time.Time
}

// Authorized reports whether an approver has already attached a response.
func (p *PairingRequest) Authorized() bool {
	return p.Response != nil
}
