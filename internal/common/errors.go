// Package common contains shared constants and sentinel errors used across
// termbind components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Auth errors. ErrInvalidCredentials deliberately covers every failed
	// credential check (bad directory password, bad signature, exhausted
	// directory endpoints) so callers cannot enumerate which stage failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")

	// ErrMalformedKey marks a public key of the wrong length. It is raised
	// before any storage lookup happens.
	ErrMalformedKey = errors.New("malformed public key")

	// ErrIntegrityFailure marks an AEAD tag mismatch on unseal.
	ErrIntegrityFailure = errors.New("credential integrity check failed")

	// ErrUpstreamUnavailable marks exhaustion of all directory endpoints at
	// the connection level. Logged as an operational signal; callers still
	// see ErrInvalidCredentials.
	ErrUpstreamUnavailable = errors.New("no directory endpoint reachable")
)
