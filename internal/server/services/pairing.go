package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/logging"
	"github.com/dmitrijs2005/termbind/internal/server/auth"
	"github.com/dmitrijs2005/termbind/internal/server/config"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/pairings"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/repomanager"
)

// PublicKeyLength is the exact byte length of a pairing public key (X25519).
// Keys of any other length are rejected before any storage lookup.
const PublicKeyLength = 32

// PairingState is the requester-visible state of a pairing request.
type PairingState string

const (
	StateNotFound   PairingState = "not_found"
	StateRequested  PairingState = "requested"
	StatePending    PairingState = "pending"
	StateAuthorized PairingState = "authorized"
)

// RequestResult is the outcome of a register/poll call. Token and Response
// are only set when State is StateAuthorized.
type RequestResult struct {
	State    PairingState
	Token    string
	Response []byte
}

// StatusResult is the outcome of a status call.
type StatusResult struct {
	State      PairingState
	SupportsV2 bool
}

// PairingService runs the challenge/response pairing state machine
// (absent → pending → authorized) for one namespace. Terminal and
// account-level pairing are two instances of this type.
//
// The server side never blocks: every call returns the current state
// immediately, and the poll/backoff loop lives entirely in the client.
type PairingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	namespace   pairings.Namespace
	cfg         *config.Config
	logger      logging.Logger
}

// NewPairingService constructs a PairingService for the given namespace.
func NewPairingService(db *sql.DB, m repomanager.RepositoryManager, ns pairings.Namespace,
	cfg *config.Config, logger logging.Logger) *PairingService {
	return &PairingService{db: db, repomanager: m, namespace: ns, cfg: cfg, logger: logger}
}

func (s *PairingService) repo() pairings.Repository {
	return s.repomanager.Pairings(s.db, s.namespace)
}

func validateKey(publicKey []byte) error {
	if len(publicKey) != PublicKeyLength {
		return common.ErrMalformedKey
	}
	return nil
}

// Request registers a pairing request for publicKey, or polls an existing
// one. While pending it returns StateRequested; once an approver has
// attached a response it returns the response payload plus a fresh token
// scoped to this pairing request.
func (s *PairingService) Request(ctx context.Context, publicKey []byte, supportsV2 bool) (*RequestResult, error) {
	if err := validateKey(publicKey); err != nil {
		return nil, err
	}
	keyID := hex.EncodeToString(publicKey)

	req, err := s.repo().GetOrCreate(ctx, keyID, supportsV2)
	if err != nil {
		s.logger.Error(ctx, "pairing get-or-create failed", "err", err)
		return nil, common.ErrInternal
	}

	if !req.Authorized() {
		return &RequestResult{State: StateRequested}, nil
	}

	token, err := auth.GenerateToken(req.ResponseAccountID, keyID, []byte(s.cfg.SecretKey), s.cfg.TokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}
	return &RequestResult{State: StateAuthorized, Token: token, Response: req.Response}, nil
}

// Status reports the current state without creating a record or minting a
// token.
func (s *PairingService) Status(ctx context.Context, publicKey []byte) (*StatusResult, error) {
	if err := validateKey(publicKey); err != nil {
		return nil, err
	}

	req, err := s.repo().Find(ctx, hex.EncodeToString(publicKey))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &StatusResult{State: StateNotFound}, nil
		}
		s.logger.Error(ctx, "pairing lookup failed", "err", err)
		return nil, common.ErrInternal
	}

	state := StatePending
	if req.Authorized() {
		state = StateAuthorized
	}
	return &StatusResult{State: state, SupportsV2: req.SupportsV2}, nil
}

// Respond lets an authenticated account approve a pending request by
// attaching the encrypted response payload. The transition is monotonic:
// the first writer wins, and any later approval is accepted as success
// without touching the stored response — both racers observe the request
// reach authorized, so reporting an error to the loser would only confuse
// retrying clients.
func (s *PairingService) Respond(ctx context.Context, approverAccountID string, publicKey, response []byte) error {
	if err := validateKey(publicKey); err != nil {
		return err
	}
	if len(response) == 0 {
		return common.ErrNotFound
	}
	keyID := hex.EncodeToString(publicKey)

	won, err := s.repo().Approve(ctx, keyID, response, approverAccountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		s.logger.Error(ctx, "pairing approve failed", "err", err)
		return common.ErrInternal
	}
	if !won {
		s.logger.Debug(ctx, "pairing request already answered", "publicKey", keyID)
	}
	return nil
}
