// Package services contains server-side business logic: directory login,
// signature-based login, credential retrieval, and the pairing state machine.
package services

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/cryptox"
	"github.com/dmitrijs2005/termbind/internal/logging"
	"github.com/dmitrijs2005/termbind/internal/server/auth"
	"github.com/dmitrijs2005/termbind/internal/server/config"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/repomanager"
)

// DirectoryAuthenticator validates a username/password pair against the
// external directory. Implemented by directory.Authenticator.
type DirectoryAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// AuthService implements the two direct login flows and credential
// retrieval.
type AuthService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	creds         credentials.Repository
	authenticator DirectoryAuthenticator
	cfg           *config.Config
	logger        logging.Logger
}

// NewAuthService constructs an AuthService. creds may point at a different
// backend (S3) than the repositories; pass repomanager.Credentials(db) for
// the default.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, creds credentials.Repository,
	authenticator DirectoryAuthenticator, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:            db,
		repomanager:   m,
		creds:         creds,
		authenticator: authenticator,
		cfg:           cfg,
		logger:        logger,
	}
}

// DirectoryLogin validates directory credentials, derives the stable account
// identity, upserts the account, seals the directory password for later
// retrieval, and mints a session token.
//
// The vault write is best-effort: a storage or encryption failure there is
// logged but never fails a login that the directory already accepted.
func (s *AuthService) DirectoryLogin(ctx context.Context, username, password string) (token, accountSecret string, err error) {
	if err := s.authenticator.Authenticate(ctx, username, password); err != nil {
		return "", "", err
	}

	accountID, accountSecret := cryptox.DeriveIdentity(s.cfg.MasterSecret, username)

	if _, err := s.repomanager.Accounts(s.db).Upsert(ctx, accountID); err != nil {
		s.logger.Error(ctx, "account upsert failed", "err", err)
		return "", "", common.ErrInternal
	}

	s.sealDirectoryPassword(ctx, accountID, username, password)

	token, err = auth.GenerateToken(accountID, "", []byte(s.cfg.SecretKey), s.cfg.TokenValidityDuration)
	if err != nil {
		return "", "", fmt.Errorf("error generating token: %w", err)
	}
	return token, accountSecret, nil
}

func (s *AuthService) sealDirectoryPassword(ctx context.Context, accountID, username, password string) {
	key := cryptox.VaultKey(s.cfg.MasterSecret, username)
	defer common.WipeByteArray(key)

	blob, err := cryptox.Seal([]byte(password), key)
	if err != nil {
		s.logger.Error(ctx, "credential seal failed", "err", err)
		return
	}
	if err := s.creds.Put(ctx, accountID, common.NASCredentialsKey, blob); err != nil {
		s.logger.Error(ctx, "credential store failed", "err", err)
	}
}

// NASCredentials returns the directory username and password stored for the
// calling account. The username arrives from the caller; the derived account
// id must match the authenticated one, so an account can only ever open its
// own vault entry.
func (s *AuthService) NASCredentials(ctx context.Context, accountID, username string) (user, password string, err error) {
	derivedID, _ := cryptox.DeriveIdentity(s.cfg.MasterSecret, username)
	if derivedID != accountID {
		return "", "", common.ErrUnauthorized
	}

	blob, err := s.creds.Get(ctx, accountID, common.NASCredentialsKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", "", common.ErrNotFound
		}
		s.logger.Error(ctx, "credential fetch failed", "err", err)
		return "", "", common.ErrInternal
	}

	key := cryptox.VaultKey(s.cfg.MasterSecret, username)
	defer common.WipeByteArray(key)

	plaintext, err := cryptox.Unseal(blob, key)
	if err != nil {
		if errors.Is(err, common.ErrIntegrityFailure) {
			s.logger.Error(ctx, "credential integrity failure", "account", accountID)
			return "", "", common.ErrIntegrityFailure
		}
		return "", "", common.ErrInternal
	}

	return cryptox.NormalizeUsername(username), string(plaintext), nil
}

// SignatureLogin verifies that signature was produced over exactly challenge
// by the private key matching publicKey, upserts the account keyed by that
// public key, and mints a token. Stateless: no pairing record is involved.
func (s *AuthService) SignatureLogin(ctx context.Context, publicKey, challenge, signature []byte) (string, error) {
	// Length checks come before any store access.
	if len(publicKey) != ed25519.PublicKeySize {
		return "", common.ErrMalformedKey
	}
	if len(signature) != ed25519.SignatureSize || len(challenge) == 0 {
		return "", common.ErrInvalidCredentials
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), challenge, signature) {
		return "", common.ErrInvalidCredentials
	}

	accountID := hex.EncodeToString(publicKey)
	if _, err := s.repomanager.Accounts(s.db).Upsert(ctx, accountID); err != nil {
		s.logger.Error(ctx, "account upsert failed", "err", err)
		return "", common.ErrInternal
	}

	token, err := auth.GenerateToken(accountID, "", []byte(s.cfg.SecretKey), s.cfg.TokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return token, nil
}
