// Package cryptox implements the deterministic identity derivation and the
// authenticated-encryption credential vault used by the auth flows.
package cryptox

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/termbind/internal/sha512x"
)

// Domain-separation prefixes. Disjoint prefixes into a one-way hash keep the
// account id, the account secret and the vault key mutually underivable
// without the master secret.
const (
	accountIDPrefix     = "ad:"
	accountSecretPrefix = "ad-secret:"
	vaultKeyPrefix      = "nas-cred-key:"
)

// NormalizeUsername strips any DOMAIN\ prefix from a client-supplied
// username. The configured short name is always used for directory binds
// instead, so a client cannot point the bind at a different trust domain.
func NormalizeUsername(username string) string {
	if i := strings.LastIndexByte(username, '\\'); i >= 0 {
		return username[i+1:]
	}
	return username
}

// DeriveIdentity maps (masterSecret, username) to a stable account id and a
// per-account symmetric secret. The same user always maps to the same
// account across calls and restarts, which is what lets a returning user
// decrypt previously stored data without a persisted per-user key table.
func DeriveIdentity(masterSecret, username string) (accountID, accountSecret string) {
	username = NormalizeUsername(username)

	id := sha512x.Sum([]byte(accountIDPrefix + masterSecret + ":" + username))
	secret := sha512x.Sum([]byte(accountSecretPrefix + masterSecret + ":" + username))

	return hex.EncodeToString(id[:]), base64.RawURLEncoding.EncodeToString(secret[:])
}

// VaultKey derives the 32-byte AES key protecting the sealed credentials of
// one (masterSecret, username) pair.
func VaultKey(masterSecret, username string) []byte {
	username = NormalizeUsername(username)
	sum := sha512x.Sum([]byte(vaultKeyPrefix + masterSecret + ":" + username))
	return sum[:32]
}
