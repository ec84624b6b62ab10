// Package auth issues and validates the bearer tokens minted after a
// successful authentication. The services decide when a token may be
// minted; this package only formats and verifies them.
package auth

import (
	"time"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the account identifier and, for pairing flows, the pairing
// request the session is scoped to.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
	PairingID string `json:"pairing_id,omitempty"`
}

// GenerateToken mints an HS256 token for accountID. pairingID may be empty;
// when set it scopes the token to one pairing request so the session can be
// revoked per device rather than per account.
func GenerateToken(accountID, pairingID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		AccountID: accountID,
		PairingID: pairingID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
