// Package agent implements the terminal half of the pairing protocol:
// key management, registration and polling, payload decryption, and the two
// login flows.
package agent

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/box"

	"github.com/dmitrijs2005/termbind/internal/client/client"
	"github.com/dmitrijs2005/termbind/internal/client/config"
	"github.com/dmitrijs2005/termbind/internal/common"
)

const maxPollInterval = 30 * time.Second

// Agent drives the pairing and login flows against the backend.
type Agent struct {
	cfg      *config.Config
	client   client.Client
	identity *Identity
	out      io.Writer
}

func New(cfg *config.Config, c client.Client, identity *Identity, out io.Writer) *Agent {
	return &Agent{cfg: cfg, client: c, identity: identity, out: out}
}

// PairResult is what a completed pairing yields: a session token and the
// decrypted approval payload.
type PairResult struct {
	Token   string
	Payload []byte
}

// Pair registers this terminal's public key and polls until an approver
// answers, backing off between polls. The server never blocks a poll; the
// waiting happens entirely here. The response payload is a sealed box for
// our pairing key.
func (a *Agent) Pair(ctx context.Context) (*PairResult, error) {
	fmt.Fprintf(a.out, "Pairing key: %s\n", hex.EncodeToString(a.identity.PublicKey()))
	fmt.Fprintln(a.out, "Waiting for approval...")

	interval := a.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for {
		res, err := a.client.RequestPairing(ctx, a.identity.PublicKey(), true)
		if err != nil {
			return nil, err
		}

		if res.State == "authorized" {
			payload, ok := box.OpenAnonymous(nil, res.Response, a.identity.BoxPublicKey, a.identity.BoxPrivateKey)
			if !ok {
				return nil, fmt.Errorf("approval payload decryption failed: %w", common.ErrIntegrityFailure)
			}
			return &PairResult{Token: res.Token, Payload: payload}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		if interval *= 2; interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}

// Approve answers a peer's pending pairing request: the payload is sealed to
// the peer's public key so only that terminal can read it. token must belong
// to an authenticated account.
func (a *Agent) Approve(ctx context.Context, token, peerPublicKeyHex string, payload []byte) error {
	peerKey, err := decodeKey32Hex(peerPublicKeyHex)
	if err != nil {
		return err
	}

	sealed, err := box.SealAnonymous(nil, payload, peerKey, rand.Reader)
	if err != nil {
		return fmt.Errorf("payload encryption failed: %w", err)
	}

	return a.client.RespondPairing(ctx, token, peerKey[:], sealed)
}

// SignatureLogin authenticates with the agent's signing key over a random
// challenge and returns a session token.
func (a *Agent) SignatureLogin(ctx context.Context) (string, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return "", err
	}

	publicKey := a.identity.SigningKey.Public().(ed25519.PublicKey)
	signature := ed25519.Sign(a.identity.SigningKey, challenge)

	return a.client.SignatureLogin(ctx, publicKey, challenge, signature)
}

// DirectoryLogin prompts for directory credentials and exchanges them for a
// session token and the per-account secret. The password is read without
// echo.
func (a *Agent) DirectoryLogin(ctx context.Context, reader *bufio.Reader) (token, secret string, err error) {
	username, err := getSimpleText(reader, "Enter directory username", a.out)
	if err != nil {
		return "", "", err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(password)

	return a.client.DirectoryLogin(ctx, username, string(password))
}

// NASCredentials fetches the stored directory credentials for username using
// a token obtained from DirectoryLogin.
func (a *Agent) NASCredentials(ctx context.Context, token, username string) (user, password string, err error) {
	return a.client.NASCredentials(ctx, token, username)
}

func decodeKey32Hex(s string) (*[32]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return nil, common.ErrMalformedKey
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
