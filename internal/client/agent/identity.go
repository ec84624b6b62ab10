package agent

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/nacl/box"
)

// Identity is the agent's long-lived key material: an X25519 keypair for
// pairing (the public key identifies the terminal, the private key opens the
// sealed response payload) and an Ed25519 keypair for signature login.
type Identity struct {
	BoxPublicKey  *[32]byte
	BoxPrivateKey *[32]byte
	SigningKey    ed25519.PrivateKey
}

type identityFile struct {
	BoxPublicKey  string `json:"box_public_key"`
	BoxPrivateKey string `json:"box_private_key"`
	SigningSeed   string `json:"signing_seed"`
}

// NewIdentity generates fresh key material.
func NewIdentity() (*Identity, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keypair generation failed: %w", err)
	}
	_, signing, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keypair generation failed: %w", err)
	}
	return &Identity{BoxPublicKey: pub, BoxPrivateKey: priv, SigningKey: signing}, nil
}

// PublicKey returns the pairing public key as a plain slice.
func (id *Identity) PublicKey() []byte {
	return id.BoxPublicKey[:]
}

// Save writes the identity to path, readable only by the owner.
func (id *Identity) Save(path string) error {
	data, err := json.MarshalIndent(identityFile{
		BoxPublicKey:  base64.StdEncoding.EncodeToString(id.BoxPublicKey[:]),
		BoxPrivateKey: base64.StdEncoding.EncodeToString(id.BoxPrivateKey[:]),
		SigningSeed:   base64.StdEncoding.EncodeToString(id.SigningKey.Seed()),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadIdentity reads the identity from path.
func LoadIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f identityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed identity file: %w", err)
	}

	pub, err := decodeKey32(f.BoxPublicKey)
	if err != nil {
		return nil, err
	}
	priv, err := decodeKey32(f.BoxPrivateKey)
	if err != nil {
		return nil, err
	}
	seed, err := base64.StdEncoding.DecodeString(f.SigningSeed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("malformed identity file: bad signing seed")
	}

	return &Identity{
		BoxPublicKey:  pub,
		BoxPrivateKey: priv,
		SigningKey:    ed25519.NewKeyFromSeed(seed),
	}, nil
}

// LoadOrCreateIdentity loads the identity from path, generating and saving a
// fresh one if the file does not exist yet.
func LoadOrCreateIdentity(path string) (*Identity, error) {
	id, err := LoadIdentity(path)
	if err == nil {
		return id, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	id, err = NewIdentity()
	if err != nil {
		return nil, err
	}
	if err := id.Save(path); err != nil {
		return nil, err
	}
	return id, nil
}

func decodeKey32(s string) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("malformed identity file: bad key")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
