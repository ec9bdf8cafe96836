package identity

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// Vault produces and uses signing keys without exposing private key
// material. Keys are addressed by their public key bytes.
//
// The production vault is backed by platform key storage; SoftwareVault is
// an in-memory implementation for local state and tests.
type Vault interface {
	// GenerateSigningKey creates a new Ed25519 signing key and returns its
	// public key, which acts as the handle for later operations.
	GenerateSigningKey(ctx context.Context) ([]byte, error)

	// Sign signs data with the key identified by publicKey.
	Sign(ctx context.Context, publicKey, data []byte) ([]byte, error)

	// Verify checks a signature against a public key.
	Verify(publicKey, data, signature []byte) bool

	// Signer returns a crypto.Signer for the key identified by publicKey,
	// for use with libraries that sign through the standard interface.
	Signer(publicKey []byte) (crypto.Signer, error)
}

// SoftwareVault is an in-memory Vault holding Ed25519 private keys.
type SoftwareVault struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PrivateKey
}

// NewSoftwareVault returns an empty in-memory vault.
func NewSoftwareVault() *SoftwareVault {
	return &SoftwareVault{keys: make(map[string]ed25519.PrivateKey)}
}

func (v *SoftwareVault) GenerateSigningKey(ctx context.Context) ([]byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	v.mu.Lock()
	v.keys[hex.EncodeToString(pub)] = priv
	v.mu.Unlock()
	return pub, nil
}

func (v *SoftwareVault) Sign(ctx context.Context, publicKey, data []byte) ([]byte, error) {
	v.mu.RLock()
	priv, ok := v.keys[hex.EncodeToString(publicKey)]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no signing key for public key %s", hex.EncodeToString(publicKey))
	}
	return ed25519.Sign(priv, data), nil
}

func (v *SoftwareVault) Verify(publicKey, data, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, signature)
}

func (v *SoftwareVault) Signer(publicKey []byte) (crypto.Signer, error) {
	v.mu.RLock()
	priv, ok := v.keys[hex.EncodeToString(publicKey)]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no signing key for public key %s", hex.EncodeToString(publicKey))
	}
	return priv, nil
}
