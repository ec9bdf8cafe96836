package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Purpose labels for derived keys.
const (
	PurposeCredentialSigning = "credential_signing"
	PurposeSecureChannel     = "secure_channel"
)

// PurposeKeyData is the signed payload of a purpose-key attestation.
type PurposeKeyData struct {
	PublicKey []byte `cbor:"public_key"`
	Purpose   string `cbor:"purpose"`
	CreatedAt int64  `cbor:"created_at"`
}

// PurposeKeyAttestation binds a derived key to an identity for one purpose.
// The signature is produced by the identity's current key, so verifying it
// requires the identity's change history.
type PurposeKeyAttestation struct {
	Data      PurposeKeyData `cbor:"data"`
	Signature []byte         `cbor:"signature"`
}

// PurposeKeys manages keys derived from an identity for specific functional
// purposes, persisted through the purpose-keys repository.
type PurposeKeys struct {
	identities *Identities
}

// PurposeKeys returns the purpose-key manager bound to this service's
// repositories and vault.
func (s *Identities) PurposeKeys() *PurposeKeys {
	return &PurposeKeys{identities: s}
}

// GetOrCreate returns the public key of the identity's purpose key for the
// given purpose, creating and attesting a new one if none is stored.
func (p *PurposeKeys) GetOrCreate(ctx context.Context, identifier Identifier, purpose string) ([]byte, error) {
	s := p.identities
	if s.purposeKeys == nil {
		return nil, fmt.Errorf("no purpose keys repository configured")
	}
	raw, err := s.purposeKeys.GetPurposeKey(ctx, identifier, purpose)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		attestation, err := decodePurposeKeyAttestation(raw)
		if err != nil {
			return nil, err
		}
		return attestation.Data.PublicKey, nil
	}

	ident, err := s.GetIdentity(ctx, identifier)
	if err != nil {
		return nil, err
	}
	pub, err := s.vault.GenerateSigningKey(ctx)
	if err != nil {
		return nil, err
	}
	data := PurposeKeyData{PublicKey: pub, Purpose: purpose, CreatedAt: time.Now().Unix()}
	encoded, err := cbor.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode purpose key data: %w", err)
	}
	sig, err := s.vault.Sign(ctx, ident.PublicKey(), encoded)
	if err != nil {
		return nil, err
	}
	attestation, err := cbor.Marshal(PurposeKeyAttestation{Data: data, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("failed to encode purpose key attestation: %w", err)
	}
	if err := s.purposeKeys.SetPurposeKey(ctx, identifier, purpose, attestation); err != nil {
		return nil, err
	}
	return pub, nil
}

// Attestation returns the decoded stored attestation for one purpose, or nil
// when none is stored.
func (p *PurposeKeys) Attestation(ctx context.Context, identifier Identifier, purpose string) (*PurposeKeyAttestation, error) {
	raw, err := p.identities.purposeKeys.GetPurposeKey(ctx, identifier, purpose)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	attestation, err := decodePurposeKeyAttestation(raw)
	if err != nil {
		return nil, err
	}
	return &attestation, nil
}

func decodePurposeKeyAttestation(raw []byte) (PurposeKeyAttestation, error) {
	var attestation PurposeKeyAttestation
	if err := cbor.Unmarshal(raw, &attestation); err != nil {
		return PurposeKeyAttestation{}, fmt.Errorf("failed to decode purpose key attestation: %w", err)
	}
	return attestation, nil
}
