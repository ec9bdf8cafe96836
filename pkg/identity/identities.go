package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Identities composes a vault with the change-history, attributes, and
// purpose-keys repositories. It is a dependency-injection boundary: all
// storage goes through the repositories and all signing goes through the
// vault.
type Identities struct {
	vault         Vault
	changeHistory ChangeHistoryRepository
	attributes    AttributesRepository
	purposeKeys   PurposeKeysRepository
}

// Builder assembles an Identities service.
type Builder struct {
	identities Identities
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// WithVault sets the signing vault.
func (b *Builder) WithVault(v Vault) *Builder {
	b.identities.vault = v
	return b
}

// WithChangeHistoryRepository sets the change-history repository.
func (b *Builder) WithChangeHistoryRepository(r ChangeHistoryRepository) *Builder {
	b.identities.changeHistory = r
	return b
}

// WithAttributesRepository sets the attributes repository.
func (b *Builder) WithAttributesRepository(r AttributesRepository) *Builder {
	b.identities.attributes = r
	return b
}

// WithPurposeKeysRepository sets the purpose-keys repository.
func (b *Builder) WithPurposeKeysRepository(r PurposeKeysRepository) *Builder {
	b.identities.purposeKeys = r
	return b
}

// Build returns the composed service.
func (b *Builder) Build() (*Identities, error) {
	if b.identities.vault == nil {
		return nil, fmt.Errorf("identities service requires a vault")
	}
	if b.identities.changeHistory == nil {
		return nil, fmt.Errorf("identities service requires a change history repository")
	}
	ids := b.identities
	return &ids, nil
}

// Vault returns the signing vault.
func (s *Identities) Vault() Vault { return s.vault }

// ChangeHistoryRepository returns the change-history repository.
func (s *Identities) ChangeHistoryRepository() ChangeHistoryRepository { return s.changeHistory }

// AttributesRepository returns the attributes repository.
func (s *Identities) AttributesRepository() AttributesRepository { return s.attributes }

// PurposeKeysRepository returns the purpose-keys repository.
func (s *Identities) PurposeKeysRepository() PurposeKeysRepository { return s.purposeKeys }

// CreateIdentity generates a new signing key in the vault, builds the first
// change of a fresh change history, and stores it.
func (s *Identities) CreateIdentity(ctx context.Context) (*Identity, error) {
	pub, err := s.vault.GenerateSigningKey(ctx)
	if err != nil {
		return nil, err
	}
	data := ChangeData{PublicKey: pub, CreatedAt: time.Now().Unix()}
	encoded, err := cbor.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change: %w", err)
	}
	selfSig, err := s.vault.Sign(ctx, pub, encoded)
	if err != nil {
		return nil, err
	}
	history := ChangeHistory{Changes: []Change{{Data: data, SelfSignature: selfSig}}}
	identifier, err := history.Identifier()
	if err != nil {
		return nil, err
	}
	if err := s.changeHistory.StoreIdentity(ctx, identifier, history); err != nil {
		return nil, err
	}
	return &Identity{identifier: identifier, changeHistory: history}, nil
}

// GetIdentity loads an identity's change history, verifies the whole chain,
// and checks that the stored identifier matches the one derived from it.
func (s *Identities) GetIdentity(ctx context.Context, identifier Identifier) (*Identity, error) {
	history, err := s.changeHistory.GetChangeHistory(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.verify(identifier, history)
}

// ImportIdentity decodes an exported change history, verifies it, and stores
// it under its derived identifier. Importing an identity that already exists
// replaces its stored change history.
func (s *Identities) ImportIdentity(ctx context.Context, data []byte) (*Identity, error) {
	history, err := ImportChangeHistory(data)
	if err != nil {
		return nil, err
	}
	identifier, err := history.Identifier()
	if err != nil {
		return nil, err
	}
	ident, err := s.verify(identifier, history)
	if err != nil {
		return nil, err
	}
	if err := s.changeHistory.StoreIdentity(ctx, identifier, history); err != nil {
		existing, optErr := s.changeHistory.GetChangeHistoryOptional(ctx, identifier)
		if optErr != nil || existing == nil {
			return nil, err
		}
		if err := s.changeHistory.UpdateIdentity(ctx, identifier, history); err != nil {
			return nil, err
		}
	}
	return ident, nil
}

// ExportIdentity serializes an identity's change history to bytes. The
// exported form round-trips through ImportIdentity bit-for-bit.
func (s *Identities) ExportIdentity(ctx context.Context, identifier Identifier) ([]byte, error) {
	history, err := s.changeHistory.GetChangeHistory(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return history.Export()
}

// RotateIdentity appends a key rotation to the identity's change history:
// a new key is generated, the rotation is countersigned by the previous key
// and self-signed by the new one. The identifier does not change.
func (s *Identities) RotateIdentity(ctx context.Context, identifier Identifier) (*Identity, error) {
	history, err := s.changeHistory.GetChangeHistory(ctx, identifier)
	if err != nil {
		return nil, err
	}
	previous := history.PublicKey()
	pub, err := s.vault.GenerateSigningKey(ctx)
	if err != nil {
		return nil, err
	}
	data := ChangeData{PublicKey: pub, CreatedAt: time.Now().Unix()}
	encoded, err := cbor.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change: %w", err)
	}
	selfSig, err := s.vault.Sign(ctx, pub, encoded)
	if err != nil {
		return nil, err
	}
	prevSig, err := s.vault.Sign(ctx, previous, encoded)
	if err != nil {
		return nil, err
	}
	history.Changes = append(history.Changes, Change{
		Data:              data,
		SelfSignature:     selfSig,
		PreviousSignature: prevSig,
	})
	if err := s.changeHistory.UpdateIdentity(ctx, identifier, history); err != nil {
		return nil, err
	}
	return &Identity{identifier: identifier, changeHistory: history}, nil
}

// errChainInvalid is returned when a change history fails verification.
var errChainInvalid = errors.New("change history verification failed")

// verify checks every signature of the chain and the identifier derivation.
func (s *Identities) verify(identifier Identifier, history ChangeHistory) (*Identity, error) {
	derived, err := history.Identifier()
	if err != nil {
		return nil, err
	}
	if derived != identifier {
		return nil, fmt.Errorf("%w: identifier mismatch, derived %s but expected %s",
			errChainInvalid, derived, identifier)
	}
	for i, change := range history.Changes {
		encoded, err := cbor.Marshal(change.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode change %d: %w", i, err)
		}
		if !s.vault.Verify(change.Data.PublicKey, encoded, change.SelfSignature) {
			return nil, fmt.Errorf("%w: invalid self signature on change %d", errChainInvalid, i)
		}
		if i > 0 {
			previous := history.Changes[i-1].Data.PublicKey
			if !s.vault.Verify(previous, encoded, change.PreviousSignature) {
				return nil, fmt.Errorf("%w: invalid rotation signature on change %d", errChainInvalid, i)
			}
		}
	}
	return &Identity{identifier: identifier, changeHistory: history}, nil
}
