// This file contains identity helpers composed over the orchestrator's
// repositories: named identity creation, lookup by name, and deletion with
// the change-history cascade.
package state

import (
	"context"

	"github.com/Rage-cmd/ockam/pkg/identity"
	"github.com/Rage-cmd/ockam/pkg/store"
)

// GetIdentities composes the Identities service from this state's
// repositories and the given signing vault.
func (s *CliState) GetIdentities(vault identity.Vault) (*identity.Identities, error) {
	return identity.NewBuilder().
		WithVault(vault).
		WithChangeHistoryRepository(s.db).
		WithAttributesRepository(s.db).
		WithPurposeKeysRepository(s.db).
		Build()
}

// CreateNamedIdentity creates a fresh identity in the vault and registers
// it under the given name. The first identity created in an empty registry
// becomes the default.
func (s *CliState) CreateNamedIdentity(ctx context.Context, vault identity.Vault, name string) (*identity.Identity, error) {
	identities, err := s.GetIdentities(vault)
	if err != nil {
		return nil, err
	}
	ident, err := identities.CreateIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Identities.Create(ctx, name, ident.Identifier()); err != nil {
		// The chain is already stored; undo it so a name collision does
		// not leave a dangling identity behind.
		_ = s.db.DeleteIdentity(ctx, ident.Identifier())
		return nil, err
	}
	return ident, nil
}

// GetNamedIdentity loads and verifies the identity registered under the
// given name.
func (s *CliState) GetNamedIdentity(ctx context.Context, vault identity.Vault, name string) (*identity.Identity, error) {
	entry, err := s.Identities.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	identities, err := s.GetIdentities(vault)
	if err != nil {
		return nil, err
	}
	return identities.GetIdentity(ctx, entry.Record)
}

// DeleteNamedIdentity removes the name registration and, when no other name
// still refers to the same identifier, deletes the identity's change
// history together with its attributes and purpose keys.
func (s *CliState) DeleteNamedIdentity(ctx context.Context, name string) error {
	entry, err := s.Identities.Get(ctx, name)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := s.Identities.Delete(ctx, name); err != nil {
		return err
	}
	remaining, err := s.Identities.List(ctx)
	if err != nil {
		return err
	}
	for _, other := range remaining {
		if other.Record == entry.Record {
			return nil
		}
	}
	return s.db.DeleteIdentity(ctx, entry.Record)
}
