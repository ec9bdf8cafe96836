// This file contains methods for the purpose-keys repository.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rage-cmd/ockam/pkg/identity"
)

// SetPurposeKey stores or replaces the attestation blob for one purpose of
// an identity.
func (s *Store) SetPurposeKey(ctx context.Context, identifier identity.Identifier, purpose string, attestation []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO purpose_keys (identifier, purpose, attestation) VALUES (?, ?, ?)`,
		identifier.String(), purpose, attestation)
	if err != nil {
		return fmt.Errorf("failed to set purpose key: %w", err)
	}
	return nil
}

// GetPurposeKey returns the stored attestation blob, or nil when absent.
func (s *Store) GetPurposeKey(ctx context.Context, identifier identity.Identifier, purpose string) ([]byte, error) {
	var attestation []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT attestation FROM purpose_keys WHERE identifier = ? AND purpose = ?`,
		identifier.String(), purpose).Scan(&attestation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purpose key: %w", err)
	}
	return attestation, nil
}

// DeletePurposeKeys removes every purpose key of the identity.
func (s *Store) DeletePurposeKeys(ctx context.Context, identifier identity.Identifier) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM purpose_keys WHERE identifier = ?`, identifier.String())
	if err != nil {
		return fmt.Errorf("failed to delete purpose keys: %w", err)
	}
	return nil
}
