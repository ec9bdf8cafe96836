// This file contains methods for the identity change-history repository.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rage-cmd/ockam/pkg/identity"
)

// StoreIdentity inserts a new identity row keyed by identifier. Storing an
// identifier that already has a row fails with AlreadyExistsError: rotations
// go through UpdateIdentity instead.
func (s *Store) StoreIdentity(ctx context.Context, identifier identity.Identifier, history identity.ChangeHistory) error {
	blob, err := history.Export()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO identity (identifier, change_history) VALUES (?, ?)`,
		identifier.String(), blob)
	if isConstraintViolation(err) {
		return &AlreadyExistsError{Resource: "identity", Name: identifier.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to store identity: %w", err)
	}
	return nil
}

// UpdateIdentity replaces the change-history blob for an existing
// identifier, after a key rotation extended the chain.
func (s *Store) UpdateIdentity(ctx context.Context, identifier identity.Identifier, history identity.ChangeHistory) error {
	blob, err := history.Export()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE identity SET change_history = ? WHERE identifier = ?`,
		blob, identifier.String())
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "identity", Name: identifier.String()}
	}
	return nil
}

// DeleteIdentity removes the identity row and, in the same transaction, its
// attributes, purpose keys, and enrollment status. The cascade is a hard
// requirement: a deleted identity must not leave attribute rows behind.
func (s *Store) DeleteIdentity(ctx context.Context, identifier identity.Identifier) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM identity WHERE identifier = ?`,
		`DELETE FROM identity_attributes WHERE identifier = ?`,
		`DELETE FROM purpose_keys WHERE identifier = ?`,
		`DELETE FROM identity_enrollment WHERE identifier = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, identifier.String()); err != nil {
			return fmt.Errorf("failed to delete identity: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}

// GetChangeHistoryOptional returns the stored change history, or nil without
// error when the identifier is absent.
func (s *Store) GetChangeHistoryOptional(ctx context.Context, identifier identity.Identifier) (*identity.ChangeHistory, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT change_history FROM identity WHERE identifier = ?`,
		identifier.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change history: %w", err)
	}
	history, err := identity.ImportChangeHistory(blob)
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// GetChangeHistory is the convenience wrapper over GetChangeHistoryOptional
// that fails with NotFoundError when the identifier is absent.
func (s *Store) GetChangeHistory(ctx context.Context, identifier identity.Identifier) (identity.ChangeHistory, error) {
	history, err := s.GetChangeHistoryOptional(ctx, identifier)
	if err != nil {
		return identity.ChangeHistory{}, err
	}
	if history == nil {
		return identity.ChangeHistory{}, &NotFoundError{Resource: "identity", Name: identifier.String()}
	}
	return *history, nil
}
