// This file contains methods for identity enrollment status.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rage-cmd/ockam/pkg/identity"
)

// SetIdentityEnrolled records that the identity completed enrollment.
func (s *Store) SetIdentityEnrolled(ctx context.Context, identifier identity.Identifier) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO identity_enrollment (identifier, enrolled_at) VALUES (?, ?)`,
		identifier.String(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set enrollment: %w", err)
	}
	return nil
}

// IsIdentityEnrolled reports whether the identity completed enrollment.
// Unknown identities are simply not enrolled.
func (s *Store) IsIdentityEnrolled(ctx context.Context, identifier identity.Identifier) (bool, error) {
	var enrolledAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT enrolled_at FROM identity_enrollment WHERE identifier = ?`,
		identifier.String()).Scan(&enrolledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrolledAt.Valid, nil
}
