// This file contains methods for the identity attributes repository.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Rage-cmd/ockam/pkg/identity"
)

// attributesRow mirrors the identity_attributes table.
type attributesRow struct {
	identifier string
	attributes []byte
	added      int64
	expires    sql.NullInt64
	attestedBy sql.NullString
}

func (r attributesRow) entry() (identity.AttributesEntry, error) {
	var attrs map[string][]byte
	if err := cbor.Unmarshal(r.attributes, &attrs); err != nil {
		return identity.AttributesEntry{}, fmt.Errorf("failed to decode attributes: %w", err)
	}
	entry := identity.AttributesEntry{
		Attrs: attrs,
		Added: time.Unix(r.added, 0),
	}
	if r.expires.Valid {
		expires := time.Unix(r.expires.Int64, 0)
		entry.Expires = &expires
	}
	if r.attestedBy.Valid {
		attestedBy, err := identity.ParseIdentifier(r.attestedBy.String)
		if err != nil {
			return identity.AttributesEntry{}, err
		}
		entry.AttestedBy = &attestedBy
	}
	return entry, nil
}

// GetAttributes returns the attributes entry for the subject, or nil when
// there is none.
func (s *Store) GetAttributes(ctx context.Context, subject identity.Identifier) (*identity.AttributesEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT identifier, attributes, added, expires, attested_by
		FROM identity_attributes WHERE identifier = ?`, subject.String())
	var r attributesRow
	err := row.Scan(&r.identifier, &r.attributes, &r.added, &r.expires, &r.attestedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attributes: %w", err)
	}
	entry, err := r.entry()
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListAttributes returns every (identifier, entry) pair. Order is not
// significant.
func (s *Store) ListAttributes(ctx context.Context) ([]identity.IdentityAttributes, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, attributes, added, expires, attested_by FROM identity_attributes`)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	defer rows.Close()

	var result []identity.IdentityAttributes
	for rows.Next() {
		var r attributesRow
		if err := rows.Scan(&r.identifier, &r.attributes, &r.added, &r.expires, &r.attestedBy); err != nil {
			return nil, fmt.Errorf("failed to scan attributes row: %w", err)
		}
		entry, err := r.entry()
		if err != nil {
			return nil, err
		}
		identifier, err := identity.ParseIdentifier(r.identifier)
		if err != nil {
			return nil, err
		}
		result = append(result, identity.IdentityAttributes{Identifier: identifier, Entry: entry})
	}
	return result, rows.Err()
}

// PutAttributes replaces the subject's entry wholesale.
func (s *Store) PutAttributes(ctx context.Context, subject identity.Identifier, entry identity.AttributesEntry) error {
	return putAttributes(ctx, s.db, subject, entry)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putAttributes(ctx context.Context, db execer, subject identity.Identifier, entry identity.AttributesEntry) error {
	attrs := entry.Attrs
	if attrs == nil {
		attrs = map[string][]byte{}
	}
	blob, err := cbor.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}
	var expires sql.NullInt64
	if entry.Expires != nil {
		expires = sql.NullInt64{Int64: entry.Expires.Unix(), Valid: true}
	}
	var attestedBy sql.NullString
	if entry.AttestedBy != nil {
		attestedBy = sql.NullString{String: entry.AttestedBy.String(), Valid: true}
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO identity_attributes (identifier, attributes, added, expires, attested_by)
		VALUES (?, ?, ?, ?, ?)`,
		subject.String(), blob, entry.Added.Unix(), expires, attestedBy)
	if err != nil {
		return fmt.Errorf("failed to put attributes: %w", err)
	}
	return nil
}

// PutAttributeValue inserts or overwrites a single name/value pair in the
// subject's entry. The read-modify-write runs inside one transaction whose
// first statement is a write, so the transaction holds the database write
// lock before reading and two concurrent single-attribute writes serialize
// without losing either. The entry comes out self-attested with a fresh
// Added timestamp.
func (s *Store) PutAttributeValue(ctx context.Context, subject identity.Identifier, name, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Take the write lock up front so the read below is already serialized
	// against concurrent writers.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO identity_attributes (identifier, attributes, added)
		VALUES (?, ?, ?)`,
		subject.String(), emptyAttributes, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to lock attributes row: %w", err)
	}

	var blob []byte
	if err := tx.QueryRowContext(ctx,
		`SELECT attributes FROM identity_attributes WHERE identifier = ?`,
		subject.String()).Scan(&blob); err != nil {
		return fmt.Errorf("failed to read attributes: %w", err)
	}
	var attrs map[string][]byte
	if err := cbor.Unmarshal(blob, &attrs); err != nil {
		return fmt.Errorf("failed to decode attributes: %w", err)
	}
	if attrs == nil {
		attrs = map[string][]byte{}
	}
	attrs[string(name)] = value

	entry := identity.AttributesEntry{
		Attrs:      attrs,
		Added:      time.Now(),
		AttestedBy: &subject,
	}
	if err := putAttributes(ctx, tx, subject, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to put attribute value: %w", err)
	}
	return nil
}

// emptyAttributes is the CBOR encoding of an empty attribute map.
var emptyAttributes = mustMarshalEmpty()

func mustMarshalEmpty() []byte {
	blob, err := cbor.Marshal(map[string][]byte{})
	if err != nil {
		panic(err)
	}
	return blob
}

// DeleteAttributes removes the subject's entry. Deleting an absent entry is
// not an error.
func (s *Store) DeleteAttributes(ctx context.Context, subject identity.Identifier) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM identity_attributes WHERE identifier = ?`, subject.String())
	if err != nil {
		return fmt.Errorf("failed to delete attributes: %w", err)
	}
	return nil
}
