// This file contains the generic named-entity registry. Every category
// (identities, vaults, nodes) instantiates the same name-to-record pattern
// with a single default row, instead of hand-copying one repository per
// category.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// namedTables maps registry categories to their tables. Categories are a
// closed set so table names never come from caller input.
var namedTables = map[string]string{
	"identity": "named_identity",
	"vault":    "named_vault",
	"node":     "named_node",
}

// NamedEntry is one row of a named-entity registry.
type NamedEntry[T any] struct {
	Name      string
	Record    T
	IsDefault bool
}

// Named is a name-to-record registry for one entity category. At most one
// row is the default at any time; the first row created in an empty
// registry becomes the default.
type Named[T any] struct {
	store    *Store
	category string
	table    string
}

// NamedRegistry returns the registry for one entity category. The category
// must be one of the known database-backed categories.
func NamedRegistry[T any](s *Store, category string) (*Named[T], error) {
	table, ok := namedTables[category]
	if !ok {
		return nil, fmt.Errorf("unknown named entity category %q", category)
	}
	return &Named[T]{store: s, category: category, table: table}, nil
}

// Create inserts a new named record. It fails with AlreadyExistsError when
// the name is taken. The first record created in an empty registry is
// marked as the default.
func (n *Named[T]) Create(ctx context.Context, name string, record T) error {
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", n.category, err)
	}
	// One statement keeps the emptiness check and the insert atomic, and
	// leaves duplicate detection to the primary key so two racing creates
	// cannot both pass an application-side existence check.
	_, err = n.store.db.ExecContext(ctx,
		`INSERT INTO `+n.table+` (name, record, is_default)
		VALUES (?, ?, (SELECT COUNT(*) FROM `+n.table+`) = 0)`,
		name, blob)
	if isConstraintViolation(err) {
		return &AlreadyExistsError{Resource: n.category, Name: name}
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", n.category, err)
	}
	return nil
}

// Get returns the record with the given name, failing with NotFoundError
// when absent.
func (n *Named[T]) Get(ctx context.Context, name string) (NamedEntry[T], error) {
	return n.scanOne(n.store.db.QueryRowContext(ctx,
		`SELECT name, record, is_default FROM `+n.table+` WHERE name = ?`, name),
		name)
}

// GetDefault returns the default record, failing with NotFoundError when no
// default has ever been set.
func (n *Named[T]) GetDefault(ctx context.Context) (NamedEntry[T], error) {
	return n.scanOne(n.store.db.QueryRowContext(ctx,
		`SELECT name, record, is_default FROM `+n.table+` WHERE is_default = 1`),
		"")
}

// GetDefaultName returns the name of the default record.
func (n *Named[T]) GetDefaultName(ctx context.Context) (string, error) {
	entry, err := n.GetDefault(ctx)
	if err != nil {
		return "", err
	}
	return entry.Name, nil
}

// SetDefault marks the named record as the single default. The swap is one
// conditional statement, so a concurrent reader never observes two defaults
// or zero defaults once one has been established.
func (n *Named[T]) SetDefault(ctx context.Context, name string) error {
	tx, err := n.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+n.table+` WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", n.category, err)
	}
	if exists == 0 {
		return &NotFoundError{Resource: n.category, Name: name}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE `+n.table+` SET is_default = (name = ?)`, name); err != nil {
		return fmt.Errorf("failed to set default %s: %w", n.category, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to set default %s: %w", n.category, err)
	}
	return nil
}

// Delete removes the named record. Deleting the default does not elect a
// new one: callers must set a default explicitly. Deleting an absent name
// is not an error.
func (n *Named[T]) Delete(ctx context.Context, name string) error {
	_, err := n.store.db.ExecContext(ctx,
		`DELETE FROM `+n.table+` WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", n.category, err)
	}
	return nil
}

// List returns every row of the registry.
func (n *Named[T]) List(ctx context.Context) ([]NamedEntry[T], error) {
	rows, err := n.store.db.QueryContext(ctx,
		`SELECT name, record, is_default FROM `+n.table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rows: %w", n.category, err)
	}
	defer rows.Close()

	var entries []NamedEntry[T]
	for rows.Next() {
		var (
			entry     NamedEntry[T]
			blob      []byte
			isDefault int
		)
		if err := rows.Scan(&entry.Name, &blob, &isDefault); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", n.category, err)
		}
		if err := json.Unmarshal(blob, &entry.Record); err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", n.category, err)
		}
		entry.IsDefault = isDefault != 0
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (n *Named[T]) scanOne(row *sql.Row, name string) (NamedEntry[T], error) {
	var (
		entry     NamedEntry[T]
		blob      []byte
		isDefault int
	)
	err := row.Scan(&entry.Name, &blob, &isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return NamedEntry[T]{}, &NotFoundError{Resource: n.category, Name: name}
	}
	if err != nil {
		return NamedEntry[T]{}, fmt.Errorf("failed to get %s: %w", n.category, err)
	}
	if err := json.Unmarshal(blob, &entry.Record); err != nil {
		return NamedEntry[T]{}, fmt.Errorf("failed to decode %s record: %w", n.category, err)
	}
	entry.IsDefault = isDefault != 0
	return entry, nil
}
