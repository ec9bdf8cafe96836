// This file contains methods for resource policies: Cedar policy text
// stored per (resource, action) pair and evaluated by pkg/authz.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Policy is one stored authorization policy.
type Policy struct {
	Resource   string
	Action     string
	Expression string
}

// SetPolicy stores or replaces the policy for one resource and action.
func (s *Store) SetPolicy(ctx context.Context, resource, action, expression string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO resource_policies (resource, action, expression) VALUES (?, ?, ?)`,
		resource, action, expression)
	if err != nil {
		return fmt.Errorf("failed to set policy: %w", err)
	}
	return nil
}

// GetPolicy returns the policy for one resource and action, failing with
// NotFoundError when none is stored.
func (s *Store) GetPolicy(ctx context.Context, resource, action string) (Policy, error) {
	var p Policy
	err := s.db.QueryRowContext(ctx,
		`SELECT resource, action, expression FROM resource_policies WHERE resource = ? AND action = ?`,
		resource, action).Scan(&p.Resource, &p.Action, &p.Expression)
	if errors.Is(err, sql.ErrNoRows) {
		return Policy{}, &NotFoundError{Resource: "policy", Name: resource + "/" + action}
	}
	if err != nil {
		return Policy{}, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

// ListPolicies returns every stored policy.
func (s *Store) ListPolicies(ctx context.Context) ([]Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource, action, expression FROM resource_policies ORDER BY resource, action`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.Resource, &p.Action, &p.Expression); err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// DeletePolicy removes the policy for one resource and action. Deleting an
// absent policy is not an error.
func (s *Store) DeletePolicy(ctx context.Context, resource, action string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM resource_policies WHERE resource = ? AND action = ?`,
		resource, action)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	return nil
}
