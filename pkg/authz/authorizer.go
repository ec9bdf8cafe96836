// Package authz evaluates attribute-based access control over the trust
// state. Policies are Cedar expressions stored per (resource, action) in
// the relational store; principals are identities whose attested attributes
// become Cedar entity attributes.
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cedar-policy/cedar-go"

	"github.com/Rage-cmd/ockam/pkg/identity"
	"github.com/Rage-cmd/ockam/pkg/store"
)

// Config contains options for the Authorizer.
type Config struct {
	// Logger for structured decision logging. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Authorizer wraps the Cedar policy engine over the stored policy set.
// All authorization decisions flow through this single component.
type Authorizer struct {
	store      *store.Store
	attributes identity.AttributesRepository
	logger     *slog.Logger
}

// NewAuthorizer creates an authorizer reading policies and principal
// attributes from the given store.
func NewAuthorizer(db *store.Store, attributes identity.AttributesRepository, cfg Config) *Authorizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{store: db, attributes: attributes, logger: logger}
}

// Request is one authorization question: may this principal perform this
// action on this resource.
type Request struct {
	Principal identity.Identifier
	Action    string
	Resource  string
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed  bool
	PolicyID string
	Duration time.Duration
}

// Authorize evaluates the stored policy for the request's resource and
// action against the principal's attested attributes. A resource/action
// pair with no stored policy is denied.
func (a *Authorizer) Authorize(ctx context.Context, req Request) (Decision, error) {
	start := time.Now()

	policy, err := a.store.GetPolicy(ctx, req.Resource, req.Action)
	if err != nil {
		if store.IsNotFound(err) {
			a.logDecision(req, Decision{Allowed: false, Duration: time.Since(start)})
			return Decision{Allowed: false, Duration: time.Since(start)}, nil
		}
		return Decision{}, err
	}

	policies, err := cedar.NewPolicySetFromBytes("policies.cedar", []byte(policy.Expression))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to parse policy for %s/%s: %w", req.Resource, req.Action, err)
	}

	entities, err := a.buildEntities(ctx, req)
	if err != nil {
		return Decision{}, err
	}

	cedarReq := cedar.Request{
		Principal: principalUID(req.Principal),
		Action:    cedar.NewEntityUID("Action", cedar.String(req.Action)),
		Resource:  cedar.NewEntityUID("Resource", cedar.String(req.Resource)),
		Context:   cedar.NewRecord(cedar.RecordMap{}),
	}
	decision, diagnostic := cedar.Authorize(policies, entities, cedarReq)

	policyID := ""
	if len(diagnostic.Reasons) > 0 {
		policyID = string(diagnostic.Reasons[0].PolicyID)
	}
	result := Decision{
		Allowed:  decision == cedar.Allow,
		PolicyID: policyID,
		Duration: time.Since(start),
	}
	a.logDecision(req, result)
	return result, nil
}

func principalUID(principal identity.Identifier) cedar.EntityUID {
	return cedar.NewEntityUID("Identity", cedar.String(principal.String()))
}

// buildEntities constructs the principal entity with its attested
// attributes. Attribute values are exposed to policies as strings; values
// that are not valid UTF-8 are skipped.
func (a *Authorizer) buildEntities(ctx context.Context, req Request) (cedar.EntityGetter, error) {
	attrs := cedar.RecordMap{}
	entry, err := a.attributes.GetAttributes(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	if entry != nil && !entry.IsExpired(time.Now()) {
		for name, value := range entry.Attrs {
			if strings.ToValidUTF8(string(value), "") != string(value) {
				continue
			}
			attrs[cedar.String(name)] = cedar.String(string(value))
		}
	}
	principal := cedar.Entity{
		UID:        principalUID(req.Principal),
		Parents:    cedar.NewEntityUIDSet(),
		Attributes: cedar.NewRecord(attrs),
	}
	resource := cedar.Entity{
		UID:     cedar.NewEntityUID("Resource", cedar.String(req.Resource)),
		Parents: cedar.NewEntityUIDSet(),
	}
	return cedar.EntityMap{
		principal.UID: principal,
		resource.UID:  resource,
	}, nil
}

// logDecision emits one structured log line per decision.
func (a *Authorizer) logDecision(req Request, result Decision) {
	a.logger.Info("authorization decision",
		"principal", req.Principal.String(),
		"action", req.Action,
		"resource", req.Resource,
		"allowed", result.Allowed,
		"policy_id", result.PolicyID,
		"duration_ms", result.Duration.Milliseconds(),
	)
}
