package store

import (
	"context"
	"testing"
)

func TestPolicyCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("SetPolicy", func(t *testing.T) {
		err := store.SetPolicy(ctx, "tcp-outlet", "handle_message",
			`permit (principal, action, resource) when { principal.role == "member" };`)
		if err != nil {
			t.Fatalf("SetPolicy failed: %v", err)
		}

		policy, err := store.GetPolicy(ctx, "tcp-outlet", "handle_message")
		if err != nil {
			t.Fatalf("GetPolicy failed: %v", err)
		}
		if policy.Resource != "tcp-outlet" || policy.Action != "handle_message" {
			t.Errorf("unexpected policy key: %s/%s", policy.Resource, policy.Action)
		}
	})

	t.Run("SetPolicy_Replaces", func(t *testing.T) {
		err := store.SetPolicy(ctx, "tcp-outlet", "handle_message",
			`forbid (principal, action, resource);`)
		if err != nil {
			t.Fatalf("SetPolicy failed: %v", err)
		}
		policy, err := store.GetPolicy(ctx, "tcp-outlet", "handle_message")
		if err != nil {
			t.Fatalf("GetPolicy failed: %v", err)
		}
		if policy.Expression != `forbid (principal, action, resource);` {
			t.Errorf("expected replaced expression, got '%s'", policy.Expression)
		}
	})

	t.Run("GetPolicy_NotFound", func(t *testing.T) {
		_, err := store.GetPolicy(ctx, "tcp-outlet", "unknown_action")
		if !IsNotFound(err) {
			t.Errorf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("ListPolicies", func(t *testing.T) {
		if err := store.SetPolicy(ctx, "api", "read", `permit (principal, action, resource);`); err != nil {
			t.Fatalf("SetPolicy failed: %v", err)
		}
		policies, err := store.ListPolicies(ctx)
		if err != nil {
			t.Fatalf("ListPolicies failed: %v", err)
		}
		if len(policies) != 2 {
			t.Fatalf("expected 2 policies, got %d", len(policies))
		}
		if policies[0].Resource != "api" {
			t.Errorf("expected policies ordered by resource, got '%s' first", policies[0].Resource)
		}
	})

	t.Run("DeletePolicy", func(t *testing.T) {
		if err := store.DeletePolicy(ctx, "api", "read"); err != nil {
			t.Fatalf("DeletePolicy failed: %v", err)
		}
		_, err := store.GetPolicy(ctx, "api", "read")
		if !IsNotFound(err) {
			t.Errorf("expected NotFoundError after delete, got %v", err)
		}

		// Deleting again is a no-op.
		if err := store.DeletePolicy(ctx, "api", "read"); err != nil {
			t.Errorf("second delete failed: %v", err)
		}
	})
}

func TestPurposeKeys(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	identifier, _ := testHistory(t, 20)

	raw, err := store.GetPurposeKey(ctx, identifier, "credential_signing")
	if err != nil {
		t.Fatalf("GetPurposeKey failed: %v", err)
	}
	if raw != nil {
		t.Error("expected nil attestation for unknown purpose key")
	}

	if err := store.SetPurposeKey(ctx, identifier, "credential_signing", []byte{1, 2, 3}); err != nil {
		t.Fatalf("SetPurposeKey failed: %v", err)
	}
	raw, err = store.GetPurposeKey(ctx, identifier, "credential_signing")
	if err != nil {
		t.Fatalf("GetPurposeKey failed: %v", err)
	}
	if string(raw) != string([]byte{1, 2, 3}) {
		t.Errorf("unexpected attestation blob: %v", raw)
	}

	// Replacement for the same purpose.
	if err := store.SetPurposeKey(ctx, identifier, "credential_signing", []byte{4, 5}); err != nil {
		t.Fatalf("SetPurposeKey failed: %v", err)
	}
	raw, _ = store.GetPurposeKey(ctx, identifier, "credential_signing")
	if string(raw) != string([]byte{4, 5}) {
		t.Errorf("expected replaced attestation, got %v", raw)
	}

	if err := store.DeletePurposeKeys(ctx, identifier); err != nil {
		t.Fatalf("DeletePurposeKeys failed: %v", err)
	}
	raw, _ = store.GetPurposeKey(ctx, identifier, "credential_signing")
	if raw != nil {
		t.Error("expected purpose keys gone after delete")
	}
}
