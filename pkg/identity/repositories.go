package identity

import "context"

// ChangeHistoryRepository persists identity change histories keyed by
// identifier. The SQLite implementation lives in pkg/store.
type ChangeHistoryRepository interface {
	// StoreIdentity inserts a new identity row. It fails with an
	// already-exists error if the identifier is already stored.
	StoreIdentity(ctx context.Context, identifier Identifier, history ChangeHistory) error

	// UpdateIdentity replaces the stored change history after a rotation.
	// The identifier itself never changes.
	UpdateIdentity(ctx context.Context, identifier Identifier, history ChangeHistory) error

	// DeleteIdentity removes the identity and, in the same transaction,
	// its attributes and purpose keys.
	DeleteIdentity(ctx context.Context, identifier Identifier) error

	// GetChangeHistory returns the stored change history, failing with a
	// not-found error when the identifier is absent.
	GetChangeHistory(ctx context.Context, identifier Identifier) (ChangeHistory, error)

	// GetChangeHistoryOptional returns the stored change history, or nil
	// without error when the identifier is absent.
	GetChangeHistoryOptional(ctx context.Context, identifier Identifier) (*ChangeHistory, error)
}

// AttributesRepository persists attested attribute entries, one per subject.
type AttributesRepository interface {
	// GetAttributes returns the subject's entry, or nil when there is none.
	GetAttributes(ctx context.Context, subject Identifier) (*AttributesEntry, error)

	// ListAttributes returns every (subject, entry) pair. Order is not
	// significant.
	ListAttributes(ctx context.Context) ([]IdentityAttributes, error)

	// PutAttributes replaces the subject's entry wholesale.
	PutAttributes(ctx context.Context, subject Identifier, entry AttributesEntry) error

	// PutAttributeValue inserts or overwrites a single name/value pair in
	// the subject's entry, refreshing Added and marking the entry
	// self-attested. Concurrent calls for the same subject are serialized
	// through a database transaction so neither write is lost.
	PutAttributeValue(ctx context.Context, subject Identifier, name, value []byte) error

	// DeleteAttributes removes the subject's entry. Deleting an absent
	// entry is not an error.
	DeleteAttributes(ctx context.Context, subject Identifier) error
}

// PurposeKeysRepository persists purpose-key attestations, keyed by the
// owning identity and the purpose label. It has the same shape as the other
// repositories and shares their store.
type PurposeKeysRepository interface {
	// SetPurposeKey stores or replaces the attestation for one purpose.
	SetPurposeKey(ctx context.Context, identifier Identifier, purpose string, attestation []byte) error

	// GetPurposeKey returns the stored attestation, or nil when absent.
	GetPurposeKey(ctx context.Context, identifier Identifier, purpose string) ([]byte, error)

	// DeletePurposeKeys removes every purpose key of the identity.
	DeletePurposeKeys(ctx context.Context, identifier Identifier) error
}
