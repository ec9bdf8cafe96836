package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository implements the three repositories in memory for tests.
type memoryRepository struct {
	mu           sync.Mutex
	histories    map[Identifier][]byte
	attributes   map[Identifier]AttributesEntry
	purposeKeys  map[string][]byte
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		histories:   make(map[Identifier][]byte),
		attributes:  make(map[Identifier]AttributesEntry),
		purposeKeys: make(map[string][]byte),
	}
}

func (m *memoryRepository) StoreIdentity(ctx context.Context, identifier Identifier, history ChangeHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histories[identifier]; ok {
		return assert.AnError
	}
	blob, err := history.Export()
	if err != nil {
		return err
	}
	m.histories[identifier] = blob
	return nil
}

func (m *memoryRepository) UpdateIdentity(ctx context.Context, identifier Identifier, history ChangeHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histories[identifier]; !ok {
		return assert.AnError
	}
	blob, err := history.Export()
	if err != nil {
		return err
	}
	m.histories[identifier] = blob
	return nil
}

func (m *memoryRepository) DeleteIdentity(ctx context.Context, identifier Identifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, identifier)
	return nil
}

func (m *memoryRepository) GetChangeHistoryOptional(ctx context.Context, identifier Identifier) (*ChangeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.histories[identifier]
	if !ok {
		return nil, nil
	}
	history, err := ImportChangeHistory(blob)
	if err != nil {
		return nil, err
	}
	return &history, nil
}

func (m *memoryRepository) GetChangeHistory(ctx context.Context, identifier Identifier) (ChangeHistory, error) {
	history, err := m.GetChangeHistoryOptional(ctx, identifier)
	if err != nil {
		return ChangeHistory{}, err
	}
	if history == nil {
		return ChangeHistory{}, assert.AnError
	}
	return *history, nil
}

func (m *memoryRepository) GetAttributes(ctx context.Context, subject Identifier) (*AttributesEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.attributes[subject]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *memoryRepository) ListAttributes(ctx context.Context) ([]IdentityAttributes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []IdentityAttributes
	for identifier, entry := range m.attributes {
		result = append(result, IdentityAttributes{Identifier: identifier, Entry: entry})
	}
	return result, nil
}

func (m *memoryRepository) PutAttributes(ctx context.Context, subject Identifier, entry AttributesEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributes[subject] = entry
	return nil
}

func (m *memoryRepository) PutAttributeValue(ctx context.Context, subject Identifier, name, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.attributes[subject]
	if entry.Attrs == nil {
		entry.Attrs = make(map[string][]byte)
	}
	entry.Attrs[string(name)] = value
	m.attributes[subject] = entry
	return nil
}

func (m *memoryRepository) DeleteAttributes(ctx context.Context, subject Identifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attributes, subject)
	return nil
}

func (m *memoryRepository) SetPurposeKey(ctx context.Context, identifier Identifier, purpose string, attestation []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purposeKeys[identifier.String()+"/"+purpose] = attestation
	return nil
}

func (m *memoryRepository) GetPurposeKey(ctx context.Context, identifier Identifier, purpose string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purposeKeys[identifier.String()+"/"+purpose], nil
}

func (m *memoryRepository) DeletePurposeKeys(ctx context.Context, identifier Identifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.purposeKeys {
		if len(key) > len(identifier) && key[:len(identifier)] == identifier.String() {
			delete(m.purposeKeys, key)
		}
	}
	return nil
}

func setupIdentities(t *testing.T) (*Identities, *memoryRepository) {
	t.Helper()
	repo := newMemoryRepository()
	identities, err := NewBuilder().
		WithVault(NewSoftwareVault()).
		WithChangeHistoryRepository(repo).
		WithAttributesRepository(repo).
		WithPurposeKeysRepository(repo).
		Build()
	require.NoError(t, err)
	return identities, repo
}

func TestBuilderRequiresVaultAndRepository(t *testing.T) {
	_, err := NewBuilder().Build()
	assert.Error(t, err)

	_, err = NewBuilder().WithVault(NewSoftwareVault()).Build()
	assert.Error(t, err)

	_, err = NewBuilder().
		WithVault(NewSoftwareVault()).
		WithChangeHistoryRepository(newMemoryRepository()).
		Build()
	assert.NoError(t, err)
}

func TestCreateIdentity(t *testing.T) {
	identities, _ := setupIdentities(t)
	ctx := context.Background()

	ident, err := identities.CreateIdentity(ctx)
	require.NoError(t, err)

	assert.Regexp(t, `^I[0-9a-f]{40}$`, ident.Identifier().String())
	assert.Len(t, ident.ChangeHistory().Changes, 1)

	// The stored identity verifies end to end.
	loaded, err := identities.GetIdentity(ctx, ident.Identifier())
	require.NoError(t, err)
	assert.Equal(t, ident.Identifier(), loaded.Identifier())
	assert.True(t, ident.ChangeHistory().Equal(loaded.ChangeHistory()))
}

func TestRotateIdentityKeepsIdentifier(t *testing.T) {
	identities, _ := setupIdentities(t)
	ctx := context.Background()

	ident, err := identities.CreateIdentity(ctx)
	require.NoError(t, err)
	originalKey := ident.PublicKey()

	rotated, err := identities.RotateIdentity(ctx, ident.Identifier())
	require.NoError(t, err)

	assert.Equal(t, ident.Identifier(), rotated.Identifier())
	assert.Len(t, rotated.ChangeHistory().Changes, 2)
	assert.NotEqual(t, originalKey, rotated.PublicKey())

	// The extended chain still verifies.
	loaded, err := identities.GetIdentity(ctx, ident.Identifier())
	require.NoError(t, err)
	assert.Len(t, loaded.ChangeHistory().Changes, 2)
}

func TestExportImportRoundTrip(t *testing.T) {
	source, _ := setupIdentities(t)
	ctx := context.Background()

	ident, err := source.CreateIdentity(ctx)
	require.NoError(t, err)
	_, err = source.RotateIdentity(ctx, ident.Identifier())
	require.NoError(t, err)

	exported, err := source.ExportIdentity(ctx, ident.Identifier())
	require.NoError(t, err)

	// Import into a completely separate service.
	destination, _ := setupIdentities(t)
	imported, err := destination.ImportIdentity(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, ident.Identifier(), imported.Identifier())

	reExported, err := destination.ExportIdentity(ctx, ident.Identifier())
	require.NoError(t, err)
	assert.Equal(t, exported, reExported)
}

func TestImportRejectsTamperedChain(t *testing.T) {
	source, _ := setupIdentities(t)
	ctx := context.Background()

	ident, err := source.CreateIdentity(ctx)
	require.NoError(t, err)

	history := ident.ChangeHistory()
	history.Changes[0].SelfSignature[0] ^= 0xff
	tampered, err := history.Export()
	require.NoError(t, err)

	destination, _ := setupIdentities(t)
	_, err = destination.ImportIdentity(ctx, tampered)
	assert.ErrorContains(t, err, "verification failed")
}

func TestImportExistingIdentityUpdates(t *testing.T) {
	source, _ := setupIdentities(t)
	ctx := context.Background()

	ident, err := source.CreateIdentity(ctx)
	require.NoError(t, err)
	exported, err := source.ExportIdentity(ctx, ident.Identifier())
	require.NoError(t, err)

	destination, _ := setupIdentities(t)
	_, err = destination.ImportIdentity(ctx, exported)
	require.NoError(t, err)

	// Rotate at the source, then re-import the longer chain.
	_, err = source.RotateIdentity(ctx, ident.Identifier())
	require.NoError(t, err)
	longer, err := source.ExportIdentity(ctx, ident.Identifier())
	require.NoError(t, err)

	imported, err := destination.ImportIdentity(ctx, longer)
	require.NoError(t, err)
	assert.Len(t, imported.ChangeHistory().Changes, 2)
}

func TestParseIdentifier(t *testing.T) {
	valid := "I" + "0123456789abcdef0123456789abcdef01234567"
	identifier, err := ParseIdentifier(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, identifier.String())

	for _, invalid := range []string{
		"",
		"0123456789abcdef0123456789abcdef01234567",
		"I0123456789ABCDEF0123456789abcdef01234567",
		"I0123",
		"X0123456789abcdef0123456789abcdef01234567",
	} {
		_, err := ParseIdentifier(invalid)
		assert.Error(t, err, "expected %q to be rejected", invalid)
	}
}

func TestPurposeKeyGetOrCreate(t *testing.T) {
	identities, _ := setupIdentities(t)
	ctx := context.Background()

	ident, err := identities.CreateIdentity(ctx)
	require.NoError(t, err)

	first, err := identities.PurposeKeys().GetOrCreate(ctx, ident.Identifier(), PurposeCredentialSigning)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	// A second call returns the stored key, not a fresh one.
	second, err := identities.PurposeKeys().GetOrCreate(ctx, ident.Identifier(), PurposeCredentialSigning)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different purpose gets its own key.
	channel, err := identities.PurposeKeys().GetOrCreate(ctx, ident.Identifier(), PurposeSecureChannel)
	require.NoError(t, err)
	assert.NotEqual(t, first, channel)

	attestation, err := identities.PurposeKeys().Attestation(ctx, ident.Identifier(), PurposeCredentialSigning)
	require.NoError(t, err)
	require.NotNil(t, attestation)
	assert.Equal(t, first, attestation.Data.PublicKey)
	assert.Equal(t, PurposeCredentialSigning, attestation.Data.Purpose)
}
