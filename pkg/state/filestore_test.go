package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rage-cmd/ockam/pkg/store"
)

func setupFileRegistry(t *testing.T) *FileRegistry[SpaceConfig] {
	t.Helper()
	registry, err := NewFileRegistry[SpaceConfig](t.TempDir(), "space", "spaces")
	require.NoError(t, err)
	return registry
}

func TestFileRegistryCreateAndGet(t *testing.T) {
	registry := setupFileRegistry(t)

	require.NoError(t, registry.Create("s1", SpaceConfig{ID: "id-1", Name: "s1"}))

	got, err := registry.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)

	err = registry.Create("s1", SpaceConfig{})
	assert.True(t, store.IsAlreadyExists(err), "expected AlreadyExistsError, got %v", err)
}

func TestFileRegistryGetNotFound(t *testing.T) {
	registry := setupFileRegistry(t)

	_, err := registry.Get("missing")
	assert.True(t, store.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestFileRegistryRejectsBadNames(t *testing.T) {
	registry := setupFileRegistry(t)

	for _, name := range []string{"a/b", `a\b`, ".", "..", "../escape"} {
		err := registry.Create(name, SpaceConfig{})
		assert.Error(t, err, "expected name %q to be rejected", name)
	}

	err := registry.Create("", SpaceConfig{})
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestFileRegistryCorruptRecord(t *testing.T) {
	registry := setupFileRegistry(t)

	require.NoError(t, os.WriteFile(filepath.Join(registry.Dir(), "bad.json"), []byte("{not json"), 0600))

	_, err := registry.Get("bad")
	var invalid *InvalidDataError
	assert.ErrorAs(t, err, &invalid)
}

func TestFileRegistryDefaults(t *testing.T) {
	registry := setupFileRegistry(t)

	_, err := registry.GetDefaultName()
	assert.True(t, store.IsNotFound(err), "expected NotFoundError, got %v", err)

	// First record created becomes the default.
	require.NoError(t, registry.Create("s1", SpaceConfig{ID: "id-1"}))
	name, err := registry.GetDefaultName()
	require.NoError(t, err)
	assert.Equal(t, "s1", name)

	// Later records do not steal it.
	require.NoError(t, registry.Create("s2", SpaceConfig{ID: "id-2"}))
	name, err = registry.GetDefaultName()
	require.NoError(t, err)
	assert.Equal(t, "s1", name)

	require.NoError(t, registry.SetDefault("s2"))
	got, err := registry.GetDefault()
	require.NoError(t, err)
	assert.Equal(t, "id-2", got.ID)

	// The default must point at an existing record.
	err = registry.SetDefault("missing")
	assert.True(t, store.IsNotFound(err), "expected NotFoundError, got %v", err)
}

func TestFileRegistryDelete(t *testing.T) {
	registry := setupFileRegistry(t)

	require.NoError(t, registry.Create("s1", SpaceConfig{ID: "id-1"}))
	require.NoError(t, registry.Delete("s1"))

	_, err := registry.Get("s1")
	assert.True(t, store.IsNotFound(err))

	// Deleting an absent record is a no-op.
	require.NoError(t, registry.Delete("s1"))
}

func TestFileRegistryList(t *testing.T) {
	registry := setupFileRegistry(t)

	records, err := registry.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, registry.Create("s1", SpaceConfig{ID: "id-1"}))
	require.NoError(t, registry.Create("s2", SpaceConfig{ID: "id-2"}))

	records, err = registry.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id-1", records["s1"].ID)
	assert.Equal(t, "id-2", records["s2"].ID)
}
