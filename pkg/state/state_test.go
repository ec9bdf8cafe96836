package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rage-cmd/ockam/pkg/identity"
	"github.com/Rage-cmd/ockam/pkg/store"
)

func setupState(t *testing.T) *CliState {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "state")
	s, err := InitializeAt(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitializeAtCreatesLayout(t *testing.T) {
	s := setupState(t)

	for _, sub := range []string{
		"vaults", filepath.Join("vaults", "data"), "nodes", "spaces",
		"projects", "trust_contexts", "users_info", "credentials", "defaults",
	} {
		info, err := os.Stat(filepath.Join(s.Dir(), sub))
		require.NoError(t, err, "expected directory %s", sub)
		assert.True(t, info.IsDir())
	}
	_, err := os.Stat(s.DatabasePath())
	assert.NoError(t, err, "expected database file")
	_, err = os.Stat(filepath.Join(s.Dir(), ConfigFileName))
	assert.NoError(t, err, "expected config file")
}

func TestInitializeAtIsIdempotent(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()

	require.NoError(t, s.Vaults.Create(ctx, "v1", VaultConfig{Path: "p"}))
	require.NoError(t, s.Close())

	again, err := InitializeAt(s.Dir())
	require.NoError(t, err)
	defer again.Close()

	entry, err := again.Vaults.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "p", entry.Record.Path)
}

func TestInitializeAtRejectsEmptyPath(t *testing.T) {
	_, err := InitializeAt("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestDefaultDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("OCKAM_HOME", "/tmp/custom-home")
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-home", dir)

	t.Setenv("OCKAM_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	dir, err = DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ockam"), dir)
}

func TestResetClearsEverything(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()

	require.NoError(t, s.Vaults.Create(ctx, "v1", VaultConfig{}))
	require.NoError(t, s.Spaces.Create("s1", SpaceConfig{ID: "id-1"}))

	fresh, err := s.Reset()
	require.NoError(t, err)
	defer fresh.Close()

	_, err = fresh.Vaults.Get(ctx, "v1")
	assert.True(t, store.IsNotFound(err), "expected vault gone after reset, got %v", err)
	_, err = fresh.Spaces.Get("s1")
	assert.True(t, store.IsNotFound(err), "expected space gone after reset, got %v", err)
}

func TestBackupAndReset(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()

	require.NoError(t, s.Vaults.Create(ctx, "v1", VaultConfig{Path: "p"}))

	fresh, err := s.BackupAndReset()
	require.NoError(t, err)
	defer fresh.Close()

	// The fresh state is empty.
	_, err = fresh.Vaults.Get(ctx, "v1")
	assert.True(t, store.IsNotFound(err))

	// The backup holds the old contents and can be opened as a state.
	backup := s.Dir() + BackupSuffix
	restored, err := InitializeAt(backup)
	require.NoError(t, err)
	defer restored.Close()

	entry, err := restored.Vaults.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "p", entry.Record.Path)
}

func TestBackupAndResetReplacesPriorBackup(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()

	require.NoError(t, s.Vaults.Create(ctx, "first", VaultConfig{}))
	second, err := s.BackupAndReset()
	require.NoError(t, err)

	require.NoError(t, second.Vaults.Create(ctx, "second", VaultConfig{}))
	third, err := second.BackupAndReset()
	require.NoError(t, err)
	defer third.Close()

	restored, err := InitializeAt(s.Dir() + BackupSuffix)
	require.NoError(t, err)
	defer restored.Close()

	_, err = restored.Vaults.Get(ctx, "first")
	assert.True(t, store.IsNotFound(err), "prior backup should have been replaced")
	_, err = restored.Vaults.Get(ctx, "second")
	assert.NoError(t, err)
}

func TestDeleteLeavesForeignFiles(t *testing.T) {
	s := setupState(t)

	foreign := filepath.Join(s.Dir(), "notes.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("keep me"), 0600))

	require.NoError(t, s.Delete())

	// Known state files are gone, the foreign file and therefore the
	// directory itself survive.
	_, err := os.Stat(s.DatabasePath())
	assert.True(t, os.IsNotExist(err), "expected database removed")
	_, err = os.Stat(filepath.Join(s.Dir(), "vaults"))
	assert.True(t, os.IsNotExist(err), "expected vaults directory removed")
	_, err = os.Stat(foreign)
	assert.NoError(t, err, "foreign file must survive delete")
}

func TestDeleteRemovesEmptyRoot(t *testing.T) {
	s := setupState(t)

	require.NoError(t, s.Delete())

	_, err := os.Stat(s.Dir())
	assert.True(t, os.IsNotExist(err), "expected empty root removed")
}

func TestNodePaths(t *testing.T) {
	s := setupState(t)

	stdout, err := s.NodeStdoutLog("n1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "nodes", "n1", "stdout.log"), stdout)

	stderr, err := s.NodeStderrLog("n1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "nodes", "n1", "stderr.log"), stderr)

	lock, err := s.NodeLockFile("n1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "nodes", "n1", "node.lock"), lock)

	info, err := os.Stat(filepath.Join(s.Dir(), "nodes", "n1"))
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "node directory is created on demand")

	_, err = s.NodeDir("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestIsEnrolled(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()
	vault := identity.NewSoftwareVault()

	t.Run("NoDefaultIdentity", func(t *testing.T) {
		enrolled, err := s.IsEnrolled(ctx)
		require.NoError(t, err)
		assert.False(t, enrolled)
	})

	ident, err := s.CreateNamedIdentity(ctx, vault, "me")
	require.NoError(t, err)

	t.Run("IdentityNotEnrolled", func(t *testing.T) {
		enrolled, err := s.IsEnrolled(ctx)
		require.NoError(t, err)
		assert.False(t, enrolled)
	})

	require.NoError(t, s.Store().SetIdentityEnrolled(ctx, ident.Identifier()))

	t.Run("EnrolledButNoDefaultSpace", func(t *testing.T) {
		_, err := s.IsEnrolled(ctx)
		var invalid *InvalidOperationError
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Reason, "default space")
	})

	require.NoError(t, s.Spaces.Create("s1", SpaceConfig{ID: "id-1"}))

	t.Run("EnrolledButNoDefaultProject", func(t *testing.T) {
		_, err := s.IsEnrolled(ctx)
		var invalid *InvalidOperationError
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Reason, "default project")
	})

	require.NoError(t, s.Projects.Create("p1", ProjectConfig{ID: "id-2", SpaceID: "id-1"}))

	t.Run("FullyEnrolled", func(t *testing.T) {
		enrolled, err := s.IsEnrolled(ctx)
		require.NoError(t, err)
		assert.True(t, enrolled)
	})
}

func TestCreateVaultState(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()

	t.Run("NoNameNoDefaultCreatesFresh", func(t *testing.T) {
		entry, err := s.CreateVaultState(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, entry.Name)
		assert.Contains(t, entry.Record.Path, filepath.Join("vaults", "data"))
		assert.True(t, entry.IsDefault, "first vault becomes the default")
	})

	t.Run("NoNameReturnsDefault", func(t *testing.T) {
		def, err := s.Vaults.GetDefault(ctx)
		require.NoError(t, err)

		entry, err := s.CreateVaultState(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, def.Name, entry.Name)
	})

	t.Run("NamedVault", func(t *testing.T) {
		require.NoError(t, s.Vaults.Create(ctx, "named", VaultConfig{Path: "x"}))
		entry, err := s.CreateVaultState(ctx, "named")
		require.NoError(t, err)
		assert.Equal(t, "named", entry.Name)
	})

	t.Run("UnknownName", func(t *testing.T) {
		_, err := s.CreateVaultState(ctx, "missing")
		assert.True(t, store.IsNotFound(err), "expected NotFoundError, got %v", err)
	})
}

func TestNamedIdentityLifecycle(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()
	vault := identity.NewSoftwareVault()

	ident, err := s.CreateNamedIdentity(ctx, vault, "me")
	require.NoError(t, err)

	t.Run("GetNamedIdentity", func(t *testing.T) {
		loaded, err := s.GetNamedIdentity(ctx, vault, "me")
		require.NoError(t, err)
		assert.Equal(t, ident.Identifier(), loaded.Identifier())
	})

	t.Run("NameCollisionLeavesNoOrphan", func(t *testing.T) {
		_, err := s.CreateNamedIdentity(ctx, vault, "me")
		assert.True(t, store.IsAlreadyExists(err), "expected AlreadyExistsError, got %v", err)

		// Exactly one change history remains: the collision's chain was
		// rolled back.
		all, err := s.Store().ListAttributes(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		history, err := s.Store().GetChangeHistoryOptional(ctx, ident.Identifier())
		require.NoError(t, err)
		assert.NotNil(t, history)
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		require.NoError(t, s.Store().PutAttributeValue(ctx, ident.Identifier(), []byte("role"), []byte("admin")))
		require.NoError(t, s.DeleteNamedIdentity(ctx, "me"))

		history, err := s.Store().GetChangeHistoryOptional(ctx, ident.Identifier())
		require.NoError(t, err)
		assert.Nil(t, history, "change history must be deleted with the last name")

		entry, err := s.Store().GetAttributes(ctx, ident.Identifier())
		require.NoError(t, err)
		assert.Nil(t, entry, "attributes must be deleted with the identity")
	})

	t.Run("DeleteAbsentIsNoOp", func(t *testing.T) {
		require.NoError(t, s.DeleteNamedIdentity(ctx, "me"))
	})
}

func TestDeleteNamedIdentityKeepsSharedChain(t *testing.T) {
	s := setupState(t)
	ctx := context.Background()
	vault := identity.NewSoftwareVault()

	ident, err := s.CreateNamedIdentity(ctx, vault, "primary")
	require.NoError(t, err)
	require.NoError(t, s.Identities.Create(ctx, "alias", ident.Identifier()))

	require.NoError(t, s.DeleteNamedIdentity(ctx, "alias"))

	history, err := s.Store().GetChangeHistoryOptional(ctx, ident.Identifier())
	require.NoError(t, err)
	assert.NotNil(t, history, "chain still referenced by another name must survive")
}
