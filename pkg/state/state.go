// Package state implements the trust-state orchestrator: it owns the root
// directory of the local trust state, opens the shared relational store,
// initializes every named-entity registry, and drives whole-directory
// lifecycle operations (initialize, reset, backup-and-reset, delete).
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Rage-cmd/ockam/pkg/identity"
	"github.com/Rage-cmd/ockam/pkg/store"
)

// VaultConfig is the stored record of a named vault. Path points at the
// vault's secondary storage file under vaults/data/.
type VaultConfig struct {
	Path string `json:"path"`
}

// NodeConfig is the stored record of a named node.
type NodeConfig struct {
	Verbose bool `json:"verbose,omitempty"`
}

// SpaceConfig is the raw record of a space populated during enrollment.
type SpaceConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectConfig is the raw record of a project populated during enrollment.
type ProjectConfig struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SpaceID string `json:"space_id"`
}

// TrustContextConfig names an authority identity whose credentials are
// trusted in this context.
type TrustContextConfig struct {
	ID        string `json:"id"`
	Authority string `json:"authority,omitempty"`
}

// UserInfo is the profile of an enrolled user.
type UserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// CredentialRecord is a stored credential together with its issuer.
type CredentialRecord struct {
	Issuer     string `json:"issuer"`
	Credential string `json:"credential"`
}

// configFile is the root-level config.json payload.
type configFile struct {
	Version int `json:"version"`
}

// configVersion is the root config format written by this build.
const configVersion = 1

// CliState is the trust-state orchestrator. It is constructed once per
// process and handed out to everything that needs durable knowledge of
// identities, defaults, and enrollment.
type CliState struct {
	dir    string
	db     *store.Store
	logger *slog.Logger

	// Database-backed registries.
	Identities *store.Named[identity.Identifier]
	Vaults     *store.Named[VaultConfig]
	Nodes      *store.Named[NodeConfig]

	// File-backed registries, one JSON file per record.
	Spaces        *FileRegistry[SpaceConfig]
	Projects      *FileRegistry[ProjectConfig]
	TrustContexts *FileRegistry[TrustContextConfig]
	UsersInfo     *FileRegistry[UserInfo]
	Credentials   *FileRegistry[CredentialRecord]
}

// categoryDirs are the per-category sub-directories of a trust-state root.
// delete and reset remove exactly these.
var categoryDirs = []string{
	"vaults",
	filepath.Join("vaults", "data"),
	"nodes",
	"spaces",
	"projects",
	"trust_contexts",
	"users_info",
	"credentials",
	"defaults",
}

// Initialize resolves the default root directory and initializes the trust
// state there. There should be one call per process: initialization also
// runs store schema migration.
func Initialize() (*CliState, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return InitializeAt(dir)
}

// InitializeAt initializes the trust state at the given root directory,
// creating it and every registry if needed. Directory creation is
// idempotent, so re-initializing an existing state only loads it.
func InitializeAt(dir string) (*CliState, error) {
	if dir == "" {
		return nil, ErrEmptyPath
	}
	for _, sub := range categoryDirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := store.Open(filepath.Join(dir, store.DatabaseName))
	if err != nil {
		return nil, err
	}

	s := &CliState{dir: dir, db: db, logger: slog.Default()}
	if s.Identities, err = store.NamedRegistry[identity.Identifier](db, "identity"); err != nil {
		return nil, err
	}
	if s.Vaults, err = store.NamedRegistry[VaultConfig](db, "vault"); err != nil {
		return nil, err
	}
	if s.Nodes, err = store.NamedRegistry[NodeConfig](db, "node"); err != nil {
		return nil, err
	}
	if s.Spaces, err = NewFileRegistry[SpaceConfig](dir, "space", "spaces"); err != nil {
		return nil, err
	}
	if s.Projects, err = NewFileRegistry[ProjectConfig](dir, "project", "projects"); err != nil {
		return nil, err
	}
	if s.TrustContexts, err = NewFileRegistry[TrustContextConfig](dir, "trust_context", "trust_contexts"); err != nil {
		return nil, err
	}
	if s.UsersInfo, err = NewFileRegistry[UserInfo](dir, "user_info", "users_info"); err != nil {
		return nil, err
	}
	if s.Credentials, err = NewFileRegistry[CredentialRecord](dir, "credential", "credentials"); err != nil {
		return nil, err
	}
	if err := s.writeConfigIfMissing(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CliState) writeConfigIfMissing() error {
	path := filepath.Join(s.dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	blob, err := json.Marshal(configFile{Version: configVersion})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Dir returns the root trust-state directory.
func (s *CliState) Dir() string { return s.dir }

// Store returns the shared relational store.
func (s *CliState) Store() *store.Store { return s.db }

// DatabasePath returns the path of the relational store file.
func (s *CliState) DatabasePath() string {
	return filepath.Join(s.dir, store.DatabaseName)
}

// Close closes the underlying store.
func (s *CliState) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NodeDir returns (and creates) the state directory of one node.
func (s *CliState) NodeDir(nodeName string) (string, error) {
	if nodeName == "" {
		return "", ErrEmptyPath
	}
	path := filepath.Join(s.dir, "nodes", nodeName)
	if err := os.MkdirAll(path, 0700); err != nil {
		return "", fmt.Errorf("failed to create node directory: %w", err)
	}
	return path, nil
}

// NodeStdoutLog returns the stdout log path of one node.
func (s *CliState) NodeStdoutLog(nodeName string) (string, error) {
	dir, err := s.NodeDir(nodeName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stdout.log"), nil
}

// NodeStderrLog returns the stderr log path of one node.
func (s *CliState) NodeStderrLog(nodeName string) (string, error) {
	dir, err := s.NodeDir(nodeName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stderr.log"), nil
}

// NodeLockFile returns the advisory lock file path reserved for one node.
// An out-of-process supervisor takes this lock; the orchestrator never
// removes it outside whole-directory lifecycle operations.
func (s *CliState) NodeLockFile(nodeName string) (string, error) {
	dir, err := s.NodeDir(nodeName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "node.lock"), nil
}

// Reset deletes every category's storage plus the store file and
// re-initializes the same root directory in place.
func (s *CliState) Reset() (*CliState, error) {
	s.logger.Info("resetting trust state", "dir", s.dir)
	if err := s.Close(); err != nil {
		return nil, fmt.Errorf("failed to close store: %w", err)
	}
	DeleteAt(s.dir)
	return InitializeAt(s.dir)
}

// BackupAndReset moves the entire root directory to a sibling backup path,
// clearing any prior backup first, then initializes a fresh root in its
// place. The original state is only removed after the backup move
// succeeded, so a failure while preparing the backup leaves it untouched.
func (s *CliState) BackupAndReset() (*CliState, error) {
	backup, err := backupDir(s.dir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("backing up trust state", "dir", s.dir, "backup", backup)
	if err := s.Close(); err != nil {
		return nil, fmt.Errorf("failed to close store: %w", err)
	}

	if err := os.RemoveAll(backup); err != nil {
		return nil, fmt.Errorf("failed to clear previous backup: %w", err)
	}
	if err := os.MkdirAll(backup, 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}
	for _, entry := range entries {
		from := filepath.Join(s.dir, entry.Name())
		to := filepath.Join(backup, entry.Name())
		if err := os.Rename(from, to); err != nil {
			return nil, fmt.Errorf("failed to move %s to backup: %w", entry.Name(), err)
		}
	}

	DeleteAt(s.dir)
	return InitializeAt(s.dir)
}

// Delete removes the trust state owned by this orchestrator.
func (s *CliState) Delete() error {
	s.logger.Info("deleting trust state", "dir", s.dir)
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	DeleteAt(s.dir)
	return nil
}

// DeleteAt removes every category's storage under the root path, the store
// file, and root-level config files, then removes the root directory itself
// if it is left empty. Cleanup is best-effort by design: individual removal
// failures are ignored so one locked or missing subpath does not block
// removal of the rest.
func DeleteAt(dir string) {
	for _, sub := range categoryDirs {
		_ = os.RemoveAll(filepath.Join(dir, sub))
	}
	for _, file := range []string{
		store.DatabaseName,
		store.DatabaseName + "-wal",
		store.DatabaseName + "-shm",
		ConfigFileName,
	} {
		_ = os.Remove(filepath.Join(dir, file))
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}

// IsEnrolled reports whether the user completed enrollment.
//
// A missing or unenrolled default identity simply means "not enrolled" and
// returns false without error. A missing default space or project after the
// identity is enrolled means the state is broken, so those return
// descriptive errors directing the user to re-enroll.
func (s *CliState) IsEnrolled(ctx context.Context) (bool, error) {
	def, err := s.Identities.GetDefault(ctx)
	if err != nil {
		if store.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	enrolled, err := s.db.IsIdentityEnrolled(ctx, def.Record)
	if err != nil {
		return false, err
	}
	if !enrolled {
		return false, nil
	}

	if _, err := s.Spaces.GetDefault(); err != nil {
		if store.IsNotFound(err) {
			msg := "there should be a default space set for the current user, please re-enroll"
			s.logger.Error(msg)
			return false, &InvalidOperationError{Reason: msg}
		}
		return false, err
	}
	if _, err := s.Projects.GetDefault(); err != nil {
		if store.IsNotFound(err) {
			msg := "there should be a default project set for the current user, please re-enroll"
			s.logger.Error(msg)
			return false, &InvalidOperationError{Reason: msg}
		}
		return false, err
	}
	return true, nil
}

// CreateVaultState resolves a vault for use: the named vault when a name is
// given, else the current default, else a brand-new vault under a random
// name.
func (s *CliState) CreateVaultState(ctx context.Context, name string) (store.NamedEntry[VaultConfig], error) {
	if name != "" {
		return s.Vaults.Get(ctx, name)
	}
	def, err := s.Vaults.GetDefault(ctx)
	if err == nil {
		return def, nil
	}
	if !store.IsNotFound(err) {
		return store.NamedEntry[VaultConfig]{}, err
	}
	fresh := RandomName()
	config := VaultConfig{
		Path: filepath.Join(s.dir, "vaults", "data", fresh+"-storage.json"),
	}
	if err := s.Vaults.Create(ctx, fresh, config); err != nil {
		return store.NamedEntry[VaultConfig]{}, err
	}
	return s.Vaults.Get(ctx, fresh)
}
