package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// ConfigFileName is the root-level configuration file of a trust-state
// directory.
const ConfigFileName = "config.json"

// BackupSuffix is appended to the directory name to form the sibling backup
// path used by BackupAndReset.
const BackupSuffix = ".bak"

// envConfig holds the environment overrides for the trust-state directory.
type envConfig struct {
	// Home overrides the root directory of the trust state.
	Home string `env:"OCKAM_HOME"`
}

// DefaultDir resolves the root trust-state directory: the OCKAM_HOME
// environment override when set, else a fixed home-relative default.
func DefaultDir() (string, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return "", fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Home != "" {
		return cfg.Home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &InvalidPathError{Path: "$HOME"}
	}
	return filepath.Join(home, ".ockam"), nil
}

// backupDir returns the sibling backup path for a root directory: the same
// name with BackupSuffix appended.
func backupDir(dir string) (string, error) {
	if dir == "" {
		return "", ErrEmptyPath
	}
	name := filepath.Base(dir)
	if name == "." || name == string(filepath.Separator) {
		return "", &InvalidPathError{Path: dir}
	}
	return filepath.Join(filepath.Dir(dir), name+BackupSuffix), nil
}
