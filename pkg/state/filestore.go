// This file contains the file-backed named-entity registry: one JSON file
// per record plus a defaults/<category> marker naming the default. It
// honors the same contract as the database-backed registry in pkg/store.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rage-cmd/ockam/pkg/store"
)

// FileRegistry is a name-to-record registry for one file-backed entity
// category. Records live in their own directory under the trust-state root;
// the default name lives in a marker file under defaults/.
type FileRegistry[T any] struct {
	category string
	dir      string
	marker   string
}

// NewFileRegistry creates (or reopens) the registry for one category.
// dirName is the sub-directory under root holding the record files.
func NewFileRegistry[T any](root, category, dirName string) (*FileRegistry[T], error) {
	if root == "" {
		return nil, ErrEmptyPath
	}
	dir := filepath.Join(root, dirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", category, err)
	}
	defaults := filepath.Join(root, "defaults")
	if err := os.MkdirAll(defaults, 0700); err != nil {
		return nil, fmt.Errorf("failed to create defaults directory: %w", err)
	}
	return &FileRegistry[T]{
		category: category,
		dir:      dir,
		marker:   filepath.Join(defaults, category),
	}, nil
}

// Dir returns the directory holding this category's record files.
func (r *FileRegistry[T]) Dir() string { return r.dir }

func (r *FileRegistry[T]) recordPath(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", &InvalidPathError{Path: name}
	}
	return filepath.Join(r.dir, name+".json"), nil
}

// Create writes a new record file. It fails with AlreadyExistsError when
// the name is taken. The first record created while no default marker
// exists becomes the default.
func (r *FileRegistry[T]) Create(name string, record T) error {
	path, err := r.recordPath(name)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", r.category, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return &store.AlreadyExistsError{Resource: r.category, Name: name}
	}
	if err != nil {
		return fmt.Errorf("failed to create %s record: %w", r.category, err)
	}
	_, werr := f.Write(blob)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("failed to write %s record: %w", r.category, werr)
	}
	if cerr != nil {
		return fmt.Errorf("failed to write %s record: %w", r.category, cerr)
	}
	if _, err := os.Stat(r.marker); errors.Is(err, fs.ErrNotExist) {
		return r.SetDefault(name)
	}
	return nil
}

// Get returns the record with the given name, failing with NotFoundError
// when absent.
func (r *FileRegistry[T]) Get(name string) (T, error) {
	var record T
	path, err := r.recordPath(name)
	if err != nil {
		return record, err
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return record, &store.NotFoundError{Resource: r.category, Name: name}
	}
	if err != nil {
		return record, fmt.Errorf("failed to read %s record: %w", r.category, err)
	}
	if err := json.Unmarshal(blob, &record); err != nil {
		return record, &InvalidDataError{
			Reason: fmt.Sprintf("corrupt %s record %s: %v", r.category, name, err),
		}
	}
	return record, nil
}

// GetDefaultName returns the name recorded in the default marker, failing
// with NotFoundError when no default has ever been set.
func (r *FileRegistry[T]) GetDefaultName() (string, error) {
	blob, err := os.ReadFile(r.marker)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &store.NotFoundError{Resource: r.category}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read default %s marker: %w", r.category, err)
	}
	name := strings.TrimSpace(string(blob))
	if name == "" {
		return "", &store.NotFoundError{Resource: r.category}
	}
	return name, nil
}

// GetDefault returns the default record.
func (r *FileRegistry[T]) GetDefault() (T, error) {
	name, err := r.GetDefaultName()
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Get(name)
}

// SetDefault marks the named record as the single default. The marker is
// written to a temporary file and renamed into place, so a concurrent
// reader sees either the old default or the new one, never a torn write.
func (r *FileRegistry[T]) SetDefault(name string) error {
	if _, err := r.recordPath(name); err != nil {
		return err
	}
	if _, err := r.Get(name); err != nil {
		return err
	}
	tmp := r.marker + ".tmp"
	if err := os.WriteFile(tmp, []byte(name), 0600); err != nil {
		return fmt.Errorf("failed to write default %s marker: %w", r.category, err)
	}
	if err := os.Rename(tmp, r.marker); err != nil {
		return fmt.Errorf("failed to set default %s: %w", r.category, err)
	}
	return nil
}

// Delete removes the record file. Deleting the default does not elect a new
// one. Deleting an absent name is not an error.
func (r *FileRegistry[T]) Delete(name string) error {
	path, err := r.recordPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s record: %w", r.category, err)
	}
	return nil
}

// List returns every (name, record) pair in the registry.
func (r *FileRegistry[T]) List() (map[string]T, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", r.category, err)
	}
	records := make(map[string]T)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		record, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		records[name] = record
	}
	return records, nil
}
