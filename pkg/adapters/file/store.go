package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/cohort/pkg/domain"
)

const fileExt = ".kv"

// Store implements ports.KeyValueStore using the local filesystem.
// Each key is stored as one file in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".cohort/store".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".cohort", "store")
	}
	return &Store{BasePath: basePath}
}

// path maps a key to a file name that is safe on every platform.
func (s *Store) path(key string) string {
	return filepath.Join(s.BasePath, url.QueryEscape(key)+fileExt)
}

// Get reads the value file for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: failed to read value file: %v", domain.ErrStorageUnavailable, err)
	}

	return string(data), nil
}

// Set persists the value atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("%w: failed to ensure store directory: %v", domain.ErrStorageUnavailable, err)
	}

	destPath := s.path(key)

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*"+fileExt+".partial")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", domain.ErrStorageUnavailable, err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.WriteString(value); err != nil {
		return fmt.Errorf("%w: failed to write to temp file: %v", domain.ErrStorageUnavailable, err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("%w: failed to fsync temp file: %v", domain.ErrStorageUnavailable, err)
	}

	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temp file: %v", domain.ErrStorageUnavailable, err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("%w: failed to remove existing value file: %v", domain.ErrStorageUnavailable, err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("%w: failed to rename temp file: %v", domain.ErrStorageUnavailable, err)
	}

	return nil
}

// Remove deletes the value file.
func (s *Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete value file: %v", domain.ErrStorageUnavailable, err)
	}

	return nil
}

// Keys returns every stored key in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list store: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, "tmp-") {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue // not ours
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}
