// Package file keeps each record as a JSON document in a directory,
// the closest thing to browser local storage on a server.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
)

type FileKVStore struct {
	dir string
}

// NewFileKVStore creates dir if needed.
func NewFileKVStore(dir string) (*FileKVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileKVStore{dir: dir}, nil
}

func (f *FileKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

// Set writes to a temp file first and renames it over the target, so a
// crash mid-write leaves the previous document intact.
func (f *FileKVStore) Set(ctx context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *FileKVStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

var _ interfaces.KVStore = (*FileKVStore)(nil)
