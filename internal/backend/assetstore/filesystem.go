package assetstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const defaultFileSystemBaseURL = "/assets"

// FileSystemStore stores assets as files below a base directory.
type FileSystemStore struct {
	basePath      string
	publicBaseURL string
}

func NewFileSystemStore(basePath, publicBaseURL string) *FileSystemStore {
	if publicBaseURL == "" {
		publicBaseURL = defaultFileSystemBaseURL
	}
	return &FileSystemStore{basePath: basePath, publicBaseURL: publicBaseURL}
}

// EnsureDir creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

func (fs *FileSystemStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := fs.filePath(key)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	// Write to a temp file first so readers never observe a partial asset
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file for %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	// Link fails when the target exists, so an existing asset is never replaced
	err = os.Link(tmp.Name(), filePath)
	_ = os.Remove(tmp.Name())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, key)
		}
		return fmt.Errorf("failed to store file %s: %w", key, err)
	}
	return nil
}

func (fs *FileSystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (fs *FileSystemStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := fs.filePath(key)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

func (fs *FileSystemStore) PublicURL(key string) string {
	return joinURL(fs.publicBaseURL, key)
}

func (fs *FileSystemStore) filePath(key string) string {
	return filepath.Join(fs.basePath, filepath.FromSlash(key))
}
