package assetstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("asset not found")
	ErrInvalidKey = errors.New("invalid asset key")
	ErrExists     = errors.New("asset already exists")
)

// Store persists binary assets under keys and derives their public locators.
type Store interface {
	// Put only creates: it fails with ErrExists when something is already stored under key.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete is idempotent: removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL is a pure function of key and store configuration.
	PublicURL(key string) string
}

type Config struct {
	Type            string `yaml:"type" validate:"required,oneof=filesystem memory s3 gcs"`
	Path            string `yaml:"path"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PublicBaseURL   string `yaml:"publicBaseURL"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
}

func NewStore(ctx context.Context, config Config) (Store, error) {
	switch config.Type {
	case "filesystem":
		store := NewFileSystemStore(config.Path, config.PublicBaseURL)
		if err := store.EnsureDir(); err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(config.Bucket, config.PublicBaseURL), nil
	case "s3":
		return NewS3Store(ctx, config)
	case "gcs":
		return NewGCSStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported asset store type: %s", config.Type)
	}
}

// validateKey rejects keys that could escape a bucket or directory
func validateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	case strings.HasPrefix(key, "/"), strings.Contains(key, "\\"):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// joinURL appends key to base with exactly one separating slash
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
