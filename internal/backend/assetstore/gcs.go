package assetstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore stores assets in a Google Cloud Storage bucket.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCSStore uses application default credentials unless an emulator endpoint is configured
func NewGCSStore(ctx context.Context, config Config) (*GCSStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("gcs asset store requires a bucket")
	}

	var opts []option.ClientOption
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: config.Bucket, publicBaseURL: config.PublicBaseURL}, nil
}

func (g *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	object := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	wc := object.NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		if isGCSPreconditionFailed(err) {
			return fmt.Errorf("%w: %s", ErrExists, key)
		}
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	rc, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func isGCSPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

func (g *GCSStore) PublicURL(key string) string {
	return gcsPublicURL(g.publicBaseURL, g.bucket, key)
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}

func gcsPublicURL(publicBaseURL, bucket, key string) string {
	if publicBaseURL != "" {
		return joinURL(publicBaseURL, key)
	}
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, bucket, key)
}
