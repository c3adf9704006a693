package assetstore

import (
	"context"
	"fmt"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps assets in process memory. Used for tests and local runs.
type MemoryStore struct {
	mu            sync.RWMutex
	objects       map[string]memoryObject
	bucket        string
	publicBaseURL string
}

func NewMemoryStore(bucket, publicBaseURL string) *MemoryStore {
	if bucket == "" {
		bucket = "assets"
	}
	return &MemoryStore{
		objects:       make(map[string]memoryObject),
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), obj.data...), nil
}

// ContentType returns the type recorded at Put, or "" for a missing key
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	if m.publicBaseURL != "" {
		return joinURL(m.publicBaseURL, key)
	}
	return "memory://" + m.bucket + "/" + key
}

// Len returns the number of stored assets
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
