package viewstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps gallery state in process memory. States expire stateTTL after
// their last Put, like the keys of the redis store.
type MemoryStore struct {
	mu        sync.Mutex
	states    map[string]storedState
	locks     map[string]lease
	lockTTL   time.Duration
	stateTTL  time.Duration
	nextToken uint64
	now       func() time.Time
}

type storedState struct {
	state   GalleryState
	expires time.Time
}

type lease struct {
	token   uint64
	expires time.Time
}

func NewMemoryStore(lockTTL, stateTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		states:   make(map[string]storedState),
		locks:    make(map[string]lease),
		lockTTL:  lockTTL,
		stateTTL: stateTTL,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*GalleryState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.states[sessionID]
	if !ok {
		return &GalleryState{SessionID: sessionID}, nil
	}
	if !m.now().Before(stored.expires) {
		delete(m.states, sessionID)
		return &GalleryState{SessionID: sessionID}, nil
	}
	state := stored.state
	return &state, nil
}

func (m *MemoryStore) Put(_ context.Context, state *GalleryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictExpired(now)
	m.states[state.SessionID] = storedState{state: *state, expires: now.Add(m.stateTTL)}
	return nil
}

// evictExpired drops expired states and leases. Callers hold mu.
func (m *MemoryStore) evictExpired(now time.Time) {
	for id, stored := range m.states {
		if !now.Before(stored.expires) {
			delete(m.states, id)
		}
	}
	for id, held := range m.locks {
		if !now.Before(held.expires) {
			delete(m.locks, id)
		}
	}
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}

func (m *MemoryStore) TryLock(_ context.Context, sessionID string) (Unlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if held, ok := m.locks[sessionID]; ok && now.Before(held.expires) {
		return nil, ErrLoadInProgress
	}

	// tokens are never reused, so a stale unlock cannot match a later lease
	m.nextToken++
	token := m.nextToken
	m.locks[sessionID] = lease{token: token, expires: now.Add(m.lockTTL)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if held, ok := m.locks[sessionID]; ok && held.token == token {
			delete(m.locks, sessionID)
		}
		return nil
	}, nil
}

// Len returns the number of stored gallery states, expired ones included until evicted
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func (m *MemoryStore) Close() error {
	return nil
}
