package viewstate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrLoadInProgress = errors.New("gallery load already in progress")

const (
	defaultLockTTL  = 30 * time.Second
	defaultStateTTL = time.Hour
)

// GalleryState is the pagination cursor of one gallery session.
type GalleryState struct {
	SessionID string `json:"session_id"`
	NextPage  int    `json:"next_page"`
	Exhausted bool   `json:"exhausted"`
}

// Advance records that a page with fetched rows was appended to the view
func (s *GalleryState) Advance(fetched, pageSize int) {
	s.NextPage++
	if fetched < pageSize {
		s.Exhausted = true
	}
}

// Unlock releases a load guard. Calling it after the TTL expired is harmless.
type Unlock func(ctx context.Context) error

type Store interface {
	// Get returns a fresh state when the session is unknown.
	Get(ctx context.Context, sessionID string) (*GalleryState, error)
	Put(ctx context.Context, state *GalleryState) error
	Delete(ctx context.Context, sessionID string) error
	// TryLock acquires the per-session load guard or returns ErrLoadInProgress.
	TryLock(ctx context.Context, sessionID string) (Unlock, error)
	Close() error
}

type Config struct {
	Type     string        `yaml:"type" validate:"required,oneof=memory redis"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lockTTL"`
	StateTTL time.Duration `yaml:"stateTTL"`
}

func NewStore(ctx context.Context, config Config) (Store, error) {
	lockTTL, stateTTL := config.LockTTL, config.StateTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	if stateTTL <= 0 {
		stateTTL = defaultStateTTL
	}

	switch config.Type {
	case "memory", "":
		return NewMemoryStore(lockTTL, stateTTL), nil
	case "redis":
		return NewRedisStore(ctx, config.Address, config.Password, config.DB, lockTTL, stateTTL)
	default:
		return nil, fmt.Errorf("unsupported view state store type: %s", config.Type)
	}
}
