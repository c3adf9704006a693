package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gallery:"

// unlockScript deletes the guard only while it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore shares gallery state between server instances.
type RedisStore struct {
	client   *redis.Client
	lockTTL  time.Duration
	stateTTL time.Duration
}

func NewRedisStore(ctx context.Context, address, password string, db int, lockTTL, stateTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", address, err)
	}
	slog.Info("connected to redis", "address", address)

	return &RedisStore{client: client, lockTTL: lockTTL, stateTTL: stateTTL}, nil
}

func stateKey(sessionID string) string { return keyPrefix + "state:" + sessionID }
func lockKey(sessionID string) string  { return keyPrefix + "lock:" + sessionID }

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*GalleryState, error) {
	raw, err := r.client.Get(ctx, stateKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &GalleryState{SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery state: %w", err)
	}

	var state GalleryState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode gallery state: %w", err)
	}
	return &state, nil
}

func (r *RedisStore) Put(ctx context.Context, state *GalleryState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, stateKey(state.SessionID), raw, r.stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save gallery state: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, stateKey(sessionID)).Err()
}

func (r *RedisStore) TryLock(ctx context.Context, sessionID string) (Unlock, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey(sessionID), token, r.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire gallery lock: %w", err)
	}
	if !ok {
		return nil, ErrLoadInProgress
	}

	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, r.client, []string{lockKey(sessionID)}, token).Err()
	}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
