package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
	"github.com/wanderstay/wanderstay-bookings/pkg/config"
	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
)

// KV is the narrow contract the lock needs from the shared store:
// atomic set-if-absent with TTL, plus plain get/delete for the
// token-checked release.
type KV interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (r *redisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Manager serializes writers on a per-property key. Acquisition is a
// single SETNX with TTL, never a read-then-write; the TTL bounds how
// long a crashed holder can block the property.
type Manager struct {
	kv  KV
	cfg config.LockConfig
}

func NewManager(kv KV, cfg config.LockConfig) *Manager {
	return &Manager{kv: kv, cfg: cfg}
}

func PropertyKey(propertyID int64) string {
	return fmt.Sprintf("property:%d:lock", propertyID)
}

// Acquire takes the lock for key, retrying with backoff. A busy lock
// after all retries is a Conflict, not a fault: the caller should
// surface "try again", never 500.
func (m *Manager) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()

	attempts := m.cfg.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		ok, err := m.kv.SetIfAbsent(ctx, key, token, m.cfg.TTL)
		if err != nil {
			return "", domain.NewDatabase(err)
		}
		if ok {
			return token, nil
		}
		if i < attempts-1 {
			select {
			case <-time.After(m.cfg.RetryDelay):
			case <-ctx.Done():
				return "", domain.NewConflict("Property is currently being modified by another request")
			}
		}
	}
	return "", domain.NewConflict("Property is currently being modified by another request")
}

// Release gives the lock back. It only deletes when the stored token
// is ours, so an expired lock reacquired by another writer is never
// clobbered. Failures are logged and swallowed: release runs on every
// exit path and must not mask the primary outcome.
func (m *Manager) Release(ctx context.Context, key, token string) {
	current, err := m.kv.Get(ctx, key)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read lock for release", "key", key, "error", err)
		return
	}
	if current != token {
		// Expired and taken over, or already released.
		return
	}
	if err := m.kv.Delete(ctx, key); err != nil {
		logger.WarnContext(ctx, "Failed to release lock", "key", key, "error", err)
	}
}
