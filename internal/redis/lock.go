package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker guards the check-then-write critical section for one doctor slot.
type Locker interface {
	WithSlotLock(ctx context.Context, doctorID int64, at time.Time, fn func(ctx context.Context) error) error
}

// SlotKey is the Redis key guarding a doctor's slot. Timestamps are keyed by
// unix minute so that equal instants in different zones share a lock.
func SlotKey(doctorID int64, at time.Time) string {
	return fmt.Sprintf("lock:slot:%d:%d", doctorID, at.Unix()/60)
}

// lockStore owns the raw key operations so the locker can be tested without Redis.
type lockStore interface {
	acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// release deletes key only while it still holds token and reports whether it did.
	release(ctx context.Context, key, token string) (bool, error)
}

type slotLocker struct {
	store lockStore
	ttl   time.Duration
}

// NewRedisSlotLocker holds one Redis key per doctor slot for at most ttl.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) Locker {
	return &slotLocker{store: redisStore{client: client}, ttl: ttl}
}

// WithSlotLock runs fn while holding the slot key. fn gets a context bounded
// by the lock ttl, so it cannot outlive the key it relies on.
func (l *slotLocker) WithSlotLock(ctx context.Context, doctorID int64, at time.Time, fn func(ctx context.Context) error) error {
	key := SlotKey(doctorID, at)
	token := uuid.NewString()

	ok, err := l.store.acquire(ctx, key, token, l.ttl)
	if err != nil {
		return fmt.Errorf("acquire slot lock %s: %w", key, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}
	defer l.unlock(context.WithoutCancel(ctx), key, token)

	fnCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()
	return fn(fnCtx)
}

// unlock never fails the caller: the write already happened, and an
// unreleased key expires on its own after the ttl.
func (l *slotLocker) unlock(ctx context.Context, key, token string) {
	released, err := l.store.release(ctx, key, token)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("lock_key", key).Msg("failed to release slot lock")
	case !released:
		log.Warn().Str("lock_key", key).Dur("ttl", l.ttl).Msg("slot lock expired before release")
	}
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, token, ttl).Result()
}

// compareAndDelete removes the key only if this caller still owns it.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s redisStore) release(ctx context.Context, key, token string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// NoopLocker runs fn directly, leaving the unique index as the only guard.
// Used when Redis is unreachable and by jobs that never book a slot.
type NoopLocker struct{}

func (NoopLocker) WithSlotLock(ctx context.Context, _ int64, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
