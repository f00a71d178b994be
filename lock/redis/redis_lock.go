// Package redis provides a Redis implementation of the lock.Locker interface.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tarunvoff/mobile-backend/lock"
)

// Ensure RedisLocker implements lock.Locker
var _ lock.Locker = (*RedisLocker)(nil)

// Ensure redisLockHandle implements lock.LockHandle
var _ lock.LockHandle = (*redisLockHandle)(nil)

// RedisLocker implements distributed locking using Redis.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
}

// Option is a functional option for configuring RedisLocker.
type Option func(*RedisLocker)

// WithPrefix sets the key prefix for locks.
func WithPrefix(prefix string) Option {
	return func(l *RedisLocker) {
		l.prefix = prefix
	}
}

// NewRedisLocker creates a new Redis-based distributed locker.
func NewRedisLocker(client redis.Cmdable, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		client: client,
		prefix: "recharge:lock:",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire acquires a lock on the given key using SET NX with expiration.
// The TTL prevents indefinite holding when the owner dies.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.LockHandle, error) {
	// Generate a unique token for this lock holder
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock token: %w", err)
	}

	lockKey := l.prefix + key
	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", lock.ErrLockAcquisitionFailed, key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: held by another process", lock.ErrLockAcquisitionFailed, key)
	}

	return &redisLockHandle{
		client:  l.client,
		lockKey: lockKey,
		key:     key,
		token:   token,
	}, nil
}

// redisLockHandle represents a held Redis lock.
type redisLockHandle struct {
	client  redis.Cmdable
	lockKey string
	key     string
	token   string

	mu       sync.Mutex
	released bool
}

// extendScript extends the lock only if we still hold it.
var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// releaseScript releases the lock only if we hold it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Extend extends the TTL of the held lock.
func (h *redisLockHandle) Extend(ctx context.Context, ttl time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return fmt.Errorf("%w: %s: already released", lock.ErrLockExtensionFailed, h.key)
	}

	result, err := extendScript.Run(ctx, h.client, []string{h.lockKey}, h.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", lock.ErrLockExtensionFailed, h.key, err)
	}
	if result == 0 {
		return fmt.Errorf("%w: %s: not held or expired", lock.ErrLockExtensionFailed, h.key)
	}
	return nil
}

// Release releases the held lock. Releasing twice is a no-op.
func (h *redisLockHandle) Release(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	h.released = true

	_, err := releaseScript.Run(ctx, h.client, []string{h.lockKey}, h.token).Result()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", lock.ErrLockReleaseFailed, h.key, err)
	}
	return nil
}

// Key returns the locked key.
func (h *redisLockHandle) Key() string {
	return h.key
}

// generateToken generates a unique token for lock ownership.
func generateToken() (string, error) {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
