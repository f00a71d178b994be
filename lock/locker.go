// Package lock provides the distributed lock contract used by the recovery worker.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockAcquisitionFailed is returned when the lock cannot be acquired.
	ErrLockAcquisitionFailed = errors.New("lock acquisition failed")

	// ErrLockExtensionFailed is returned when extending a held lock fails.
	ErrLockExtensionFailed = errors.New("lock extension failed")

	// ErrLockReleaseFailed is returned when releasing a held lock fails.
	ErrLockReleaseFailed = errors.New("lock release failed")
)

// Locker is the distributed lock interface.
// The recovery worker takes one lock per transaction so that only a single
// process re-arms a given pending transaction.
type Locker interface {
	// Acquire acquires a lock on the given key.
	// Returns a LockHandle for extending and releasing the lock.
	// Returns ErrLockAcquisitionFailed if the lock is already held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (LockHandle, error)
}

// LockHandle represents a held lock.
type LockHandle interface {
	// Extend extends the TTL of the held lock.
	// Returns ErrLockExtensionFailed if the lock is no longer held.
	Extend(ctx context.Context, ttl time.Duration) error

	// Release releases the held lock.
	// Returns ErrLockReleaseFailed if the release could not be confirmed.
	Release(ctx context.Context) error

	// Key returns the locked key.
	Key() string
}

// NoopLocker always grants the lock. Used when the engine runs as a single
// process and no coordination is needed.
type NoopLocker struct{}

var _ Locker = (*NoopLocker)(nil)

// Acquire returns a handle without any coordination.
func (n *NoopLocker) Acquire(_ context.Context, key string, _ time.Duration) (LockHandle, error) {
	return &noopHandle{key: key}, nil
}

type noopHandle struct {
	key string
}

func (h *noopHandle) Extend(_ context.Context, _ time.Duration) error { return nil }
func (h *noopHandle) Release(_ context.Context) error                 { return nil }
func (h *noopHandle) Key() string                                     { return h.key }
