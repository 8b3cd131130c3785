// Package lock coordinates access to a single multipart upload's registry
// row across processes. A signing client run as a fleet of workers can race
// to register, update, or abort the same upload ID, and to run the
// crash-recovery sweep against a shared registry; Locker serializes both
// without requiring a shared owner process. For a single-instance
// deployment, MemoryLocker is sufficient and avoids the Redis dependency
// entirely.
package lock

import (
	"context"
	"time"
)

// Locker acquires and releases named, TTL-bound locks. Implementations must
// be safe for concurrent use.
type Locker interface {
	// Acquire attempts to acquire the lock at key, expiring automatically
	// after ttl if never released. It returns false, nil (not an error) when
	// another holder already has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry retries Acquire up to maxRetries times, sleeping
	// retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases the lock at key. Returns false if it was not held.
	Release(ctx context.Context, key string) (bool, error)

	// Extend refreshes a held lock's TTL, e.g. while a long multipart upload
	// is still in flight.
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsHeld reports whether key is currently locked by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Lock is a convenience wrapper around one specific key, tracking whether
// this handle currently holds it so Release is a no-op after a failed
// Acquire or a prior Release.
type Lock struct {
	locker Locker
	key    string
	held   bool
}

// NewLock returns a Lock scoped to key.
func NewLock(locker Locker, key string) *Lock {
	return &Lock{locker: locker, key: key}
}

func (l *Lock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	acquired, err := l.locker.Acquire(ctx, l.key, ttl)
	if err != nil {
		return false, err
	}
	l.held = acquired
	return acquired, nil
}

func (l *Lock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	_, err := l.locker.Release(ctx, l.key)
	l.held = false
	return err
}

func (l *Lock) IsHeld() bool {
	return l.held
}

// Keys generates the lock key namespace this package's callers use.
var Keys = lockKeys{}

type lockKeys struct{}

// MultipartUpload returns the lock key guarding one upload's registry row.
func (lockKeys) MultipartUpload(uploadID string) string {
	return "lock:multipart:" + uploadID
}

// RegistryGC returns the lock key guarding the crash-recovery sweep that
// aborts stale open uploads.
func (lockKeys) RegistryGC() string {
	return "lock:gc:registry"
}
