package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker coordinates multipart-upload registry access within a single
// process. It is the default when redis.enabled is false: a single client
// instance never needs a shared lock manager to serialize its own goroutines
// against each other, since RegistryGC and per-upload keys are already
// process-local in that deployment. Locks held by a MemoryLocker are
// invisible to any other process and do not survive a restart.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// lockEntry is one held lock's expiry.
type lockEntry struct {
	expiresAt time.Time
}

// NewMemoryLocker creates a locker whose state lives only in this process's
// memory, and starts the background goroutine that reaps expired entries.
func NewMemoryLocker() *MemoryLocker {
	m := &MemoryLocker{locks: make(map[string]*lockEntry)}
	go m.reapLoop()
	return m
}

func (m *MemoryLocker) reapLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.reapExpired()
	}
}

func (m *MemoryLocker) reapExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for key, entry := range m.locks {
		if now.After(entry.expiresAt) {
			delete(m.locks, key)
		}
	}
}

// Acquire takes the lock at key if it is free or expired.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if entry, held := m.locks[key]; held && now.Before(entry.expiresAt) {
		return false, nil
	}

	m.locks[key] = &lockEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// AcquireWithRetry calls Acquire until it succeeds, maxRetries is exhausted,
// or ctx is cancelled. The registry sweep does not use it: it calls Acquire
// once and skips the pass when another process holds the lock.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		acquired, err := m.Acquire(ctx, key, ttl)
		if err != nil || acquired {
			return acquired, err
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return false, nil
}

// Release drops the lock at key, regardless of who currently holds it —
// MemoryLocker does not track per-holder ownership tokens the way RedisLocker
// does, since within one process there is no risk of a different process
// releasing a lock it never held.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.locks[key]; held {
		delete(m.locks, key)
		return true, nil
	}
	return false, nil
}

// Extend pushes out the expiry of a held lock, e.g. while the registry sweep
// this lock guards is still running.
func (m *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, held := m.locks[key]
	if !held {
		return false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.locks, key)
		return false, nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	return true, nil
}

// IsHeld reports whether key is currently locked and unexpired.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, held := m.locks[key]
	if !held {
		return false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.locks, key)
		return false, nil
	}
	return true, nil
}

var _ Locker = (*MemoryLocker)(nil)
