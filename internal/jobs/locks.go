package jobs

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// staleLockAge is how long a held lock survives before another caller may
// reclaim it. Covers the longest expected job run with room to spare.
const staleLockAge = 3600 * time.Second

// Locker serializes job execution by name and reports what is running.
type Locker interface {
	Acquire(name string) bool
	Release(name string)
	IsRunning(name string) bool
	Running() []string
}

// LockManager is an in-process Locker. Locks are advisory and per-process;
// operators running multiple engine processes against one database schedule
// jobs externally.
type LockManager struct {
	mu       sync.Mutex
	acquired map[string]time.Time
	now      func() time.Time
}

// NewLockManager creates a LockManager using the wall clock.
func NewLockManager() *LockManager {
	return &LockManager{
		acquired: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Acquire takes the named lock. A lock held longer than staleLockAge is
// treated as abandoned by a crashed run and reclaimed.
func (m *LockManager) Acquire(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if at, held := m.acquired[name]; held {
		if now.Sub(at) < staleLockAge {
			return false
		}
		zap.L().Warn("jobs: reclaiming stale lock",
			zap.String("lock", name),
			zap.Time("acquired_at", at))
	}
	m.acquired[name] = now
	return true
}

// Release frees the named lock. Releasing an unheld lock is a no-op.
func (m *LockManager) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.acquired, name)
}

// IsRunning reports whether a live, non-stale lock is held for name.
func (m *LockManager) IsRunning(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, held := m.acquired[name]
	return held && m.now().Sub(at) < staleLockAge
}

// Running returns the names of every live lock, sorted.
func (m *LockManager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var names []string
	for name, at := range m.acquired {
		if now.Sub(at) < staleLockAge {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
