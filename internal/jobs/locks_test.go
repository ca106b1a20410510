package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockManager_AcquireRelease(t *testing.T) {
	m := NewLockManager()

	assert.True(t, m.Acquire("recalibration"))
	assert.False(t, m.Acquire("recalibration"), "held lock must not be reacquired")
	assert.True(t, m.Acquire("drift_detection"), "different locks are independent")

	m.Release("recalibration")
	assert.True(t, m.Acquire("recalibration"))
}

func TestLockManager_ReleaseUnheldIsNoop(t *testing.T) {
	m := NewLockManager()
	m.Release("never_acquired")
	assert.True(t, m.Acquire("never_acquired"))
}

func TestLockManager_RunningReportsLiveLocks(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m := NewLockManager()
	m.now = func() time.Time { return now }

	assert.False(t, m.IsRunning("recalibration"))
	assert.Empty(t, m.Running())

	assert.True(t, m.Acquire("recalibration"))
	assert.True(t, m.Acquire("curve_build"))
	assert.True(t, m.IsRunning("recalibration"))
	assert.Equal(t, []string{"curve_build", "recalibration"}, m.Running())

	m.Release("curve_build")
	assert.Equal(t, []string{"recalibration"}, m.Running())

	// A stale lock is not a running job.
	now = now.Add(staleLockAge)
	assert.False(t, m.IsRunning("recalibration"))
	assert.Empty(t, m.Running())
}

func TestLockManager_StaleReclaim(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m := NewLockManager()
	m.now = func() time.Time { return now }

	assert.True(t, m.Acquire("curve_build"))

	// Just under the stale age: still held.
	now = now.Add(staleLockAge - time.Second)
	assert.False(t, m.Acquire("curve_build"))

	// At the stale age the lock is treated as abandoned.
	now = now.Add(time.Second)
	assert.True(t, m.Acquire("curve_build"))

	// The reclaim resets the clock for the new holder.
	now = now.Add(time.Minute)
	assert.False(t, m.Acquire("curve_build"))
}
