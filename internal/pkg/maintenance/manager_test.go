package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func stopWithTimeout(t *testing.T, m *Manager) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return; a worker is stuck")
	}
}

func TestManagerStartStop(t *testing.T) {
	m := &Manager{stopCh: make(chan struct{})}

	m.Start()
	assert.True(t, m.running)

	stopWithTimeout(t, m)
	assert.False(t, m.running)

	// Stopping an already stopped manager is a no-op.
	m.Stop()

	// The manager can be restarted after a stop cycle.
	m.Start()
	assert.True(t, m.running)
	assert.NotNil(t, m.stopCh)
	stopWithTimeout(t, m)
}

func TestIntervalFromEnv(t *testing.T) {
	t.Setenv("TEST_MAINTENANCE_INTERVAL", "15")
	assert.Equal(t, 15*time.Minute, intervalFromEnv("TEST_MAINTENANCE_INTERVAL", time.Minute))

	t.Setenv("TEST_MAINTENANCE_INTERVAL", "not-a-number")
	assert.Equal(t, time.Minute, intervalFromEnv("TEST_MAINTENANCE_INTERVAL", time.Minute))

	assert.Equal(t, 5*time.Minute, intervalFromEnv("TEST_MAINTENANCE_INTERVAL_UNSET", 5*time.Minute))
}
