package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	c.Add(5)

	assert.Equal(t, uint64(105), c.Load())
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 5*time.Millisecond)
}

func TestNotifications_Snapshot(t *testing.T) {
	var n Notifications
	n.Received.Add(3)
	n.Authorized.Inc()
	n.Rejected.Inc()
	n.Malformed.Inc()
	n.ObserveVerification(10 * time.Millisecond)
	n.ObserveVerification(30 * time.Millisecond)

	s := n.Snapshot()
	assert.Equal(t, uint64(3), s.Received)
	assert.Equal(t, uint64(1), s.Authorized)
	assert.Equal(t, uint64(1), s.Rejected)
	assert.Equal(t, uint64(1), s.Malformed)
	assert.InDelta(t, 20.0, s.AvgVerificationMS, 0.001)
}

func TestNotifications_SnapshotEmpty(t *testing.T) {
	var n Notifications
	assert.Equal(t, Snapshot{}, n.Snapshot())
}
