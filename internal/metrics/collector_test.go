package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	done := c.RequestStart()
	assert.Equal(t, int64(1), c.Snapshot().ActiveRequests)
	c.RecordSuccess(3, 1, 10*time.Millisecond)
	done()

	done = c.RequestStart()
	c.RecordSuccess(1, 0, 30*time.Millisecond)
	done()

	done = c.RequestStart()
	c.RecordFailure("unreachable")
	done()

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, int64(0), s.ActiveRequests)
	assert.Equal(t, int64(4), s.ChunksDecoded)
	assert.Equal(t, int64(1), s.ChunksSkipped)
	assert.InDelta(t, 20.0, s.AvgLatencyMs, 0.001)
	assert.Equal(t, map[string]int64{"unreachable": 1}, s.Failures)
}

func TestSnapshotIsCopy(t *testing.T) {
	c := NewCollector()
	c.RecordFailure("provider")
	s := c.Snapshot()
	s.Failures["provider"] = 99
	assert.Equal(t, int64(1), c.Snapshot().Failures["provider"])
}

func TestLatencySamplesCapped(t *testing.T) {
	c := NewCollector()
	for i := 0; i < maxSamples+50; i++ {
		c.RecordSuccess(0, 0, time.Millisecond)
	}
	c.mu.Lock()
	n := len(c.latencies)
	c.mu.Unlock()
	assert.Equal(t, maxSamples, n)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := c.RequestStart()
			defer done()
			c.RecordSuccess(2, 1, time.Millisecond)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, int64(50), s.TotalRequests)
	assert.Equal(t, int64(0), s.ActiveRequests)
	assert.Equal(t, int64(100), s.ChunksDecoded)
	assert.Equal(t, int64(50), s.ChunksSkipped)
}
