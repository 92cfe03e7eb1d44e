// Package metrics collects gateway statistics for the /api/metrics route.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxSamples caps the latency ring used for averages.
const maxSamples = 1000

// Snapshot is a point-in-time view of gateway metrics, safe to marshal to JSON.
type Snapshot struct {
	TotalRequests  int64            `json:"total_requests"`
	ActiveRequests int64            `json:"active_requests"`
	Failures       map[string]int64 `json:"failures"`
	ChunksDecoded  int64            `json:"chunks_decoded"`
	ChunksSkipped  int64            `json:"chunks_skipped"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
}

// Collector is a thread-safe metrics store. Nothing it holds influences
// how a request is handled.
type Collector struct {
	startTime time.Time

	totalRequests  atomic.Int64
	activeRequests atomic.Int64
	chunksDecoded  atomic.Int64
	chunksSkipped  atomic.Int64

	mu        sync.Mutex
	failures  map[string]int64
	latencies []float64
}

// NewCollector creates a Collector; uptime is measured from this call.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		failures:  make(map[string]int64),
	}
}

// RequestStart counts a chat request and marks it active. The returned
// function must be deferred by the handler.
func (c *Collector) RequestStart() func() {
	c.totalRequests.Add(1)
	c.activeRequests.Add(1)
	return func() {
		c.activeRequests.Add(-1)
	}
}

// RecordSuccess records the chunk counts and latency of a completed call.
func (c *Collector) RecordSuccess(chunks, skipped int, latency time.Duration) {
	c.chunksDecoded.Add(int64(chunks))
	c.chunksSkipped.Add(int64(skipped))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, float64(latency.Microseconds())/1000)
	if len(c.latencies) > maxSamples {
		c.latencies = c.latencies[len(c.latencies)-maxSamples:]
	}
}

// RecordFailure counts a failed call under kind (e.g. "unreachable").
func (c *Collector) RecordFailure(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[kind]++
}

// Snapshot returns current metrics as an immutable value.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := make(map[string]int64, len(c.failures))
	for k, v := range c.failures {
		failures[k] = v
	}

	return Snapshot{
		TotalRequests:  c.totalRequests.Load(),
		ActiveRequests: c.activeRequests.Load(),
		Failures:       failures,
		ChunksDecoded:  c.chunksDecoded.Load(),
		ChunksSkipped:  c.chunksSkipped.Load(),
		AvgLatencyMs:   average(c.latencies),
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
	}
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
