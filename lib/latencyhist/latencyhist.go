package latencyhist

import (
	"slices"
	"sync"
	"time"
)

// LatencyHist is a fixed-size ring of recent latency samples. It answers
// "how slow has this procedure been lately" without keeping unbounded
// history.
type LatencyHist struct {
	mu       sync.RWMutex
	buffer   []time.Duration
	capacity int
	size     int
	head     int
	sum      time.Duration
}

func New(capacity int) *LatencyHist {
	if capacity <= 0 {
		capacity = 1
	}
	return &LatencyHist{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add records a sample, evicting the oldest one once the ring is full.
func (h *LatencyHist) Add(latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size == h.capacity {
		h.sum -= h.buffer[h.head]
	} else {
		h.size++
	}

	h.buffer[h.head] = latency
	h.sum += latency
	h.head = (h.head + 1) % h.capacity
}

func (h *LatencyHist) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *LatencyHist) Average() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.size == 0 {
		return 0
	}
	return h.sum / time.Duration(h.size)
}

func (h *LatencyHist) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.size = 0
	h.head = 0
	h.sum = 0
}

// Snapshot is a point-in-time summary of the ring.
type Snapshot struct {
	Count   int           `json:"count"`
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	P99     time.Duration `json:"p99"`
}

// Snapshot copies the samples out under the read lock and computes the
// summary outside it, so a slow percentile pass never blocks writers.
func (h *LatencyHist) Snapshot() Snapshot {
	h.mu.RLock()
	samples := make([]time.Duration, h.size)
	copy(samples, h.buffer[:h.size])
	sum := h.sum
	h.mu.RUnlock()

	if len(samples) == 0 {
		return Snapshot{}
	}
	slices.Sort(samples)
	return Snapshot{
		Count:   len(samples),
		Average: sum / time.Duration(len(samples)),
		Min:     samples[0],
		Max:     samples[len(samples)-1],
		P50:     percentile(samples, 50),
		P95:     percentile(samples, 95),
		P99:     percentile(samples, 99),
	}
}

// nearest-rank percentile over a sorted slice
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := (len(sorted)*p+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
