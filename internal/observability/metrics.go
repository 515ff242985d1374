package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for queue operations and HTTP
// traffic. Snapshots are exposed on the health surface.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	queueOpCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		queueOpCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordQueueOp counts a coordinator operation per provider
// (issued, called, confirmed, completed, cancelled, reclaimed).
func (m *Metrics) RecordQueueOp(providerID, op string) {
	if m == nil {
		return
	}
	key := providerID + "|" + op
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueOpCount[key]++
}

// Snapshot returns copies of all counters.
func (m *Metrics) Snapshot() (requests, errors, queueOps map[string]int64) {
	if m == nil {
		return nil, nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyCounts(m.requestCount), copyCounts(m.errorCount), copyCounts(m.queueOpCount)
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
