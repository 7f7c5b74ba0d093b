package oracle

import (
	"sync"

	"github.com/openfroyo/sassdata/pkg/telemetry"
)

// Memo caches verdicts of another Oracle by probe source. Verdicts depend
// only on the source text, so entries never expire.
type Memo struct {
	next    Oracle
	metrics *telemetry.Metrics

	mu       sync.RWMutex
	verdicts map[string]bool
}

// NewMemo wraps next with a verdict cache. metrics may be nil.
func NewMemo(next Oracle, metrics *telemetry.Metrics) *Memo {
	return &Memo{
		next:     next,
		metrics:  metrics,
		verdicts: make(map[string]bool),
	}
}

// IsAcceptable returns the cached verdict for source, probing on a miss.
func (m *Memo) IsAcceptable(source string) bool {
	m.mu.RLock()
	verdict, ok := m.verdicts[source]
	m.mu.RUnlock()
	if ok {
		m.metrics.RecordOracleCacheHit()
		return verdict
	}

	// Probe without holding the lock; concurrent misses for the same source
	// may both probe, which is harmless.
	verdict = m.next.IsAcceptable(source)

	m.mu.Lock()
	m.verdicts[source] = verdict
	m.mu.Unlock()
	return verdict
}

// Len returns the number of cached verdicts.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.verdicts)
}

// Reset drops every cached verdict.
func (m *Memo) Reset() {
	m.mu.Lock()
	m.verdicts = make(map[string]bool)
	m.mu.Unlock()
}
