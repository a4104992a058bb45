package ratelimit

import (
	"context"
	"sync"
	"time"

	"linkbio/modules/clock"
)

var _ CounterStore = (*MemoryCounter)(nil)

// MemoryCounter is a process-local CounterStore. It backs single-node and
// memory-store deployments; counters are not shared across replicas.
type MemoryCounter struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]counterEntry
}

type counterEntry struct {
	n         int64
	expiresAt time.Time
}

func NewMemoryCounter(c clock.Clock) *MemoryCounter {
	return &MemoryCounter{clock: c, entries: make(map[string]counterEntry)}
}

// Incr implements CounterStore. The TTL is set when the key is created, like
// the Redis script.
func (m *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = counterEntry{expiresAt: now.Add(ttl)}
		m.sweep(now)
	}
	e.n++
	m.entries[key] = e
	return e.n, nil
}

// Get implements CounterStore.
func (m *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.clock.Now().Before(e.expiresAt) {
		return 0, nil
	}
	return e.n, nil
}

// sweep drops expired keys; called on key creation so the map stays bounded
// by the number of live windows.
func (m *MemoryCounter) sweep(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
