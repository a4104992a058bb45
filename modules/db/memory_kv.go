package db

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"linkbio/modules/clock"
)

var _ KV = (*MemoryKV)(nil)

// MemoryKV is a process-local KV with the value semantics of the Redis KV:
// values are stored as []byte and AtomicSet returns the previous value.
type MemoryKV struct {
	clock clock.Clock
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryKV builds a MemoryKV; ttl <= 0 keeps values forever.
func NewMemoryKV(c clock.Clock, ttl time.Duration) *MemoryKV {
	if c == nil {
		c = clock.RealClockProvider()
	}
	return &MemoryKV{clock: c, ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *MemoryKV) live(e memoryEntry, now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// AtomicGet implements KV.
func (m *MemoryKV) AtomicGet(_ context.Context, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.live(e, m.clock.Now()) {
		delete(m.entries, key)
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

// AtomicSet implements KV.
func (m *MemoryKV) AtomicSet(_ context.Context, key string, value any) (any, error) {
	var bs []byte
	switch v := value.(type) {
	case nil:
		return nil, errors.New("memory kv: nil values are not allowed")
	case string:
		bs = []byte(v)
	case []byte:
		bs = append([]byte(nil), v...)
	default:
		var err error
		if bs, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	next := memoryEntry{value: bs}
	if m.ttl > 0 {
		next.expiresAt = now.Add(m.ttl)
	}

	prev, ok := m.entries[key]
	m.entries[key] = next
	if !ok || !m.live(prev, now) {
		return nil, nil
	}
	return prev.value, nil
}
