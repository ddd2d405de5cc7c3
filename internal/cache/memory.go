package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	expiresAt time.Time
	value     []byte
}

// Memory is an in-process Store with lazy expiry, used in tests and as
// the fallback when no cache backend is configured. Safe for concurrent
// use; last writer wins for a key.
type Memory struct {
	// Now is the clock used for expiry checks; defaults to time.Now.
	Now func() time.Time

	mu    sync.RWMutex
	items map[string]entry
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry)}
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if len(value) == 0 || ttl <= 0 {
		return
	}
	m.mu.Lock()
	if m.items == nil {
		m.items = make(map[string]entry)
	}
	m.items[key] = entry{expiresAt: m.now().Add(ttl), value: value}
	m.mu.Unlock()
}
