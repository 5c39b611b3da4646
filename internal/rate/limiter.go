package rate

import (
	"sync"
	"time"
)

// Limiter gates inbound inbox posts. Allow reports whether the caller
// identified by key may proceed, and how long until the window resets
// when it may not.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

// Memory is a fixed-window in-memory limiter.
type Memory struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

func (m *Memory) Allow(key string) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(m.window)}
		m.buckets[key] = b
	}

	if m.limit > 0 && b.count >= m.limit {
		return false, time.Until(b.resetAt)
	}

	b.count++
	return true, time.Until(b.resetAt)
}
