package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter implements Limiter with one golang.org/x/time/rate token
// bucket per key. A background goroutine evicts idle keys every minute.
type MemoryLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryLimiter creates a limiter allowing rps sustained requests per
// second per key with bursts of up to burst. Call Close to stop the
// eviction goroutine.
func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Allow consumes one token from key's bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.entries[key] = e
	}
	e.lastAccess = now
	return e.limiter.AllowN(now, 1), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

const staleThreshold = 10 * time.Minute

func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *MemoryLimiter) evictStale() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-staleThreshold)
	for key, e := range m.entries {
		if e.lastAccess.Before(cutoff) {
			delete(m.entries, key)
		}
	}
}
