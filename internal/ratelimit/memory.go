package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often the memory store scans for expired counters.
const sweepInterval = time.Minute

// MemoryStore is a process-local counter store. Counters are created lazily,
// overwritten when their window expires, and swept opportunistically on
// increment. State is lost on restart and is not shared across instances;
// multi-instance deployments should use RedisStore instead.
type MemoryStore struct {
	mu        sync.Mutex
	counters  map[string]*windowCounter
	nextSweep time.Time
	nowFn     func() time.Time
}

type windowCounter struct {
	count   int64
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*windowCounter),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	s.sweepLocked(now)

	c, ok := s.counters[key]
	if !ok || !c.resetAt.After(now) {
		c = &windowCounter{count: 0, resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.resetAt, nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(sweepInterval)
	for key, c := range s.counters {
		if !c.resetAt.After(now) {
			delete(s.counters, key)
		}
	}
}
