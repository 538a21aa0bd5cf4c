package admission

import (
	"context"
	"sync"
	"time"
)

// RateStore counts actions in a sliding window per key. Single-instance
// deployments use the in-memory store; multi-instance deployments must point
// every instance at the shared Redis store or the per-client limits stop
// holding globally.
type RateStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Stop()
}

type memoryRateStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	stopCh   chan struct{}
}

func NewMemoryRateStore() RateStore {
	store := &memoryRateStore{
		requests: make(map[string][]time.Time),
		stopCh:   make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *memoryRateStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	valid := s.requests[key][:0]
	for _, ts := range s.requests[key] {
		if now.Sub(ts) < window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= limit {
		s.requests[key] = valid
		return false, nil
	}

	s.requests[key] = append(valid, now)
	return true, nil
}

func (s *memoryRateStore) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-24 * time.Hour)
			s.mu.Lock()
			for key, timestamps := range s.requests {
				if len(timestamps) == 0 || timestamps[len(timestamps)-1].Before(cutoff) {
					delete(s.requests, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *memoryRateStore) Stop() {
	close(s.stopCh)
}
