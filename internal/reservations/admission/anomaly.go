package admission

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AnomalyGuard trips when a single fingerprint performs too many actions of
// any class in a minute. It is independent of the per-class windows: a client
// mixing action types can still hit it. Token buckets are cached per
// fingerprint and idle entries are swept periodically.
type AnomalyGuard struct {
	mu      sync.Mutex
	entries map[string]*guardEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	stopCh  chan struct{}
}

type guardEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewAnomalyGuard allows up to actionsPerMinute sustained actions per
// fingerprint, with a burst of the same size.
func NewAnomalyGuard(actionsPerMinute int) *AnomalyGuard {
	g := &AnomalyGuard{
		entries: make(map[string]*guardEntry),
		rps:     rate.Limit(float64(actionsPerMinute) / 60.0),
		burst:   actionsPerMinute,
		idleTTL: 15 * time.Minute,
		stopCh:  make(chan struct{}),
	}

	go g.janitor()

	return g
}

func (g *AnomalyGuard) Allow(fingerprint string) bool {
	now := time.Now()

	g.mu.Lock()
	ent, ok := g.entries[fingerprint]
	if !ok {
		ent = &guardEntry{lim: rate.NewLimiter(g.rps, g.burst)}
		g.entries[fingerprint] = ent
	}
	ent.lastSeen = now
	g.mu.Unlock()

	return ent.lim.Allow()
}

func (g *AnomalyGuard) janitor() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-g.idleTTL)
			g.mu.Lock()
			for key, ent := range g.entries {
				if ent.lastSeen.Before(cutoff) {
					delete(g.entries, key)
				}
			}
			g.mu.Unlock()
		case <-g.stopCh:
			return
		}
	}
}

func (g *AnomalyGuard) Stop() {
	close(g.stopCh)
}
