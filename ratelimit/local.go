package ratelimit

import (
	"context"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Local keeps a token bucket per key in memory. Idle keys are dropped
// after entryTTL.
type Local struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*entry
	stop    chan struct{}
}

func NewLocal(limit redis_rate.Limit) *Local {
	l := &Local{
		limit:   rate.Limit(float64(limit.Rate) / limit.Period.Seconds()),
		burst:   limit.Burst,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Local) Stop() {
	close(l.stop)
}

func (l *Local) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastAccess = time.Now()
	l.mu.Unlock()

	allowed := e.limiter.Allow()
	remaining := int(e.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}

	d := Decision{Allowed: allowed, Remaining: remaining}
	if !allowed {
		d.RetryAfter = time.Duration(float64(time.Second) / float64(l.limit))
	}
	return d, nil
}

func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Local) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evict(time.Now().Add(-entryTTL))
		}
	}
}

func (l *Local) evict(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.entries {
		if e.lastAccess.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}
