package common

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the quota collaborator consulted before post, comment, and
// like creation. Check reports whether the identifier may proceed and, if
// not, how many seconds to wait before retrying.
type Limiter interface {
	Check(identifier string) (bool, int)
}

// KeyedLimiter keeps one token bucket per identifier (user id or client
// IP). Buckets refill at events/window and allow a burst of the full
// window quota.
type KeyedLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewKeyedLimiter(events int, window time.Duration) *KeyedLimiter {
	l := &KeyedLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(events) / window.Seconds()),
		burst:   events,
	}

	go l.cleanup()

	return l
}

func (l *KeyedLimiter) Check(identifier string) (bool, int) {
	l.mu.Lock()
	b, ok := l.buckets[identifier]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[identifier] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()

	r := b.limiter.Reserve()
	if !r.OK() {
		return false, int(math.Ceil((time.Duration(l.burst) * time.Second).Seconds()))
	}

	delay := r.Delay()
	if delay == 0 {
		return true, 0
	}

	// Not allowed yet: give the tokens back and tell the caller when to
	// come back.
	r.Cancel()
	return false, int(math.Ceil(delay.Seconds()))
}

// cleanup drops buckets that have been idle for over an hour so the map
// does not grow unbounded.
func (l *KeyedLimiter) cleanup() {
	for range time.Tick(10 * time.Minute) {
		l.mu.Lock()
		for id, b := range l.buckets {
			if time.Since(b.lastSeen) > time.Hour {
				delete(l.buckets, id)
			}
		}
		l.mu.Unlock()
	}
}

// UnlimitedLimiter always allows. Used in tests and when no quota is
// configured.
type UnlimitedLimiter struct{}

func (UnlimitedLimiter) Check(identifier string) (bool, int) {
	return true, 0
}
