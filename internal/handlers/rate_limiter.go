package handlers

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter hands each user a token bucket refilled at limit per window with a burst of
// limit. Buckets idle for longer than a full window are full again and get dropped.
type userLimiter struct {
	every  rate.Limit
	burst  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]*userBucket
	swept   time.Time
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(limit int, window time.Duration, clock func() time.Time) *userLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &userLimiter{
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]*userBucket),
	}
}

// Allow reports whether uid may make another attempt now. A nil limiter allows everything.
func (l *userLimiter) Allow(uid string) bool {
	if l == nil {
		return true
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > l.window {
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.window {
				delete(l.buckets, key)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[uid]
	if !ok {
		b = &userBucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[uid] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}
