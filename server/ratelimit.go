package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per client key.
type RateLimiter struct {
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	nowFunc  func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client with a burst of the
// same size. A non-positive perMinute disables limiting and returns nil.
func NewRateLimiter(perMinute int, nowFunc func() time.Time) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(perMinute) / 60,
		burst:    perMinute,
		nowFunc:  nowFunc,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	now := rl.nowFunc()

	rl.mu.Lock()
	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	rl.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// Prune drops clients idle for longer than idle and returns how many went.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	cutoff := rl.nowFunc().Add(-idle)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// RunPrune prunes idle clients every interval until ctx is done. A nil
// limiter returns immediately.
func (rl *RateLimiter) RunPrune(ctx context.Context, interval, idle time.Duration) {
	if rl == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune(idle)
		}
	}
}

// clientKey is the peer address of the connection. Forwarding headers are
// client controlled and are not used.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
