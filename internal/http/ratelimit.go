package http

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRequestsPerMinute bounds mutating requests per client IP.
const DefaultRequestsPerMinute = 60

const (
	limitWindow   = time.Minute
	sweepInterval = 5 * time.Minute
	idleAfter     = 10 * time.Minute
)

// rateLimiter counts mutating requests per client in fixed one-minute windows.
// Reads are never counted; only ingestion and limit changes are.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	count int
	seen  time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		limit = DefaultRequestsPerMinute
	}
	rl := &rateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep forgets clients idle for longer than idleAfter.
func (rl *rateLimiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleAfter)
	removed := 0
	for ip, w := range rl.clients {
		if w.seen.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow reports whether clientIP still has budget in its current window.
// Rejections are counted on metrics when it is non-nil.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[clientIP]
	if !ok || now.Sub(w.start) >= limitWindow {
		rl.clients[clientIP] = &window{start: now, count: 1, seen: now}
		return true
	}

	w.seen = now
	if w.count >= rl.limit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	w.count++
	return true
}

// isMutating reports whether the method changes engine state.
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
