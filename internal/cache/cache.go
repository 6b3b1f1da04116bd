// Package cache provides a generic in-process LRU cache with expiry, used to
// avoid repeating identical insights requests.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is the read/write surface callers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans registered caches until stopped.
type Janitor struct {
	mu      sync.Mutex
	caches  []Cleaner
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

// Register adds a cache. Safe to call while running.
func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Start cleans every interval until Stop or ctx is done. A second Start
// while running is a no-op.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	j.mu.Lock()
	if j.running || interval <= 0 {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx, interval)
}

func (j *Janitor) run(ctx context.Context, interval time.Duration) {
	defer close(j.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.CleanOnce(); n > 0 {
				slog.DebugContext(ctx, "Cache entries expired", "removed", n)
			}
		case <-j.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// CleanOnce runs one pass over all caches and returns how many entries went.
func (j *Janitor) CleanOnce() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop and waits for it.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	close(j.stopCh)
	done := j.doneCh
	j.mu.Unlock()
	<-done
}
