package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCacheGetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache should miss")
	}
	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit with 1, got %q %v", v, ok)
	}
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Errorf("overwrite failed, got %q", v)
	}
	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Size != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now least recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
	if ev := c.Stats().Evictions; ev != 1 {
		t.Errorf("expected 1 eviction, got %d", ev)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "2") // refreshes b
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("expected nothing else expired, removed %d", n)
	}
	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("expected b to expire, removed %d", n)
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestJanitor(t *testing.T) {
	c, clk := newTestCache(10, time.Second)
	c.Set("a", "1")
	clk.t = clk.t.Add(2 * time.Second)

	j := NewJanitor(c)
	if n := j.CleanOnce(); n != 1 {
		t.Errorf("expected one expired entry, got %d", n)
	}

	j.Start(context.Background(), 10*time.Millisecond)
	j.Start(context.Background(), 10*time.Millisecond)
	j.Stop()
	j.Stop()
}

var _ Cache[int] = (*LRUCache[int])(nil)
