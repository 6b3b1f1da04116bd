package voice

import (
	"errors"
	"testing"
)

func TestQueuePushDrainFIFO(t *testing.T) {
	q := NewQueue(3)
	for _, s := range []string{"a", "b", "c"} {
		if err := q.Push(s); err != nil {
			t.Fatalf("push %q: %v", s, err)
		}
	}
	if err := q.Push("d"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", q.Dropped())
	}

	got := q.Drain()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if q.Len() != 0 || len(q.Drain()) != 0 {
		t.Error("queue should be empty after drain")
	}
}

func TestNewQueueDefaultSize(t *testing.T) {
	if got := NewQueue(0).Cap(); got != DefaultQueueSize {
		t.Errorf("expected capacity %d, got %d", DefaultQueueSize, got)
	}
}
