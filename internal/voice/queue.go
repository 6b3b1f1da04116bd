// Package voice runs speech capture in the background and hands recognized
// transcripts to a single consumer through a bounded queue.
package voice

import (
	"errors"
	"sync/atomic"
)

// ErrQueueFull is returned by Push when the queue is at capacity.
var ErrQueueFull = errors.New("voice queue full")

// DefaultQueueSize bounds how many transcripts may wait for the drainer.
const DefaultQueueSize = 64

// Queue is a bounded FIFO of transcripts. Push never blocks; Drain is meant
// for exactly one consumer.
type Queue struct {
	ch      chan string
	dropped atomic.Int64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan string, size)}
}

// Push enqueues a transcript, or drops it and returns ErrQueueFull.
func (q *Queue) Push(transcript string) error {
	select {
	case q.ch <- transcript:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Drain removes and returns everything currently queued, oldest first.
func (q *Queue) Drain() []string {
	var out []string
	for {
		select {
		case t := <-q.ch:
			out = append(out, t)
		default:
			return out
		}
	}
}

// Len returns the number of queued transcripts.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped returns how many pushes were rejected because the queue was full.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }
