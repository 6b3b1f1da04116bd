package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Handler consumes one transcript. The drainer is its only caller, so the
// handler may mutate state that is owned by the consumer side.
type Handler func(ctx context.Context, transcript string) error

// DefaultDrainInterval is how often queued transcripts are processed.
const DefaultDrainInterval = 100 * time.Millisecond

// Drainer is the single consumer of a Queue.
type Drainer struct {
	queue    *Queue
	handler  Handler
	interval time.Duration

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDrainer(queue *Queue, handler Handler, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	return &Drainer{
		queue:    queue,
		handler:  handler,
		interval: interval,
	}
}

// Start begins the drain loop. Returns an error if already running.
func (d *Drainer) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("voice drainer is already running")
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	go d.runLoop(ctx)

	slog.InfoContext(ctx, "Voice drainer started", "interval", d.interval)
	return nil
}

// Stop waits for the loop to finish its current batch and then processes
// whatever is still queued.
func (d *Drainer) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	close(d.stopCh)
	d.mu.Unlock()

	select {
	case <-d.doneCh:
		slog.InfoContext(ctx, "Voice drainer stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Voice drainer stop timed out")
		return ctx.Err()
	}

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	return nil
}

// IsRunning returns whether the drainer is currently running.
func (d *Drainer) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Drainer) runLoop(ctx context.Context) {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			d.DrainOnce(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DrainOnce(ctx)
		}
	}
}

// DrainOnce hands every queued transcript to the handler and returns how
// many were processed. Handler errors are logged and do not stop the batch.
func (d *Drainer) DrainOnce(ctx context.Context) int {
	items := d.queue.Drain()
	for _, t := range items {
		if err := d.handler(ctx, t); err != nil {
			slog.WarnContext(ctx, "Voice command failed",
				"transcript", t,
				"error", err)
		}
	}
	if len(items) > 0 {
		slog.DebugContext(ctx, "Drained voice queue", "count", len(items))
	}
	return len(items)
}
