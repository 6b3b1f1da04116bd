package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrListenTimeout is the transient per-cycle timeout a Recognizer reports
// when no speech was captured. The listener ignores it and keeps listening.
var ErrListenTimeout = errors.New("listen timeout")

var (
	// ErrListenerRunning is returned by Start while capture is active.
	ErrListenerRunning = errors.New("voice listener is already running")
	// ErrListenerClosed is returned by Start after Close released the recognizer.
	ErrListenerClosed = errors.New("voice listener is closed")
)

// Recognizer captures audio and returns the recognized text. Listen blocks
// until a phrase is recognized, the context is done, or the per-cycle
// timeout elapses.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// ListenerConfig holds configuration for the background listener.
type ListenerConfig struct {
	// ListenTimeout bounds a single capture cycle (default: 5s)
	ListenTimeout time.Duration

	// ErrorBackoff is the pause after a non-timeout recognizer error (default: 1s)
	ErrorBackoff time.Duration
}

// DefaultListenerConfig returns sensible defaults.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		ListenTimeout: 5 * time.Second,
		ErrorBackoff:  1 * time.Second,
	}
}

// Listener repeatedly calls a Recognizer and pushes transcripts onto a Queue.
// It never touches ledger state. Stop pauses capture and may be followed by
// another Start; Close stops for good and releases the recognizer.
type Listener struct {
	recognizer Recognizer
	queue      *Queue
	config     ListenerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cancel  context.CancelFunc
}

func NewListener(recognizer Recognizer, queue *Queue, config ListenerConfig) *Listener {
	return &Listener{
		recognizer: recognizer,
		queue:      queue,
		config:     config,
	}
}

// Start begins the capture loop.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrListenerClosed
	}
	if l.running {
		l.mu.Unlock()
		return ErrListenerRunning
	}
	if l.recognizer == nil || l.queue == nil {
		l.mu.Unlock()
		return errors.New("voice listener requires a recognizer and a queue")
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	go l.runLoop(loopCtx)

	slog.InfoContext(ctx, "Voice listener started",
		"listen_timeout", l.config.ListenTimeout,
		"queue_capacity", l.queue.Cap())

	return nil
}

// Stop signals the loop, interrupts any in-flight capture and waits for the
// loop to exit. The recognizer stays open so capture can be resumed.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	close(l.stopCh)
	l.cancel()
	l.mu.Unlock()

	select {
	case <-l.doneCh:
		slog.InfoContext(ctx, "Voice listener stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Voice listener stop timed out")
		return ctx.Err()
	}

	l.mu.Lock()
	l.running = false
	l.mu.Unlock()

	return nil
}

// Close stops capture and releases the recognizer. Later Starts fail with
// ErrListenerClosed.
func (l *Listener) Close(ctx context.Context) error {
	if err := l.Stop(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	already := l.closed
	l.closed = true
	l.mu.Unlock()
	if !already {
		l.closeRecognizer(ctx)
	}
	return nil
}

// IsRunning returns whether the listener is currently running.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Listener) runLoop(ctx context.Context) {
	defer close(l.doneCh)

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		l.captureOnce(ctx)
	}
}

func (l *Listener) captureOnce(ctx context.Context) {
	cycleCtx := ctx
	if l.config.ListenTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, l.config.ListenTimeout)
		defer cancel()
	}

	text, err := l.recognizer.Listen(cycleCtx)
	switch {
	case err == nil:
	case errors.Is(err, ErrListenTimeout), errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return
	case ctx.Err() != nil:
		return
	case errors.Is(err, io.EOF):
		slog.InfoContext(ctx, "Voice source exhausted")
		l.waitStop(ctx)
		return
	default:
		slog.WarnContext(ctx, "Speech recognition failed", "error", err)
		l.pause(ctx, l.config.ErrorBackoff)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if err := l.queue.Push(text); err != nil {
		slog.WarnContext(ctx, "Dropped voice transcript",
			"error", err,
			"dropped_total", l.queue.Dropped())
		return
	}
	slog.DebugContext(ctx, "Voice transcript queued", "queued", l.queue.Len())
}

// waitStop parks the loop until it is stopped.
func (l *Listener) waitStop(ctx context.Context) {
	select {
	case <-l.stopCh:
	case <-ctx.Done():
	}
}

func (l *Listener) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-l.stopCh:
	case <-ctx.Done():
	}
}

func (l *Listener) closeRecognizer(ctx context.Context) {
	c, ok := l.recognizer.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		slog.WarnContext(ctx, "Failed to close voice recognizer", "error", err)
	}
}
