package voice

import (
	"context"
	"errors"
)

// Toggle switches a Listener on and off on behalf of callers whose contexts
// end early, such as HTTP handlers. Capture always runs under the base
// context given to NewToggle.
type Toggle struct {
	base     context.Context
	listener *Listener
}

func NewToggle(base context.Context, listener *Listener) *Toggle {
	return &Toggle{base: base, listener: listener}
}

// StartListening resumes capture. A listener that is already running is left
// alone. Once the base context is done capture cannot be resumed.
func (t *Toggle) StartListening(ctx context.Context) error {
	if t.base.Err() != nil {
		return ErrListenerClosed
	}
	if err := t.listener.Start(t.base); err != nil && !errors.Is(err, ErrListenerRunning) {
		return err
	}
	return nil
}

// StopListening pauses capture; queued transcripts are still drained.
func (t *Toggle) StopListening(ctx context.Context) error {
	return t.listener.Stop(ctx)
}

func (t *Toggle) Listening() bool {
	return t.listener.IsRunning()
}
