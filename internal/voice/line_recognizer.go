package voice

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
)

// LineRecognizer treats each line of a reader as one recognized phrase. It
// stands in for a speech engine when transcripts come from stdin or a file.
type LineRecognizer struct {
	lines  chan string
	errCh  chan error
	closer io.Closer
	once   sync.Once
}

// NewLineRecognizer starts reading r in the background. If r is an io.Closer
// it is closed by Close.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	lr := &LineRecognizer{
		lines: make(chan string),
		errCh: make(chan error, 1),
	}
	if c, ok := r.(io.Closer); ok {
		lr.closer = c
	}
	go lr.scan(r)
	return lr
}

// OpenLineRecognizer reads phrases from the file at path.
func OpenLineRecognizer(path string) (*LineRecognizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewLineRecognizer(f), nil
}

func (lr *LineRecognizer) scan(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lr.lines <- sc.Text()
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	lr.errCh <- err
	close(lr.lines)
}

// Listen returns the next line. It reports ErrListenTimeout when the context
// deadline passes first and io.EOF once the reader is exhausted.
func (lr *LineRecognizer) Listen(ctx context.Context) (string, error) {
	select {
	case line, ok := <-lr.lines:
		if !ok {
			return "", lr.finalErr()
		}
		return line, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrListenTimeout
		}
		return "", ctx.Err()
	}
}

func (lr *LineRecognizer) finalErr() error {
	select {
	case err := <-lr.errCh:
		// Put it back so later calls see the same error.
		lr.errCh <- err
		return err
	default:
		return io.EOF
	}
}

// Close releases the underlying reader.
func (lr *LineRecognizer) Close() error {
	var err error
	lr.once.Do(func() {
		if lr.closer != nil {
			err = lr.closer.Close()
		}
	})
	return err
}
