package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// maxLineSize bounds a single event line.
const maxLineSize = 4 << 20

// ReaderStream reads events from an io.Reader until EOF.
type ReaderStream struct {
	dispatcher

	name string
	r    io.Reader

	once sync.Once
	done chan struct{}
}

// NewReader returns a stream over r. If r is an io.Closer, Close closes it.
func NewReader(name string, r io.Reader) *ReaderStream {
	return &ReaderStream{name: name, r: r, done: make(chan struct{})}
}

func (s *ReaderStream) Name() string { return s.name }

// Start reads lines until EOF, Close or ctx cancellation. Reading happens on
// a helper goroutine so a blocked Read does not delay shutdown.
func (s *ReaderStream) Start(ctx context.Context) error {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(s.r)
		sc.Buffer(make([]byte, 64<<10), maxLineSize)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-s.done:
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case line := <-lines:
			s.dispatch(s.name, line)
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("source: read %s: %w", s.name, err)
			}
			return nil
		}
	}
}

func (s *ReaderStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if c, ok := s.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
