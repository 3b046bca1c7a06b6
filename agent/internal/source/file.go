package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileStream tails a newline-delimited event file.
//
// The parent directory is watched rather than the file, so a rotation
// (rename or remove followed by create) is followed: the rest of the old file
// is read, then the new file is read from its beginning. A file that shrinks
// below the read offset is treated as truncated and re-read from the start.
type FileStream struct {
	dispatcher

	path      string
	fromStart bool

	once    sync.Once
	done    chan struct{}
	started chan struct{} // closed once the watch is in place
}

// NewFile returns a stream tailing path. Unless fromStart is set, content
// already in the file when Start runs is skipped.
func NewFile(path string, fromStart bool) *FileStream {
	return &FileStream{
		path:      path,
		fromStart: fromStart,
		done:      make(chan struct{}),
		started:   make(chan struct{}),
	}
}

func (s *FileStream) Name() string { return "file:" + s.path }

func (s *FileStream) Start(ctx context.Context) error {
	path, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("source: file %s: %w", s.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("source: file %s: create watcher: %w", s.path, err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("source: file %s: watch directory: %w", s.path, err)
	}

	t := &tailer{path: path}
	defer t.close()
	if err := t.open(!s.fromStart); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("source: file %s: %w", s.path, err)
		}
		slog.Info("source: waiting for file to appear", "path", path)
	}

	slog.Info("source: tailing file", "path", path, "from_start", s.fromStart)
	s.drain(t)
	close(s.started)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-s.done:
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				s.drain(t)
				t.close()
				if err := t.open(false); err != nil {
					slog.Warn("source: cannot reopen rotated file", "path", path, "err", err)
					continue
				}
				slog.Info("source: file rotated, reopened", "path", path)
				s.drain(t)
			case ev.Has(fsnotify.Write):
				s.drain(t)
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				// Keep the old handle until a new file is created.
				s.drain(t)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("source: watcher error", "path", path, "err", err)
		}
	}
}

// drain dispatches every complete line currently readable.
func (s *FileStream) drain(t *tailer) {
	if err := t.rewindIfTruncated(); err != nil {
		slog.Warn("source: cannot check file size", "path", t.path, "err", err)
	}
	for {
		line, err := t.next()
		if err != nil {
			slog.Warn("source: read failed", "path", t.path, "err", err)
			return
		}
		if line == nil {
			return
		}
		s.dispatch(s.Name(), line)
	}
}

func (s *FileStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// tailer reads complete lines from an open file, holding back a trailing
// partial line until its newline arrives.
type tailer struct {
	path    string
	f       *os.File
	r       *bufio.Reader
	offset  int64
	partial []byte
}

func (t *tailer) open(atEnd bool) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	var off int64
	if atEnd {
		if off, err = f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return err
		}
	}
	t.f, t.r, t.offset, t.partial = f, bufio.NewReader(f), off, nil
	return nil
}

func (t *tailer) close() {
	if t.f != nil {
		t.f.Close()
		t.f, t.r = nil, nil
	}
}

func (t *tailer) rewindIfTruncated() error {
	if t.f == nil {
		return nil
	}
	info, err := t.f.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= t.offset {
		return nil
	}
	slog.Info("source: file truncated, reading from start", "path", t.path)
	if _, err := t.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	t.r.Reset(t.f)
	t.offset, t.partial = 0, nil
	return nil
}

// next returns the next complete line, or nil when none is available yet.
func (t *tailer) next() ([]byte, error) {
	if t.f == nil {
		return nil, nil
	}
	chunk, err := t.r.ReadBytes('\n')
	t.offset += int64(len(chunk))
	if err == nil {
		line := append(t.partial, chunk...)
		t.partial = nil
		return line, nil
	}
	t.partial = append(t.partial, chunk...)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return nil, err
}
