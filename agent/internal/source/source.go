package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/obsidianstack/gcshipper/agent/internal/event"
)

// ErrUnknownSource is returned by New for an unrecognised Options.Location.
var ErrUnknownSource = errors.New("unknown source")

// Handler consumes one event. It must not retain ev after returning.
type Handler func(ev *event.Event)

// Stream is a subscription to raw GC events.
type Stream interface {
	// Name identifies the stream in logs.
	Name() string
	// Enable turns on delivery of kind.
	Enable(kind string)
	// OnEvent registers fn for kind, replacing any earlier handler.
	OnEvent(kind string, fn Handler)
	// Start delivers events until the stream ends. A clean end (EOF, Close,
	// ctx cancellation) returns nil.
	Start(ctx context.Context) error
	// Close stops the stream and releases its resources. Safe to call more
	// than once.
	Close() error
}

// Options selects and configures a Stream.
type Options struct {
	// Location is "stdin", "file:<path>" or "nats".
	Location string

	// FromStart makes the file stream read existing content instead of
	// starting at the end of the file.
	FromStart bool

	// NATSURL and NATSSubject configure the nats stream.
	NATSURL     string
	NATSSubject string

	// Stdin overrides os.Stdin for the reader stream.
	Stdin io.Reader
}

// New returns the Stream described by opts.
func New(opts Options) (Stream, error) {
	switch {
	case opts.Location == "" || opts.Location == "stdin":
		r := opts.Stdin
		if r == nil {
			r = os.Stdin
		}
		return NewReader("stdin", r), nil
	case strings.HasPrefix(opts.Location, "file:"):
		path := strings.TrimPrefix(opts.Location, "file:")
		if path == "" {
			return nil, fmt.Errorf("source: file: empty path: %w", ErrUnknownSource)
		}
		return NewFile(path, opts.FromStart), nil
	case opts.Location == "nats":
		if opts.NATSSubject == "" {
			return nil, fmt.Errorf("source: nats: subject is not specified")
		}
		return NewNATS(opts.NATSURL, opts.NATSSubject), nil
	default:
		return nil, fmt.Errorf("source: %q: %w", opts.Location, ErrUnknownSource)
	}
}

// dispatcher holds the enabled kinds and their handlers. It is embedded by
// every stream.
type dispatcher struct {
	mu       sync.RWMutex
	enabled  map[string]bool
	handlers map[string]Handler
}

func (d *dispatcher) Enable(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enabled == nil {
		d.enabled = make(map[string]bool)
	}
	d.enabled[kind] = true
}

func (d *dispatcher) OnEvent(kind string, fn Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = make(map[string]Handler)
	}
	d.handlers[kind] = fn
}

func (d *dispatcher) handler(kind string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.enabled[kind] {
		return nil
	}
	return d.handlers[kind]
}

// dispatch decodes one line and hands it to its handler. Blank lines are
// ignored; undecodable lines are logged and skipped.
func (d *dispatcher) dispatch(stream string, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	ev, err := event.Decode(line)
	if err != nil {
		slog.Warn("source: skipping malformed event", "stream", stream, "err", err)
		return
	}
	if fn := d.handler(ev.Name); fn != nil {
		fn(ev)
	}
}
