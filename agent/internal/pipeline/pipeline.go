package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/obsidianstack/gcshipper/agent/internal/encoder"
	"github.com/obsidianstack/gcshipper/agent/internal/event"
	"github.com/obsidianstack/gcshipper/agent/internal/metrics"
	"github.com/obsidianstack/gcshipper/agent/internal/source"
	"github.com/obsidianstack/gcshipper/pkg/types"
)

// ErrNotIdle is returned by Run on a Driver that has already been started.
var ErrNotIdle = errors.New("pipeline: driver is not idle")

// State is the lifecycle position of a Driver.
type State int32

const (
	Idle State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Encoder turns an event into a document.
type Encoder interface {
	Encode(ev *event.Event) ([]byte, error)
}

// Publisher accepts a document for asynchronous delivery.
type Publisher interface {
	Publish(doc []byte)
}

// Driver runs one stream to completion.
type Driver struct {
	stream  source.Stream
	enc     Encoder
	pub     Publisher
	metrics *metrics.Metrics

	state atomic.Int32
}

// New creates an idle Driver. A nil m gets a private metrics set.
func New(stream source.Stream, enc Encoder, pub Publisher, m *metrics.Metrics) *Driver {
	if m == nil {
		m = metrics.New()
	}
	return &Driver{stream: stream, enc: enc, pub: pub, metrics: m}
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return State(d.state.Load()) }

// Run subscribes to the GC kinds and blocks until the stream ends or ctx is
// cancelled. It returns the stream's error, if any.
func (d *Driver) Run(ctx context.Context) error {
	if !d.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrNotIdle
	}
	name := d.stream.Name()
	defer func() {
		if err := d.stream.Close(); err != nil {
			slog.Warn("pipeline: closing stream failed", "stream", name, "err", err)
		}
		d.state.Store(int32(Terminated))
	}()

	for _, kind := range types.Kinds {
		d.stream.Enable(kind)
		d.stream.OnEvent(kind, d.handle)
	}

	slog.Info("pipeline: running", "stream", name)
	if err := d.stream.Start(ctx); err != nil {
		slog.Error("pipeline: terminated", "stream", name, "err", err)
		return fmt.Errorf("pipeline: %s: %w", name, err)
	}
	slog.Info("pipeline: terminated", "stream", name)
	return nil
}

// handle encodes and publishes one event. Failures affect only this event.
func (d *Driver) handle(ev *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.EncodeErrors.WithLabelValues(metrics.ReasonPanic).Inc()
			slog.Error("pipeline: panic while handling event", "event", ev.Name, "panic", r)
		}
	}()

	d.metrics.EventsReceived.WithLabelValues(ev.Name).Inc()

	doc, err := d.enc.Encode(ev)
	if err != nil {
		reason := metrics.ReasonInvalid
		if errors.Is(err, encoder.ErrUnsupportedKind) {
			reason = metrics.ReasonUnsupported
		}
		d.metrics.EncodeErrors.WithLabelValues(reason).Inc()
		slog.Error("pipeline: dropping event", "event", ev.Name, "reason", reason, "err", err)
		return
	}
	d.pub.Publish(doc)
}
