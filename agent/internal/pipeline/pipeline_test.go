package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/gcshipper/agent/internal/encoder"
	"github.com/obsidianstack/gcshipper/agent/internal/event"
	"github.com/obsidianstack/gcshipper/agent/internal/metrics"
	"github.com/obsidianstack/gcshipper/agent/internal/source"
	"github.com/obsidianstack/gcshipper/pkg/types"
)

// fakeStream replays a fixed list of events and records how it was set up.
type fakeStream struct {
	mu       sync.Mutex
	enabled  []string
	handlers map[string]source.Handler
	events   []*event.Event
	block    chan struct{} // if set, Start waits on it after replaying
	startErr error
	closed   int
}

func (f *fakeStream) Name() string { return "fake" }

func (f *fakeStream) Enable(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = append(f.enabled, kind)
}

func (f *fakeStream) OnEvent(kind string, fn source.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string]source.Handler{}
	}
	f.handlers[kind] = fn
}

func (f *fakeStream) Start(ctx context.Context) error {
	for _, ev := range f.events {
		f.mu.Lock()
		fn := f.handlers[ev.Name]
		f.mu.Unlock()
		if fn != nil {
			fn(ev)
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return f.startErr
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// publisher records published documents.
type publisher struct {
	mu   sync.Mutex
	docs [][]byte
}

func (p *publisher) Publish(doc []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = append(p.docs, doc)
}

func (p *publisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.docs)
}

type encodeFunc func(*event.Event) ([]byte, error)

func (f encodeFunc) Encode(ev *event.Event) ([]byte, error) { return f(ev) }

type identity struct{}

func (identity) HostName() string      { return "web-1" }
func (identity) Label() (string, bool) { return "", false }

var start = time.Date(2026, 3, 9, 10, 0, 0, 123_000_000, time.UTC)

func gcEvent(id int64) *event.Event {
	return event.New(types.KindGarbageCollection, start, 12500*time.Microsecond, map[string]any{
		"gcId":         id,
		"name":         "G1New",
		"cause":        "G1 Evacuation Pause",
		"sumOfPauses":  int64(12_500_000),
		"longestPause": int64(10_000_000),
	})
}

func TestRun_EnablesEveryKind(t *testing.T) {
	fs := &fakeStream{}
	d := New(fs, encoder.New(identity{}), &publisher{}, nil)

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, types.Kinds, fs.enabled)
	assert.Len(t, fs.handlers, len(types.Kinds))
	for _, kind := range types.Kinds {
		assert.NotNil(t, fs.handlers[kind], kind)
	}
	assert.Equal(t, 1, fs.closed)
	assert.Equal(t, Terminated, d.State())
}

func TestRun_PublishesEncodedEvents(t *testing.T) {
	fs := &fakeStream{events: []*event.Event{gcEvent(1), gcEvent(2)}}
	pub := &publisher{}
	m := metrics.New()
	d := New(fs, encoder.New(identity{}), pub, m)

	require.NoError(t, d.Run(context.Background()))
	require.Equal(t, 2, pub.count())

	doc, err := types.Decode(pub.docs[1])
	require.NoError(t, err)
	gc := doc.(*types.GarbageCollection)
	assert.Equal(t, int64(2), gc.GCID)
	assert.Equal(t, 12.5, gc.Duration)
	assert.Equal(t, "web-1", gc.Host)
	assert.Equal(t, "2026-03-09T10:00:00.123Z", gc.StartTime)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsReceived.WithLabelValues(types.KindGarbageCollection)))
}

func TestRun_EndToEndFromReader(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"jdk.GarbageCollection","values":{"startTime":"2026-03-09T10:00:00.123Z","duration":"PT0.0125S","gcId":42,"name":"G1New","cause":"G1 Evacuation Pause","sumOfPauses":"PT0.0125S","longestPause":"PT0.01S"}}`,
		`{"type":"jdk.ThreadSleep","values":{"startTime":"2026-03-09T10:00:01Z"}}`,
		`not json at all`,
		`{"type":"jdk.GarbageCollection","values":{"startTime":"2026-03-09T10:00:02Z","gcId":43}}`,
	}, "\n")
	pub := &publisher{}
	m := metrics.New()
	d := New(source.NewReader("stdin", strings.NewReader(input)), encoder.New(identity{}), pub, m)

	require.NoError(t, d.Run(context.Background()))
	require.Equal(t, 1, pub.count())

	doc, err := types.Decode(pub.docs[0])
	require.NoError(t, err)
	gc := doc.(*types.GarbageCollection)
	assert.Equal(t, int64(42), gc.GCID)
	assert.Equal(t, 12.5, gc.Duration)
	assert.Equal(t, int64(12_500_000), gc.SumOfPauses)
	assert.Equal(t, int64(10_000_000), gc.LongestPause)
	assert.Nil(t, gc.Label)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EncodeErrors.WithLabelValues(metrics.ReasonInvalid)))
}

func TestRun_SecondRunIsRejected(t *testing.T) {
	fs := &fakeStream{block: make(chan struct{})}
	d := New(fs, encoder.New(identity{}), &publisher{}, nil)

	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()
	require.Eventually(t, func() bool { return d.State() == Running }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, d.Run(context.Background()), ErrNotIdle)

	close(fs.block)
	require.NoError(t, <-errc)
	assert.ErrorIs(t, d.Run(context.Background()), ErrNotIdle)
	assert.Equal(t, 1, fs.closed)
}

func TestRun_StreamErrorIsReturned(t *testing.T) {
	boom := errors.New("subscription lost")
	fs := &fakeStream{startErr: boom}
	d := New(fs, encoder.New(identity{}), &publisher{}, nil)

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fake")
	assert.Equal(t, 1, fs.closed)
	assert.Equal(t, Terminated, d.State())
}

func TestRun_ContextCancelTerminates(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	d := New(source.NewReader("pipe", pr), encoder.New(identity{}), &publisher{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()
	require.Eventually(t, func() bool { return d.State() == Running }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, Terminated, d.State())
}

func TestHandle_EncodeErrorSkipsOnlyThatEvent(t *testing.T) {
	bad := event.New(types.KindGarbageCollection, start, 0, map[string]any{"gcId": "nope"})
	fs := &fakeStream{events: []*event.Event{bad, gcEvent(7)}}
	pub := &publisher{}
	m := metrics.New()
	d := New(fs, encoder.New(identity{}), pub, m)

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EncodeErrors.WithLabelValues(metrics.ReasonInvalid)))
}

func TestHandle_UnsupportedKind(t *testing.T) {
	pub := &publisher{}
	m := metrics.New()
	d := New(&fakeStream{}, encoder.New(identity{}), pub, m)

	d.handle(event.New("jdk.ThreadSleep", start, 0, nil))
	assert.Zero(t, pub.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EncodeErrors.WithLabelValues(metrics.ReasonUnsupported)))
}

func TestHandle_PanicIsContained(t *testing.T) {
	calls := 0
	enc := encodeFunc(func(ev *event.Event) ([]byte, error) {
		calls++
		if calls == 1 {
			panic("extractor bug")
		}
		return []byte(`{}`), nil
	})
	fs := &fakeStream{events: []*event.Event{gcEvent(1), gcEvent(2)}}
	pub := &publisher{}
	m := metrics.New()
	d := New(fs, enc, pub, m)

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EncodeErrors.WithLabelValues(metrics.ReasonPanic)))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "terminated", Terminated.String())
	assert.Equal(t, "State(9)", State(9).String())
}
