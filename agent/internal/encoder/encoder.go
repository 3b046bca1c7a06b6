package encoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/obsidianstack/gcshipper/agent/internal/event"
	"github.com/obsidianstack/gcshipper/pkg/types"
)

var (
	// ErrUnsupportedKind is returned for an event kind the agent never subscribes to.
	ErrUnsupportedKind = errors.New("unsupported event kind")

	// ErrEncode is returned when a document cannot be built for an event.
	ErrEncode = errors.New("cannot encode event")
)

// Identity supplies the metadata stamped on every document.
type Identity interface {
	HostName() string
	Label() (string, bool)
}

// Encoder builds documents for one host and optional label. It holds no
// mutable state and is safe for concurrent use.
type Encoder struct {
	host  string
	label *string
}

// New returns an Encoder stamping documents with id's host and label.
func New(id Identity) *Encoder {
	e := &Encoder{host: id.HostName()}
	if label, ok := id.Label(); ok {
		e.label = &label
	}
	return e
}

// Supports reports whether kind has an extractor.
func Supports(kind string) bool {
	_, ok := extractors[kind]
	return ok
}

// Encode returns the JSON document for ev.
func (e *Encoder) Encode(ev *event.Event) ([]byte, error) {
	extract, ok := extractors[ev.Name]
	if !ok {
		return nil, fmt.Errorf("encoder: %q: %w", ev.Name, ErrUnsupportedKind)
	}

	f := &fields{ev: ev}
	doc := extract(e.meta(ev), f)
	if f.err != nil {
		return nil, fmt.Errorf("encoder: %s: %w: %w", ev.Name, ErrEncode, f.err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoder: %s: %w: %w", ev.Name, ErrEncode, err)
	}
	return data, nil
}

func (e *Encoder) meta(ev *event.Event) types.Meta {
	return types.Meta{
		StartTime: formatInstant(ev.StartTime),
		Host:      e.host,
		EventName: ev.Name,
		Label:     e.label,
	}
}

// formatInstant renders t in UTC with the fraction printed in whole groups
// of three digits: 10:15:30Z, 10:15:30.100Z, 10:15:30.000100Z or
// 10:15:30.000000100Z.
func formatInstant(t time.Time) string {
	t = t.UTC()
	ns := t.Nanosecond()
	switch {
	case ns == 0:
		return t.Format("2006-01-02T15:04:05Z")
	case ns%1_000_000 == 0:
		return t.Format("2006-01-02T15:04:05.000Z")
	case ns%1_000 == 0:
		return t.Format("2006-01-02T15:04:05.000000Z")
	default:
		return t.Format("2006-01-02T15:04:05.000000000Z")
	}
}

// millis converts d to fractional milliseconds as seconds*1000 plus
// nanoseconds/1e6, both in float64.
func millis(d time.Duration) float64 {
	secs := d / time.Second
	nanos := d % time.Second
	return float64(secs)*1000.0 + float64(nanos)/1_000_000.0
}
