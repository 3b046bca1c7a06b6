package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoField is returned when a value path does not exist on the record.
	ErrNoField = errors.New("no such field")

	// ErrFieldType is returned when a value exists but has the wrong type.
	ErrFieldType = errors.New("unexpected field type")
)

// Event is one observed occurrence of an event kind. Sources own the Event
// for the duration of a handler call; handlers must not retain it.
type Event struct {
	Name      string
	StartTime time.Time
	Duration  time.Duration
	Record
}

// New builds an Event from already-decoded values. Nested records are
// map[string]any and record lists are []any.
func New(name string, start time.Time, d time.Duration, values map[string]any) *Event {
	if values == nil {
		values = map[string]any{}
	}
	return &Event{Name: name, StartTime: start, Duration: d, Record: values}
}

// Record is a set of named values. A nil value means the field is present
// but null.
type Record map[string]any

// lookup walks a dotted path through nested records.
func (r Record) lookup(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether path exists, null or not.
func (r Record) Has(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

func (r Record) get(path string) (any, error) {
	v, ok := r.lookup(path)
	if !ok {
		return nil, fmt.Errorf("event: %s: %w", path, ErrNoField)
	}
	return v, nil
}

// Long returns an integral value. Timespans given as ISO-8601 strings are
// returned in nanoseconds.
func (r Record) Long(path string) (int64, error) {
	v, err := r.get(path)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err == nil && integral(f) {
			return int64(f), nil
		}
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if integral(n) {
			return int64(n), nil
		}
	case time.Duration:
		return int64(n), nil
	case string:
		if d, err := ParseDuration(n); err == nil {
			return int64(d), nil
		}
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, typeError(path, "long", v)
}

// integral reports whether f is a whole number that fits in an int64.
func integral(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

// Double returns a floating point value.
func (r Record) Double(path string) (float64, error) {
	v, err := r.get(path)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, nil
		}
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, typeError(path, "double", v)
}

// String returns a string value. A null value yields "".
func (r Record) String(path string) (string, error) {
	v, err := r.get(path)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	}
	return "", typeError(path, "string", v)
}

// NullableString returns a string value that may be null. A null value
// yields nil; a missing one is ErrNoField.
func (r Record) NullableString(path string) (*string, error) {
	v, err := r.get(path)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &s, nil
	}
	return nil, typeError(path, "string", v)
}

// StringPtr is String for optional values: missing or null yields nil.
func (r Record) StringPtr(path string) (*string, error) {
	v, ok := r.lookup(path)
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, typeError(path, "string", v)
	}
	return &s, nil
}

// Bool returns a boolean value.
func (r Record) Bool(path string) (bool, error) {
	v, err := r.get(path)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeError(path, "boolean", v)
	}
	return b, nil
}

// Nested returns a nested record. Missing or null yields nil.
func (r Record) Nested(path string) (Record, error) {
	v, ok := r.lookup(path)
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil, typeError(path, "record", v)
	}
	return m, nil
}

// List returns a nested record list. Missing or null yields nil.
func (r Record) List(path string) ([]Record, error) {
	v, ok := r.lookup(path)
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, typeError(path, "record list", v)
	}
	out := make([]Record, 0, len(items))
	for i, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, typeError(fmt.Sprintf("%s[%d]", path, i), "record", item)
		}
		out = append(out, m)
	}
	return out, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	}
	return nil, false
}

func typeError(path, want string, got any) error {
	return fmt.Errorf("event: %s: want %s, got %T: %w", path, want, got, ErrFieldType)
}
