package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// wireEvent is one event object as printed by `jfr print --json`.
type wireEvent struct {
	Type   string          `json:"type"`
	Values json.RawMessage `json:"values"`
}

// Decode parses one JSON event object. startTime is required; duration
// defaults to zero for instant events.
func Decode(data []byte) (*Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("event: decode: %w", err)
	}
	if w.Type == "" {
		return nil, fmt.Errorf("event: decode: missing type")
	}

	values := map[string]any{}
	if len(w.Values) > 0 {
		dec := json.NewDecoder(bytes.NewReader(w.Values))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("event: decode %s values: %w", w.Type, err)
		}
	}
	rec := Record(values)

	start, err := parseTime(rec, "startTime")
	if err != nil {
		return nil, fmt.Errorf("event: decode %s: %w", w.Type, err)
	}

	var d time.Duration
	if rec.Has("duration") {
		ns, err := rec.Long("duration")
		if err != nil {
			return nil, fmt.Errorf("event: decode %s: %w", w.Type, err)
		}
		d = time.Duration(ns)
	}

	return &Event{Name: w.Type, StartTime: start, Duration: d, Record: rec}, nil
}

// parseTime accepts an RFC 3339 timestamp or integer nanoseconds since the
// Unix epoch.
func parseTime(rec Record, path string) (time.Time, error) {
	v, err := rec.get(path)
	if err != nil {
		return time.Time{}, err
	}
	switch t := v.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", path, err)
		}
		return ts, nil
	case json.Number:
		ns, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", path, err)
		}
		return time.Unix(0, ns), nil
	}
	return time.Time{}, typeError(path, "timestamp", v)
}
