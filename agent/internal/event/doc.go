// Package event models the raw GC event records the agent consumes.
//
// An Event carries its kind name, start time, duration and a Record of named
// values. Values are looked up by dotted path ("heapSpace.committedSize") with
// typed accessors (Long, Double, String, Bool, Thread, ClassLoader,
// StackTrace) that return ErrNoField or ErrFieldType instead of guessing.
//
// Decode parses one event object in the shape printed by `jfr print --json`:
//
//	{"type": "jdk.GarbageCollection", "values": {"startTime": "...", "duration": "PT0.0015S", ...}}
//
// Timespans may be ISO-8601 durations or integer nanoseconds.
package event
