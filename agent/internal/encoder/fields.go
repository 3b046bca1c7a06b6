package encoder

import (
	"github.com/obsidianstack/gcshipper/agent/internal/event"
	"github.com/obsidianstack/gcshipper/pkg/types"
)

// fields reads event values and keeps the first error, so extractors can
// read every field unconditionally and check once at the end.
type fields struct {
	ev  *event.Event
	err error
}

func (f *fields) long(path string) int64 {
	if f.err != nil {
		return 0
	}
	v, err := f.ev.Long(path)
	f.err = err
	return v
}

// str returns nil for a null value, which is written as JSON null.
func (f *fields) str(path string) *string {
	if f.err != nil {
		return nil
	}
	v, err := f.ev.NullableString(path)
	f.err = err
	return v
}

func (f *fields) boolean(path string) bool {
	if f.err != nil {
		return false
	}
	v, err := f.ev.Bool(path)
	f.err = err
	return v
}

func (f *fields) duration() float64 {
	return millis(f.ev.Duration)
}

func (f *fields) copyFailed(name string) types.CopyFailed {
	return types.CopyFailed{
		ObjectCount:  f.long(name + ".objectCount"),
		FirstSize:    f.long(name + ".firstSize"),
		SmallestSize: f.long(name + ".smallestSize"),
		TotalSize:    f.long(name + ".totalSize"),
	}
}

func (f *fields) metaspaceSizes(name string) types.MetaspaceSizes {
	return types.MetaspaceSizes{
		Committed: f.long(name + ".committed"),
		Used:      f.long(name + ".used"),
		Reserved:  f.long(name + ".reserved"),
	}
}

// thread returns nil when no thread is attached.
func (f *fields) thread(path string) *types.Thread {
	if f.err != nil {
		return nil
	}
	th, err := f.ev.Thread(path)
	if err != nil || th == nil {
		f.err = err
		return nil
	}
	return &types.Thread{
		OSName:       th.OSName,
		OSThreadID:   th.OSThreadID,
		JavaName:     th.JavaName,
		JavaThreadID: th.JavaThreadID,
	}
}

// classLoader returns nil unless a loader with a recorded type is attached.
func (f *fields) classLoader(path string) *types.ClassLoader {
	if f.err != nil {
		return nil
	}
	cl, err := f.ev.ClassLoader(path)
	if err != nil || cl == nil || cl.TypeName == nil {
		f.err = err
		return nil
	}
	return &types.ClassLoader{Type: *cl.TypeName, Name: cl.Name}
}

// stackTrace returns nil when the event has no stack trace.
func (f *fields) stackTrace() []string {
	if f.err != nil {
		return nil
	}
	st, err := f.ev.StackTrace()
	if err != nil || st == nil {
		f.err = err
		return nil
	}
	frames := make([]string, len(st.Frames))
	for i, fr := range st.Frames {
		frames[i] = fr.String()
	}
	return frames
}
