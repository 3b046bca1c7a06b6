package event

import "fmt"

// Thread is a recorded thread.
type Thread struct {
	OSName       *string
	OSThreadID   int64
	JavaName     *string
	JavaThreadID int64
}

// Thread returns the thread stored at path, or nil when none is attached.
func (r Record) Thread(path string) (*Thread, error) {
	rec, err := r.Nested(path)
	if err != nil || rec == nil {
		return nil, err
	}

	var t Thread
	if t.OSName, err = rec.NullableString("osName"); err != nil {
		return nil, err
	}
	if t.OSThreadID, err = rec.Long("osThreadId"); err != nil {
		return nil, err
	}
	if t.JavaName, err = rec.StringPtr("javaName"); err != nil {
		return nil, err
	}
	if t.JavaThreadID, err = rec.Long("javaThreadId"); err != nil {
		return nil, err
	}
	return &t, nil
}

// ClassLoader is a recorded class loader. TypeName is nil when the loader
// has no recorded class.
type ClassLoader struct {
	TypeName *string
	Name     *string
}

// ClassLoader returns the class loader stored at path, or nil.
func (r Record) ClassLoader(path string) (*ClassLoader, error) {
	rec, err := r.Nested(path)
	if err != nil || rec == nil {
		return nil, err
	}

	var cl ClassLoader
	if cl.TypeName, err = rec.StringPtr("type.name"); err != nil {
		return nil, err
	}
	if cl.Name, err = rec.StringPtr("name"); err != nil {
		return nil, err
	}
	return &cl, nil
}

// Frame is one stack frame.
type Frame struct {
	TypeName string
	Method   string
	// Line is -1 when unknown.
	Line int64
}

// String renders the frame as "java.lang.Thread.run() line: 829".
func (f Frame) String() string {
	if f.Line < 0 {
		return fmt.Sprintf("%s.%s()", f.TypeName, f.Method)
	}
	return fmt.Sprintf("%s.%s() line: %d", f.TypeName, f.Method, f.Line)
}

// StackTrace holds frames innermost first.
type StackTrace struct {
	Truncated bool
	Frames    []Frame
}

// StackTrace returns the event's stack trace, or nil when none is attached.
func (r Record) StackTrace() (*StackTrace, error) {
	rec, err := r.Nested("stackTrace")
	if err != nil || rec == nil {
		return nil, err
	}

	st := &StackTrace{}
	if rec.Has("truncated") {
		if st.Truncated, err = rec.Bool("truncated"); err != nil {
			return nil, err
		}
	}

	frames, err := rec.List("frames")
	if err != nil {
		return nil, err
	}
	st.Frames = make([]Frame, 0, len(frames))
	for _, fr := range frames {
		f := Frame{Line: -1}
		if f.TypeName, err = fr.String("method.type.name"); err != nil {
			return nil, err
		}
		if f.Method, err = fr.String("method.name"); err != nil {
			return nil, err
		}
		if fr.Has("lineNumber") {
			if f.Line, err = fr.Long("lineNumber"); err != nil {
				return nil, err
			}
		}
		st.Frames = append(st.Frames, f)
	}
	return st, nil
}
