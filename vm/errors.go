package vm

import (
	"fmt"
	"strings"
)

// maxTraceFrames caps how many call frames a runtime error reports, newest
// first.
const maxTraceFrames = 8

// TraceFrame is one entry of a runtime error's stack trace.
type TraceFrame struct {
	Name string
	Line int
}

// Error is a runtime error raised by the machine or by a native function,
// carrying the call-stack trace at the point of failure.
type Error struct {
	msg   string
	cause error
	Trace []TraceFrame
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("runtime error: ")
	sb.WriteString(e.msg)
	for _, fr := range e.Trace {
		fmt.Fprintf(&sb, "\n\tin %s (line %d)", fr.Name, fr.Line)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.cause }

// errorf builds a runtime error with the current stack trace attached.
func (m *VM) errorf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...), Trace: m.trace()}
}

// wrap attaches a trace to an error coming out of a native function,
// leaving already-traced errors untouched.
func (m *VM) wrap(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{msg: err.Error(), cause: err, Trace: m.trace()}
}

// trace captures the last maxTraceFrames call frames, newest first. The
// frame's stored ip points just past the opcode being executed, which is
// what its recorded line number indexes.
func (m *VM) trace() []TraceFrame {
	n := len(m.frames)
	k := n
	if k > maxTraceFrames {
		k = maxTraceFrames
	}
	trace := make([]TraceFrame, 0, k)
	for i := n - 1; i >= n-k; i-- {
		fr := m.frames[i]
		tf := TraceFrame{Name: fr.closure.Name()}
		if p := fr.closure.Proto; p != nil && len(p.Lines) > 0 {
			at := fr.ip - 1
			if at < 0 {
				at = 0
			}
			if at >= len(p.Lines) {
				at = len(p.Lines) - 1
			}
			tf.Line = p.Lines[at]
		}
		trace = append(trace, tf)
	}
	return trace
}
