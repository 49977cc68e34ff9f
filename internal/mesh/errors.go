package mesh

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred.
type Phase string

const (
	PhaseValidate Phase = "validate" // caller input checks
	PhaseBuild    Phase = "build"    // visitor protocol
	PhaseRelease  Phase = "release"  // buffer release
	PhaseEngine   Phase = "engine"   // reconstruction engine
)

// Kind categorizes the error.
type Kind string

const (
	KindInvalidBufferLayout Kind = "invalid_buffer_layout"
	KindIndexOutOfRange     Kind = "index_out_of_range"
	KindVertexOverflow      Kind = "vertex_overflow"
	KindFaceOverflow        Kind = "face_overflow"
	KindIncompleteMesh      Kind = "incomplete_mesh"
	KindProtocol            Kind = "protocol"
	KindDoubleRelease       Kind = "double_release"
	KindNotOwned            Kind = "not_owned"
	KindInvalidParameters   Kind = "invalid_parameters"
	KindEngine              Kind = "engine"
)

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrInvalidBufferLayout = &Error{Kind: KindInvalidBufferLayout}
	ErrIndexOutOfRange     = &Error{Kind: KindIndexOutOfRange}
	ErrVertexOverflow      = &Error{Kind: KindVertexOverflow}
	ErrFaceOverflow        = &Error{Kind: KindFaceOverflow}
	ErrIncompleteMesh      = &Error{Kind: KindIncompleteMesh}
	ErrProtocol            = &Error{Kind: KindProtocol}
	ErrDoubleRelease       = &Error{Kind: KindDoubleRelease}
	ErrNotOwned            = &Error{Kind: KindNotOwned}
	ErrInvalidParameters   = &Error{Kind: KindInvalidParameters}
	ErrEngine              = &Error{Kind: KindEngine}
)

// Error is the structured error returned by every stage that touches mesh
// buffers. Want and Got carry slot counts for overflow and incomplete-mesh
// errors; both are zero otherwise.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Want   int
	Got    int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Want != 0 || e.Got != 0 {
		fmt.Fprintf(&b, " (want %d, got %d)", e.Want, e.Got)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a mesh error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Errorf builds an Error with a formatted detail message.
func Errorf(phase Phase, kind Kind, format string, args ...any) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first mesh error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// IsCursorOverflow reports whether err is a vertex or face cursor overflow.
func IsCursorOverflow(err error) bool {
	return errors.Is(err, ErrVertexOverflow) || errors.Is(err, ErrFaceOverflow)
}
