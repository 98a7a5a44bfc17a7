package loop

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a fatal error raised by the Loop tree or the
// instruction-block lowering driver.
type ErrorKind int

const (
	// ErrInvalidArgument is raised for malformed arguments to a constructor
	// or mutator: a negative repetition count, mutually exclusive options
	// both set, an out-of-range child index.
	ErrInvalidArgument ErrorKind = iota
	// ErrChannelMismatch is raised when two waveforms or loop bodies that
	// are expected to share a channel set do not.
	ErrChannelMismatch
	// ErrNoDefinedChannels is raised when channel discovery walks an
	// instruction block without reaching an EXEC or CHAN to take a channel
	// set from.
	ErrNoDefinedChannels
	// ErrUnhandledInstruction is raised when the lowering driver encounters
	// an instruction kind it does not know how to interpret.
	ErrUnhandledInstruction
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrChannelMismatch:
		return "ChannelMismatch"
	case ErrNoDefinedChannels:
		return "NoDefinedChannels"
	case ErrUnhandledInstruction:
		return "UnhandledInstruction"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the fatal error type returned by Loop and lowering operations. Op
// names the failing operation (e.g. "AppendChild", "MakeCompatible") so a
// caller logging the error can tell where in the pipeline it came from
// without parsing Msg. Cause, if set, is the underlying error this one
// wraps (e.g. a channel-block lowering failure wrapping the instruction
// that triggered it).
type Error struct {
	Kind  ErrorKind
	Op    string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("loop: %s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("loop: %s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Unwrap exposes Cause to errors.Is/errors.As and to github.com/pkg/errors'
// Cause() walk.
func (e *Error) Unwrap() error { return e.Cause }

// newError builds an *Error with a formatted message. No stack trace is
// attached; wrapError is the helper that adds one.
func newError(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// wrapError wraps an underlying cause with operation/kind context, attaching
// a stack trace at the wrap site via github.com/pkg/errors.
func wrapError(cause error, kind ErrorKind, op, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Cause: cause})
}

// IsKind reports whether err is a *Error (directly, or wrapped, including via
// github.com/pkg/errors' stack-trace wrapper) with the given Kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		cause := errors.Cause(err)
		if cause == err {
			return false
		}
		err = cause
	}
	return false
}
