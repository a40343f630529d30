package link

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes link failures.
type ErrorKind uint8

const (
	// ErrInterfaceMismatch indicates two stages disagree about a shared
	// variable or block.
	ErrInterfaceMismatch ErrorKind = iota

	// ErrResourceExhausted indicates a location, binding or count cap was
	// exceeded.
	ErrResourceExhausted

	// ErrPlacementConflict indicates two resources claim the same slot.
	ErrPlacementConflict

	// ErrInvalidStages indicates a malformed set of attached shaders.
	ErrInvalidStages

	// ErrInternal indicates an implementation bug.
	ErrInternal
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrInterfaceMismatch:
		return "InterfaceMismatch"
	case ErrResourceExhausted:
		return "ResourceExhausted"
	case ErrPlacementConflict:
		return "PlacementConflict"
	case ErrInvalidStages:
		return "InvalidStages"
	case ErrInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is a link failure. Message is the text written to the info log.
type Error struct {
	Kind    ErrorKind
	Message string

	// Cause is the underlying classification, a *Mismatch for interface
	// mismatches.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("link %s: %s", e.Kind, e.Message)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsInterfaceMismatch returns true if the error is ErrInterfaceMismatch.
func (e *Error) IsInterfaceMismatch() bool {
	return e.Kind == ErrInterfaceMismatch
}

// IsResourceExhausted returns true if the error is ErrResourceExhausted.
func (e *Error) IsResourceExhausted() bool {
	return e.Kind == ErrResourceExhausted
}

// IsPlacementConflict returns true if the error is ErrPlacementConflict.
func (e *Error) IsPlacementConflict() bool {
	return e.Kind == ErrPlacementConflict
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func mismatchError(m *Mismatch) *Error {
	return &Error{Kind: ErrInterfaceMismatch, Message: m.Error(), Cause: m}
}

// InfoLog is an append-only program log. Every entry is terminated by a
// newline.
type InfoLog struct {
	sb strings.Builder
}

// Append adds one entry.
func (l *InfoLog) Append(msg string) {
	l.sb.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		l.sb.WriteByte('\n')
	}
}

// Appendf adds one formatted entry.
func (l *InfoLog) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}

// String returns the whole log.
func (l *InfoLog) String() string {
	return l.sb.String()
}

// Length returns the log length including a terminating NUL, or 0 when the
// log is empty.
func (l *InfoLog) Length() int {
	if l.sb.Len() == 0 {
		return 0
	}
	return l.sb.Len() + 1
}

// Empty reports whether nothing was logged.
func (l *InfoLog) Empty() bool {
	return l.sb.Len() == 0
}

// Reset clears the log.
func (l *InfoLog) Reset() {
	l.sb.Reset()
}
