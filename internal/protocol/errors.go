package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/lurk/internal/protocol/frame"
)

var (
	// ErrIncomplete is not a failure: more bytes are needed before a message
	// can be produced.
	ErrIncomplete = frame.ErrIncomplete

	ErrMessageTooLarge    = frame.ErrMessageTooLarge
	ErrProtocolViolation  = errors.New("protocol: protocol violation")
	ErrUnknownType        = errors.New("protocol: unknown message type")
	ErrFieldConstraint    = errors.New("protocol: field constraint violation")
	ErrEncodeRange        = errors.New("protocol: value outside encodable range")
	ErrExtensionDisabled  = errors.New("protocol: command extension disabled")
	ErrUnsupportedMessage = errors.New("protocol: unsupported message value")
)

// Violation classifies a ProtocolError.
type Violation uint8

const (
	// UnknownType means the type byte names no enabled variant. The reader
	// cannot know how long the message is, so the stream is desynchronized.
	UnknownType Violation = iota + 1
)

func (v Violation) String() string {
	switch v {
	case UnknownType:
		return "UnknownType"
	default:
		return fmt.Sprintf("Violation(%d)", uint8(v))
	}
}

// ProtocolError reports input that breaks framing. It is not locally
// recoverable; the connection owner should close or resynchronize.
type ProtocolError struct {
	Kind   Violation
	TypeID uint8
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s violation: type id %d", e.Kind, e.TypeID)
}

func (e *ProtocolError) Is(target error) bool {
	switch target {
	case ErrProtocolViolation:
		return true
	case ErrUnknownType:
		return e.Kind == UnknownType
	}
	return false
}

// FieldError reports a field whose value breaks its declared constraint. The
// offending message has been consumed whole, so the reader stays in sync.
type FieldError struct {
	Type       Type
	Field      string
	Constraint string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("protocol: %s.%s: %s", e.Type, e.Field, e.Constraint)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrFieldConstraint
}

func fieldErr(t Type, field, format string, args ...any) error {
	return &FieldError{Type: t, Field: field, Constraint: fmt.Sprintf(format, args...)}
}

// RangeError reports a value that does not fit its wire field at encode time.
type RangeError struct {
	Type  Type
	Field string
	Value int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("protocol: %s.%s: value %d exceeds %d", e.Type, e.Field, e.Value, e.Max)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrEncodeRange
}
