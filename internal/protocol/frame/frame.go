package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// NoLength marks a layout whose fixed part carries no variable-length field.
const NoLength = -1

// LengthFieldLen is the width of the little-endian length that sizes the variable part.
const LengthFieldLen = 2

var (
	ErrIncomplete      = errors.New("frame: incomplete message")
	ErrMessageTooLarge = errors.New("frame: message too large")
	ErrInvalidLayout   = errors.New("frame: invalid layout")
	ErrDuplicateType   = errors.New("frame: type already registered")
)

// UnknownTypeError reports a type byte that has no registered layout.
type UnknownTypeError struct {
	Type uint8
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("frame: unknown message type %d", e.Type)
}

// Layout describes how the body that follows a type byte is delimited.
type Layout struct {
	// FixedLen is the number of bytes after the type byte that are always present.
	FixedLen int
	// LenOffset is the offset inside the fixed part of the u16 that sizes the
	// variable part, or NoLength.
	LenOffset int
}

// Variable reports whether the layout has a length-prefixed tail.
func (l Layout) Variable() bool {
	return l.LenOffset != NoLength
}

// MaxLen is the largest encoded size, type byte included, a message with this layout can have.
func (l Layout) MaxLen() int {
	n := 1 + l.FixedLen
	if l.Variable() {
		n += 0xFFFF
	}
	return n
}

func (l Layout) validate() error {
	if l.FixedLen < 0 {
		return fmt.Errorf("%w: negative fixed length", ErrInvalidLayout)
	}
	if !l.Variable() {
		return nil
	}
	if l.LenOffset < 0 || l.LenOffset+LengthFieldLen > l.FixedLen {
		return fmt.Errorf("%w: length offset %d outside fixed part of %d bytes", ErrInvalidLayout, l.LenOffset, l.FixedLen)
	}
	return nil
}

// Registry maps type bytes to layouts. It is read-only once handed to a Reader.
type Registry struct {
	layouts [256]Layout
	known   [256]bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds id to layout.
func (r *Registry) Register(id uint8, layout Layout) error {
	if err := layout.validate(); err != nil {
		return err
	}
	if r.known[id] {
		return fmt.Errorf("%w: %d", ErrDuplicateType, id)
	}
	r.layouts[id] = layout
	r.known[id] = true
	return nil
}

// Lookup returns the layout registered for id.
func (r *Registry) Lookup(id uint8) (Layout, bool) {
	if r == nil || !r.known[id] {
		return Layout{}, false
	}
	return r.layouts[id], true
}

// Frame is one complete wire message split into its type byte and body.
// Body holds the fixed part followed by the variable part and is owned by the Frame.
type Frame struct {
	Type uint8
	Body []byte
}

// Len is the encoded size of the frame including the type byte.
func (f Frame) Len() int {
	return 1 + len(f.Body)
}

// Bytes returns the frame in wire order.
func (f Frame) Bytes() []byte {
	return Append(make([]byte, 0, f.Len()), f)
}

// Limits constrains decode memory use.
type Limits struct {
	// MaxMessageBytes bounds one message including its type byte. Zero means no bound.
	MaxMessageBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxMessageBytes: 128 * 1024}
}

func (l Limits) allows(n int) bool {
	return l.MaxMessageBytes <= 0 || n <= l.MaxMessageBytes
}

// ReadFrame blocks on r until one whole message has been read.
func ReadFrame(r io.Reader, reg *Registry, limits Limits) (Frame, error) {
	var typ [1]byte
	if _, err := io.ReadFull(r, typ[:]); err != nil {
		return Frame{}, err
	}
	layout, ok := reg.Lookup(typ[0])
	if !ok {
		return Frame{}, &UnknownTypeError{Type: typ[0]}
	}

	fixed := make([]byte, layout.FixedLen)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return Frame{}, unexpected(err)
	}
	if !layout.Variable() {
		return Frame{Type: typ[0], Body: fixed}, nil
	}

	n := int(binary.LittleEndian.Uint16(fixed[layout.LenOffset:]))
	if need := 1 + layout.FixedLen + n; !limits.allows(need) {
		// consume the body so r is positioned at the next message
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return Frame{}, unexpected(err)
		}
		return Frame{}, fmt.Errorf("%w: type %d needs %d bytes, limit %d", ErrMessageTooLarge, typ[0], need, limits.MaxMessageBytes)
	}
	body := make([]byte, layout.FixedLen+n)
	copy(body, fixed)
	if _, err := io.ReadFull(r, body[layout.FixedLen:]); err != nil {
		return Frame{}, unexpected(err)
	}
	return Frame{Type: typ[0], Body: body}, nil
}

// WriteFrame writes f to w in one call.
func WriteFrame(w io.Writer, f Frame) error {
	_, err := w.Write(f.Bytes())
	return err
}

// Append appends the wire bytes of f to dst.
func Append(dst []byte, f Frame) []byte {
	dst = append(dst, f.Type)
	return append(dst, f.Body...)
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
