package frame

import (
	"encoding/binary"
	"fmt"
)

// State is the position of a Reader inside the message it is assembling.
type State uint8

const (
	// AwaitingType means no byte of the next message has been consumed.
	AwaitingType State = iota
	// AwaitingFixedFields means the type is known and the fixed part is incomplete.
	AwaitingFixedFields
	// AwaitingVariableFields means the variable length is known and its bytes are incomplete.
	AwaitingVariableFields
	// Complete means the last call yielded a message; the next call starts a new one.
	Complete
)

func (s State) String() string {
	switch s {
	case AwaitingType:
		return "AwaitingType"
	case AwaitingFixedFields:
		return "AwaitingFixedFields"
	case AwaitingVariableFields:
		return "AwaitingVariableFields"
	case Complete:
		return "Complete"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Reader assembles frames from bytes fed in arbitrary chunks. It never blocks:
// when the buffered bytes cannot finish the current message Next returns
// ErrIncomplete and keeps its progress for the following call.
//
// A Reader is owned by one connection and is not safe for concurrent use.
type Reader struct {
	registry *Registry
	limits   Limits

	buf []byte
	off int

	state  State
	typ    uint8
	layout Layout
	need   int

	// skip counts bytes of an oversized message still to be dropped as they arrive.
	skip int
}

func NewReader(reg *Registry, limits Limits) *Reader {
	return &Reader{registry: reg, limits: limits}
}

// State reports where the reader is inside the current message.
func (r *Reader) State() State {
	return r.state
}

// Buffered is the number of received bytes not yet returned in a frame.
func (r *Reader) Buffered() int {
	return len(r.buf) - r.off
}

// Skipping is the number of bytes of a dropped oversized message that have
// not arrived yet. Feed discards them before buffering anything else.
func (r *Reader) Skipping() int {
	return r.skip
}

// Pending is the type byte of the message being assembled, valid only while
// State is AwaitingFixedFields or AwaitingVariableFields.
func (r *Reader) Pending() (uint8, bool) {
	if r.state != AwaitingFixedFields && r.state != AwaitingVariableFields {
		return 0, false
	}
	return r.typ, true
}

// Reset drops buffered bytes and any partially assembled message.
func (r *Reader) Reset() {
	r.buf = r.buf[:0]
	r.off = 0
	r.state = AwaitingType
	r.need = 0
	r.skip = 0
}

// Feed appends p to the reader's input. p is copied.
func (r *Reader) Feed(p []byte) {
	if r.skip > 0 {
		n := min(r.skip, len(p))
		r.skip -= n
		p = p[n:]
	}
	if len(p) == 0 {
		return
	}
	r.compact()
	r.buf = append(r.buf, p...)
}

// Next returns the next complete frame. ErrIncomplete means more input is
// needed; any other error has already consumed the offending message (or, for
// an unknown type, its type byte) so the reader is ready for the next call.
func (r *Reader) Next() (Frame, error) {
	for {
		avail := r.Buffered()
		switch r.state {
		case AwaitingType, Complete:
			r.state = AwaitingType
			if avail < 1 {
				return Frame{}, ErrIncomplete
			}
			id := r.buf[r.off]
			layout, ok := r.registry.Lookup(id)
			if !ok {
				r.off++
				return Frame{}, &UnknownTypeError{Type: id}
			}
			r.typ = id
			r.layout = layout
			r.need = 1 + layout.FixedLen
			r.state = AwaitingFixedFields

		case AwaitingFixedFields:
			if avail < r.need {
				return Frame{}, ErrIncomplete
			}
			if !r.layout.Variable() {
				return r.complete(), nil
			}
			at := r.off + 1 + r.layout.LenOffset
			r.need += int(binary.LittleEndian.Uint16(r.buf[at : at+LengthFieldLen]))
			if !r.limits.allows(r.need) {
				r.drop()
				return Frame{}, fmt.Errorf("%w: type %d needs %d bytes, limit %d", ErrMessageTooLarge, r.typ, r.need, r.limits.MaxMessageBytes)
			}
			r.state = AwaitingVariableFields

		case AwaitingVariableFields:
			if avail < r.need {
				return Frame{}, ErrIncomplete
			}
			return r.complete(), nil

		default:
			r.state = AwaitingType
		}
	}
}

func (r *Reader) complete() Frame {
	body := make([]byte, r.need-1)
	copy(body, r.buf[r.off+1:r.off+r.need])
	r.off += r.need
	r.need = 0
	r.state = Complete
	if r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	}
	return Frame{Type: r.typ, Body: body}
}

// drop discards the current message, including bytes that have not arrived yet.
func (r *Reader) drop() {
	have := min(r.Buffered(), r.need)
	r.off += have
	r.skip = r.need - have
	r.need = 0
	r.state = AwaitingType
}

func (r *Reader) compact() {
	if r.off == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.off:])
	r.buf = r.buf[:n]
	r.off = 0
}
