package protocol

import (
	"errors"
	"io"

	"github.com/danmuck/lurk/internal/observability"
	"github.com/danmuck/lurk/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

const readChunk = 4096

// Decoder turns one connection's incoming bytes into messages. Bytes are
// pushed with Feed or Write and messages pulled with Next; nothing blocks.
//
// Errors from Next fall in three groups:
//   - ErrIncomplete: feed more bytes.
//   - *FieldError or ErrMessageTooLarge: the message was consumed and dropped,
//     the stream is still aligned.
//   - *ProtocolError: the type byte was consumed and framing is lost.
type Decoder struct {
	r    *frame.Reader
	opts Options
}

func NewDecoder(opts Options) *Decoder {
	return &Decoder{
		r:    frame.NewReader(Registry(opts), opts.Limits),
		opts: opts,
	}
}

// Feed buffers p. p is copied and may be reused by the caller.
func (d *Decoder) Feed(p []byte) {
	d.r.Feed(p)
}

// Write implements io.Writer so a decoder can be pumped with io.Copy.
func (d *Decoder) Write(p []byte) (int, error) {
	d.r.Feed(p)
	return len(p), nil
}

// State reports the reader position inside the current message.
func (d *Decoder) State() frame.State {
	return d.r.State()
}

// Buffered is the number of bytes received but not yet decoded.
func (d *Decoder) Buffered() int {
	return d.r.Buffered()
}

// Reset discards buffered input and any partial message.
func (d *Decoder) Reset() {
	d.r.Reset()
}

// Next returns the next complete message.
func (d *Decoder) Next() (Message, error) {
	f, err := d.r.Next()
	if err != nil {
		return nil, d.frameError(err)
	}
	return d.parse(f)
}

func (d *Decoder) frameError(err error) error {
	if errors.Is(err, frame.ErrIncomplete) {
		return ErrIncomplete
	}
	var unknown *frame.UnknownTypeError
	if errors.As(err, &unknown) {
		observability.RecordDecodeError("unknown_type")
		if d.opts.Trace {
			log.Debug().Uint8("type_id", unknown.Type).Msg("unknown message type")
		}
		return &ProtocolError{Kind: UnknownType, TypeID: unknown.Type}
	}
	if errors.Is(err, frame.ErrMessageTooLarge) {
		observability.RecordDecodeError("too_large")
		if d.opts.Trace {
			log.Debug().Err(err).Msg("dropped oversized message")
		}
	}
	return err
}

func (d *Decoder) parse(f frame.Frame) (Message, error) {
	t := Type(f.Type)
	v, ok := lookupVariant(t, d.opts)
	if !ok {
		// The registry and the variant table are built from the same options.
		observability.RecordDecodeError("unknown_type")
		return nil, &ProtocolError{Kind: UnknownType, TypeID: f.Type}
	}
	msg, err := v.parse(f.Body)
	if err != nil {
		observability.RecordDecodeError("field_constraint")
		if d.opts.Trace {
			log.Debug().Err(err).Str("type", t.String()).Msg("rejected message")
		}
		return nil, err
	}
	observability.RecordDecoded(t.String(), f.Len())
	if d.opts.Trace {
		log.Debug().Str("type", t.String()).Int("bytes", f.Len()).Msg("decoded message")
		if e := log.Trace(); e.Enabled() {
			e.Msgf("decoded bytes\n%s", observability.HexDump(f.Bytes()))
		}
	}
	return msg, nil
}

// ReadMessage reads from r until one message is decoded. Bytes past that
// message stay buffered for the next call. It returns io.EOF when r ends on a
// message boundary and io.ErrUnexpectedEOF when it ends inside one.
func (d *Decoder) ReadMessage(r io.Reader) (Message, error) {
	var chunk []byte
	for {
		msg, err := d.Next()
		if !errors.Is(err, ErrIncomplete) {
			return msg, err
		}
		if chunk == nil {
			chunk = make([]byte, readChunk)
		}
		n, rerr := r.Read(chunk)
		if n > 0 {
			d.r.Feed(chunk[:n])
			continue
		}
		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			if d.r.Buffered() == 0 && d.r.Skipping() == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		}
		return nil, rerr
	}
}

// Decode reads exactly one message from r with blocking reads and no
// buffering beyond that message. An oversized message is read and discarded
// before ErrMessageTooLarge is returned, so r stays aligned.
func Decode(r io.Reader, opts Options) (Message, error) {
	d := Decoder{opts: opts}
	f, err := frame.ReadFrame(r, Registry(opts), opts.Limits)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		return nil, d.frameError(err)
	}
	return d.parse(f)
}

// DecodeAll decodes every message in data. It fails on the first error, and
// with io.ErrUnexpectedEOF if data ends inside a message.
func DecodeAll(data []byte, opts Options) ([]Message, error) {
	d := NewDecoder(opts)
	d.Feed(data)
	var out []Message
	for {
		msg, err := d.Next()
		if errors.Is(err, ErrIncomplete) {
			if d.Buffered() > 0 {
				return out, io.ErrUnexpectedEOF
			}
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
}
