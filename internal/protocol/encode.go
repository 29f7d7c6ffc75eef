package protocol

import (
	"fmt"
	"io"

	"github.com/danmuck/lurk/internal/observability"
	"github.com/rs/zerolog/log"
)

// Marshal returns the wire bytes of msg: the type byte followed by its fields.
func Marshal(msg Message) ([]byte, error) {
	return AppendMessage(nil, msg)
}

// AppendMessage appends the wire bytes of msg to dst.
func AppendMessage(dst []byte, msg Message) ([]byte, error) {
	if msg == nil || !msg.Type().Defined() {
		return dst, fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}
	start := len(dst)
	dst = append(dst, byte(msg.Type()))
	out, err := msg.appendBody(dst)
	if err != nil {
		return dst[:start], err
	}
	return out, nil
}

// EncodedLen is the number of bytes Marshal produces for msg.
func EncodedLen(msg Message) (int, error) {
	b, err := Marshal(msg)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Encode writes msg to w in a single Write call.
func Encode(w io.Writer, msg Message) error {
	b, err := Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Encoder writes messages to one connection's outgoing stream under a fixed
// set of Options.
type Encoder struct {
	w    io.Writer
	opts Options
}

func NewEncoder(w io.Writer, opts Options) *Encoder {
	return &Encoder{w: w, opts: opts}
}

// Marshal is Marshal honoring the encoder's options: a Command is refused when
// the extension is disabled, since the peer could not frame it.
func (e *Encoder) Marshal(msg Message) ([]byte, error) {
	if msg != nil && msg.Type() == TypeCommand && !e.opts.CommandExtension {
		return nil, ErrExtensionDisabled
	}
	b, err := Marshal(msg)
	if err != nil {
		return nil, err
	}
	observability.RecordEncoded(msg.Type().String(), len(b))
	if e.opts.Trace {
		log.Debug().Str("type", msg.Type().String()).Int("bytes", len(b)).Msg("encoded message")
		if e := log.Trace(); e.Enabled() {
			e.Msgf("encoded bytes\n%s", observability.HexDump(b))
		}
	}
	return b, nil
}

// Encode marshals msg and writes it to the underlying writer.
func (e *Encoder) Encode(msg Message) error {
	b, err := e.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return fmt.Errorf("protocol: write %s: %w", msg.Type(), err)
	}
	return nil
}
