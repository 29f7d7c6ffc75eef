package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/danmuck/lurk/internal/observability"
	"github.com/danmuck/lurk/internal/protocol/frame"
	"github.com/danmuck/lurk/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func encodeAll(t *testing.T, msgs []Message) []byte {
	t.Helper()
	var out []byte
	for _, msg := range msgs {
		var err error
		out, err = AppendMessage(out, msg)
		require.NoError(t, err)
	}
	return out
}

// drain pulls messages until the decoder reports ErrIncomplete.
func drain(t *testing.T, d *Decoder) []Message {
	t.Helper()
	var out []Message
	for {
		msg, err := d.Next()
		if errors.Is(err, ErrIncomplete) {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestDecoderEmptyInputIsIncomplete(t *testing.T) {
	testlog.Start(t)

	d := NewDecoder(DefaultOptions())
	d.Feed(nil)
	msg, err := d.Next()
	require.Nil(t, msg)
	require.ErrorIs(t, err, ErrIncomplete)
	require.Equal(t, frame.AwaitingType, d.State())
	require.Zero(t, d.Buffered())
}

func TestDecoderConnectionAtEverySplit(t *testing.T) {
	testlog.Start(t)

	want := must[Connection](t)(NewConnection(0, "Aldric", ""))
	b, err := Marshal(want)
	require.NoError(t, err)

	for split := 0; split <= len(b); split++ {
		d := NewDecoder(DefaultOptions())
		var got []Message
		for _, part := range [][]byte{b[:split], b[split:]} {
			d.Feed(part)
			got = append(got, drain(t, d)...)
		}
		require.Len(t, got, 1, "split at %d", split)
		require.Equal(t, want, got[0], "split at %d", split)
		require.Zero(t, d.Buffered())
	}

	for size := 1; size <= len(b); size++ {
		d := NewDecoder(DefaultOptions())
		var got []Message
		for off := 0; off < len(b); off += size {
			d.Feed(b[off:min(off+size, len(b))])
			got = append(got, drain(t, d)...)
		}
		require.Equal(t, []Message{want}, got, "chunk size %d", size)
	}
}

func TestDecoderChunkingInvariance(t *testing.T) {
	testlog.Start(t)

	msgs := sampleMessages(t)
	stream := encodeAll(t, msgs)

	whole := NewDecoder(extendedOptions())
	whole.Feed(stream)
	require.Equal(t, msgs, drain(t, whole))

	for size := 1; size <= 97; size++ {
		d := NewDecoder(extendedOptions())
		var got []Message
		for off := 0; off < len(stream); off += size {
			d.Feed(stream[off:min(off+size, len(stream))])
			got = append(got, drain(t, d)...)
		}
		require.Equal(t, msgs, got, "chunk size %d", size)
	}
}

func TestDecoderStateProgress(t *testing.T) {
	testlog.Start(t)

	room := must[Room](t)(NewRoom(2, "Hall", "long"))
	b, err := Marshal(room)
	require.NoError(t, err)

	d := NewDecoder(DefaultOptions())
	d.Feed(b[:1])
	_, err = d.Next()
	require.ErrorIs(t, err, ErrIncomplete)
	require.Equal(t, frame.AwaitingFixedFields, d.State())
	require.Equal(t, 1, d.Buffered())

	d.Feed(b[1:37])
	_, err = d.Next()
	require.ErrorIs(t, err, ErrIncomplete)
	require.Equal(t, frame.AwaitingVariableFields, d.State())

	d.Feed(b[37:])
	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, room, msg)
	require.Equal(t, frame.Complete, d.State())
	require.Zero(t, d.Buffered())

	d.Feed(b[:3])
	d.Reset()
	require.Equal(t, frame.AwaitingType, d.State())
	require.Zero(t, d.Buffered())
}

func TestDecoderUnknownType(t *testing.T) {
	testlog.Start(t)

	for _, id := range []byte{0, 16, 200} {
		d := NewDecoder(extendedOptions())
		d.Feed([]byte{id})
		msg, err := d.Next()
		require.Nil(t, msg)
		require.ErrorIs(t, err, ErrProtocolViolation)
		require.ErrorIs(t, err, ErrUnknownType)

		var pe *ProtocolError
		require.True(t, errors.As(err, &pe))
		require.Equal(t, UnknownType, pe.Kind)
		require.Equal(t, id, pe.TypeID)
		require.Equal(t, frame.AwaitingType, d.State())
		require.Zero(t, d.Buffered())
	}
}

func TestDecoderWithoutExtensionRejectsCommand(t *testing.T) {
	testlog.Start(t)

	cmd := must[Command](t)(NewBroadcastCommand("hello"))
	b, err := Marshal(cmd)
	require.NoError(t, err)

	d := NewDecoder(baseOptions())
	d.Feed(b)
	_, err = d.Next()
	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, uint8(TypeCommand), pe.TypeID)

	_, err = Decode(bytes.NewReader(b), baseOptions())
	require.ErrorIs(t, err, ErrUnknownType)

	got, err := DecodeAll(b, extendedOptions())
	require.NoError(t, err)
	require.Equal(t, []Message{cmd}, got)
}

func TestDecoderFieldErrorKeepsFraming(t *testing.T) {
	testlog.Start(t)

	room := must[Room](t)(NewRoom(1, "Hall", "desc"))
	badRoom, err := Marshal(room)
	require.NoError(t, err)
	badRoom[3+len("Hall")+1] = 'x' // garbage after the name's NUL

	badError := []byte{byte(TypeError), 9, 2, 0, 'n', 'o'}
	badAccept := []byte{byte(TypeAccept), 0}
	badChat, err := Marshal(must[Chat](t)(NewChat("a", "b", "", false)))
	require.NoError(t, err)
	badChat[65] = 7

	cases := []struct {
		name  string
		bytes []byte
		field string
	}{
		{"room padding", badRoom, "name"},
		{"error code", badError, "code"},
		{"accept type", badAccept, "accepted"},
		{"narration marker", badChat, "narration"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDecoder(DefaultOptions())
			d.Feed(tc.bytes)
			d.Feed([]byte{byte(TypeLeave)})

			_, err := d.Next()
			require.ErrorIs(t, err, ErrFieldConstraint)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			require.Equal(t, tc.field, fe.Field)

			msg, err := d.Next()
			require.NoError(t, err)
			require.Equal(t, Leave{}, msg)
		})
	}
}

func TestDecoderRejectsMalformedCommandPayloads(t *testing.T) {
	testlog.Start(t)

	longTarget := strings.Repeat("t", NameLen+1)
	nuke := append([]byte{byte(TypeCommand), byte(CommandNuke), byte(len(longTarget)), 0}, longTarget...)
	shortMessage := []byte{byte(TypeCommand), byte(CommandMessage), 3, 0, 'B', 'o', 'b'}
	badKind := []byte{byte(TypeCommand), 9, 0, 0}
	emptyArg := []byte{byte(TypeCommand), byte(CommandOther), 3, 0, 'a', 0, 0}

	for _, b := range [][]byte{nuke, shortMessage, badKind, emptyArg} {
		d := NewDecoder(extendedOptions())
		d.Feed(b)
		_, err := d.Next()
		require.ErrorIs(t, err, ErrFieldConstraint)
		require.Zero(t, d.Buffered())
	}
}

func TestDecoderRejectsBrokenVersionList(t *testing.T) {
	testlog.Start(t)

	// declared list of 3 bytes holds a 2-byte length promising 5 bytes
	b := []byte{byte(TypeVersion), 2, 3, 3, 0, 5, 0, 'x'}
	_, err := DecodeAll(b, DefaultOptions())
	require.ErrorIs(t, err, ErrFieldConstraint)

	b = []byte{byte(TypeVersion), 2, 3, 1, 0, 0}
	_, err = DecodeAll(b, DefaultOptions())
	require.ErrorIs(t, err, ErrFieldConstraint)
}

func TestDecoderDropsOversizedMessage(t *testing.T) {
	testlog.Start(t)

	opts := DefaultOptions()
	opts.Limits = frame.Limits{MaxMessageBytes: 64}
	opts.Trace = true

	big := must[Room](t)(NewRoom(1, "Hall", strings.Repeat("d", 100)))
	b := encodeAll(t, []Message{big, Start{}})

	d := NewDecoder(opts)
	d.Feed(b[:40])
	_, err := d.Next()
	require.ErrorIs(t, err, ErrMessageTooLarge)

	d.Feed(b[40:])
	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, Start{}, msg)
}

func TestReadMessageFromStream(t *testing.T) {
	testlog.Start(t)

	msgs := sampleMessages(t)
	stream := encodeAll(t, msgs)

	d := NewDecoder(extendedOptions())
	r := iotest.OneByteReader(bytes.NewReader(stream))
	for _, want := range msgs {
		got, err := d.ReadMessage(r)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := d.ReadMessage(r)
	require.ErrorIs(t, err, io.EOF)

	d = NewDecoder(extendedOptions())
	_, err = d.ReadMessage(bytes.NewReader(stream[:10]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecoderAsWriter(t *testing.T) {
	testlog.Start(t)

	msgs := sampleMessages(t)
	stream := encodeAll(t, msgs)

	d := NewDecoder(extendedOptions())
	n, err := io.Copy(d, iotest.HalfReader(bytes.NewReader(stream)))
	require.NoError(t, err)
	require.Equal(t, int64(len(stream)), n)
	require.Equal(t, msgs, drain(t, d))
}

func TestDecodeBlocking(t *testing.T) {
	testlog.Start(t)

	conn := must[Connection](t)(NewConnection(0, "Aldric", ""))
	b := encodeAll(t, []Message{conn, Leave{}})

	r := bytes.NewReader(b)
	got, err := Decode(r, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, conn, got)
	got, err = Decode(r, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, Leave{}, got)

	_, err = Decode(bytes.NewReader(b[:20]), DefaultOptions())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeAllTruncated(t *testing.T) {
	testlog.Start(t)

	b := encodeAll(t, []Message{Fight{}, must[Game](t)(NewGame(1, 2, "abc"))})
	got, err := DecodeAll(b[:len(b)-1], DefaultOptions())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, []Message{Fight{}}, got)
}

func TestReadMessageEndsInsideSkippedMessage(t *testing.T) {
	testlog.Start(t)

	opts := DefaultOptions()
	opts.Limits = frame.Limits{MaxMessageBytes: 64}
	big := must[Room](t)(NewRoom(1, "Hall", strings.Repeat("d", 100)))
	b, err := Marshal(big)
	require.NoError(t, err)

	d := NewDecoder(opts)
	r := bytes.NewReader(b[:50])
	_, err = d.ReadMessage(r)
	require.ErrorIs(t, err, ErrMessageTooLarge)
	_, err = d.ReadMessage(r)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	d = NewDecoder(opts)
	r = bytes.NewReader(encodeAll(t, []Message{big, Fight{}}))
	_, err = d.ReadMessage(r)
	require.ErrorIs(t, err, ErrMessageTooLarge)
	msg, err := d.ReadMessage(r)
	require.NoError(t, err)
	require.Equal(t, Fight{}, msg)
	_, err = d.ReadMessage(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeSkipsOversizedAndRecordsMetrics(t *testing.T) {
	testlog.Start(t)

	opts := DefaultOptions()
	opts.Limits = frame.Limits{MaxMessageBytes: 64}
	big := must[Room](t)(NewRoom(1, "Hall", strings.Repeat("d", 100)))
	loot := must[Loot](t)(NewLoot("Goblin"))
	stream := encodeAll(t, []Message{big, loot})

	tooLarge := observability.DecodeErrorCount("too_large")
	looted := observability.DecodedCount(TypeLoot.String())
	unknown := observability.DecodeErrorCount("unknown_type")

	r := bytes.NewReader(stream)
	_, err := Decode(r, opts)
	require.ErrorIs(t, err, ErrMessageTooLarge)
	msg, err := Decode(r, opts)
	require.NoError(t, err)
	require.Equal(t, loot, msg)
	_, err = Decode(r, opts)
	require.ErrorIs(t, err, io.EOF)

	_, err = Decode(bytes.NewReader([]byte{0xee}), opts)
	require.ErrorIs(t, err, ErrUnknownType)

	require.Equal(t, tooLarge+1, observability.DecodeErrorCount("too_large"))
	require.Equal(t, looted+1, observability.DecodedCount(TypeLoot.String()))
	require.Equal(t, unknown+1, observability.DecodeErrorCount("unknown_type"))

	// the oversized body ends early
	_, err = Decode(bytes.NewReader(stream[:70]), opts)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
