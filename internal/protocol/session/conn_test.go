package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/danmuck/lurk/internal/protocol"
	"github.com/danmuck/lurk/internal/testutil/testlog"
	"github.com/danmuck/lurk/internal/transcript"
	"github.com/stretchr/testify/require"
)

func testOptions() protocol.Options {
	opts := protocol.DefaultOptions()
	opts.CommandExtension = true
	return opts
}

func pipe(t *testing.T, cfg Config) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	ca := NewConn(a, cfg, testOptions())
	cb := NewConn(b, cfg, testOptions())
	t.Cleanup(func() {
		_ = ca.Close()
		_ = cb.Close()
	})
	return ca, cb
}

func mustMarshal(t *testing.T, msgs ...protocol.Message) []byte {
	t.Helper()
	var out []byte
	for _, msg := range msgs {
		var err error
		out, err = protocol.AppendMessage(out, msg)
		require.NoError(t, err)
	}
	return out
}

func writeRaw(nc net.Conn, chunks ...[]byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		for _, chunk := range chunks {
			if _, err := nc.Write(chunk); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	return done
}

func TestConnSendRecv(t *testing.T) {
	testlog.Start(t)
	ca, cb := pipe(t, DefaultConfig())

	conn, err := protocol.NewConnection(0, "Aldric", "")
	require.NoError(t, err)
	cmd, err := protocol.NewBroadcastCommand("hello")
	require.NoError(t, err)
	msgs := []protocol.Message{conn, protocol.Start{}, cmd, protocol.Leave{}}

	done := make(chan error, 1)
	go func() {
		for _, msg := range msgs {
			if err := ca.Send(msg); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for _, want := range msgs {
		got, err := cb.Recv()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.NoError(t, <-done)
}

func TestConnQueuesMessagesFromOneRead(t *testing.T) {
	testlog.Start(t)
	a, b := net.Pipe()
	cb := NewConn(b, DefaultConfig(), testOptions())
	defer cb.Close()

	stream := mustMarshal(t, protocol.Fight{}, protocol.Start{}, protocol.Leave{})
	done := writeRaw(a, stream[:2], stream[2:])

	for _, want := range []protocol.Message{protocol.Fight{}, protocol.Start{}, protocol.Leave{}} {
		got, err := cb.Recv()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.NoError(t, <-done)
	require.NoError(t, a.Close())

	_, err := cb.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestConnFieldErrorKeepsStream(t *testing.T) {
	testlog.Start(t)
	a, b := net.Pipe()
	cb := NewConn(b, DefaultConfig(), testOptions())
	defer cb.Close()

	bad := []byte{byte(protocol.TypeError), 42, 0, 0}
	done := writeRaw(a, append(bad, byte(protocol.TypeLeave)))

	_, err := cb.Recv()
	require.ErrorIs(t, err, protocol.ErrFieldConstraint)
	got, err := cb.Recv()
	require.NoError(t, err)
	require.Equal(t, protocol.Leave{}, got)
	require.NoError(t, <-done)
	_ = a.Close()
}

func TestConnProtocolViolationIsSticky(t *testing.T) {
	testlog.Start(t)
	a, b := net.Pipe()
	cb := NewConn(b, DefaultConfig(), testOptions())
	defer cb.Close()

	done := writeRaw(a, []byte{byte(protocol.TypeStart), 0xee, byte(protocol.TypeLeave)})

	got, err := cb.Recv()
	require.NoError(t, err)
	require.Equal(t, protocol.Start{}, got)

	_, err = cb.Recv()
	require.ErrorIs(t, err, protocol.ErrUnknownType)
	_, err = cb.Recv()
	require.ErrorIs(t, err, protocol.ErrUnknownType)
	require.NoError(t, <-done)
	_ = a.Close()
}

func TestConnTruncatedStreamIsUnexpectedEOF(t *testing.T) {
	testlog.Start(t)
	a, b := net.Pipe()
	cb := NewConn(b, DefaultConfig(), testOptions())
	defer cb.Close()

	room, err := protocol.NewRoom(1, "Hall", "dusty")
	require.NoError(t, err)
	stream := mustMarshal(t, room)
	go func() {
		_, _ = a.Write(stream[:10])
		_ = a.Close()
	}()

	_, err = cb.Recv()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestConnReadTimeoutIsRetryable(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	ca, cb := pipe(t, cfg)

	_, err := cb.Recv()
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	require.True(t, ne.Timeout())

	cb.cfg.ReadTimeout = time.Second
	go func() { _ = ca.Send(protocol.Fight{}) }()
	got, err := cb.Recv()
	require.NoError(t, err)
	require.Equal(t, protocol.Fight{}, got)
}

func TestConnRecordsTranscript(t *testing.T) {
	testlog.Start(t)
	ca, cb := pipe(t, DefaultConfig())

	var buf bytes.Buffer
	cb.WithRecorder(transcript.NewWriter(&buf))

	go func() { _ = ca.Send(protocol.Leave{}) }()
	_, err := cb.Recv()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- cb.Send(protocol.Start{}) }()
	got, err := ca.Recv()
	require.NoError(t, err)
	require.Equal(t, protocol.Start{}, got)
	require.NoError(t, <-done)

	recs, err := transcript.ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, []byte{byte(protocol.TypeLeave)}, transcript.Stream(recs, transcript.Inbound))
	require.Equal(t, []byte{byte(protocol.TypeStart)}, transcript.Stream(recs, transcript.Outbound))
}

func TestConnRefusesCommandWithoutExtension(t *testing.T) {
	testlog.Start(t)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	opts := protocol.DefaultOptions()
	opts.CommandExtension = false
	c := NewConn(a, DefaultConfig(), opts)

	cmd, err := protocol.NewHelpCommand("")
	require.NoError(t, err)
	require.ErrorIs(t, c.Send(cmd), protocol.ErrExtensionDisabled)
}

func TestDial(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		nc, err := ln.Accept()
		if err == nil {
			accepted <- nc
		}
		close(accepted)
	}()

	c, err := Dial(context.Background(), ln.Addr().String(), DefaultConfig(), testOptions())
	require.NoError(t, err)
	defer c.Close()

	server := NewConn(<-accepted, DefaultConfig(), testOptions())
	defer server.Close()

	version, err := protocol.NewVersion(2, 3)
	require.NoError(t, err)
	require.NoError(t, server.Send(version))
	got, err := c.Recv()
	require.NoError(t, err)
	require.Equal(t, version, got)
}

func TestDialFailure(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, DefaultConfig(), testOptions())
	require.Error(t, err)
	require.Contains(t, err.Error(), addr)
}
