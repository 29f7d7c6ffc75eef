package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/lurk/internal/protocol"
	"github.com/danmuck/lurk/internal/transcript"
	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

// Recorder captures the bytes a Conn sends and receives.
type Recorder interface {
	Record(dir transcript.Direction, data []byte) error
}

type result struct {
	msg protocol.Message
	err error
}

// Conn exchanges LURK messages over one network connection. Send and Recv may
// be called from different goroutines; each is serialized with itself.
type Conn struct {
	nc   net.Conn
	cfg  Config
	opts protocol.Options
	rec  Recorder

	readMu  sync.Mutex
	dec     *protocol.Decoder
	pending *queue.Queue
	buf     []byte
	readErr error

	writeMu sync.Mutex
	enc     *protocol.Encoder
}

func NewConn(nc net.Conn, cfg Config, opts protocol.Options) *Conn {
	size := cfg.ReadBufferSize
	if size <= 0 {
		size = DefaultConfig().ReadBufferSize
	}
	return &Conn{
		nc:      nc,
		cfg:     cfg,
		opts:    opts,
		dec:     protocol.NewDecoder(opts),
		pending: queue.New(),
		buf:     make([]byte, size),
		enc:     protocol.NewEncoder(nc, opts),
	}
}

// WithRecorder attaches rec to the connection. Call it before the first Send
// or Recv.
func (c *Conn) WithRecorder(rec Recorder) *Conn {
	c.rec = rec
	return c
}

func (c *Conn) Options() protocol.Options { return c.opts }

func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Send encodes msg and writes it as one write.
func (c *Conn) Send(msg protocol.Message) error {
	b, err := c.enc.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("session: set write deadline: %w", err)
		}
	}
	if _, err := c.nc.Write(b); err != nil {
		return fmt.Errorf("session: send %s: %w", msg.Type(), err)
	}
	c.record(transcript.Outbound, b)
	return nil
}

// Recv returns the next message from the peer. Field errors are returned in
// stream order and the connection stays usable. A protocol violation or a
// transport error is returned and then repeated by every later call. A read
// timeout is returned without closing the stream.
func (c *Conn) Recv() (protocol.Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	for c.pending.Length() == 0 {
		if c.readErr != nil {
			return nil, c.readErr
		}
		if err := c.fill(); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if c.pending.Length() > 0 {
					break
				}
				return nil, err
			}
			c.fail(err)
		}
	}
	r := c.pending.Remove().(result)
	return r.msg, r.err
}

// Buffered is the number of received bytes not yet decoded.
func (c *Conn) Buffered() int {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return c.dec.Buffered()
}

func (c *Conn) Close() error {
	return c.nc.Close()
}

func (c *Conn) fill() error {
	if c.cfg.ReadTimeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return err
		}
	}
	n, err := c.nc.Read(c.buf)
	if n > 0 {
		c.record(transcript.Inbound, c.buf[:n])
		c.dec.Feed(c.buf[:n])
		c.drain()
	}
	if errors.Is(err, io.EOF) && c.dec.Buffered() > 0 {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (c *Conn) drain() {
	for c.readErr == nil {
		msg, err := c.dec.Next()
		if errors.Is(err, protocol.ErrIncomplete) {
			return
		}
		c.pending.Add(result{msg: msg, err: err})
		if errors.Is(err, protocol.ErrProtocolViolation) {
			c.fail(err)
		}
	}
}

func (c *Conn) fail(err error) {
	if c.readErr != nil {
		return
	}
	c.readErr = err
	if errors.Is(err, io.EOF) {
		log.Debug().Str("remote", c.nc.RemoteAddr().String()).Msg("peer closed connection")
		return
	}
	log.Warn().Err(err).Str("remote", c.nc.RemoteAddr().String()).Msg("session read failed")
}

func (c *Conn) record(dir transcript.Direction, b []byte) {
	if c.rec == nil {
		return
	}
	if err := c.rec.Record(dir, b); err != nil {
		log.Warn().Err(err).Str("direction", dir.String()).Msg("transcript record failed")
	}
}
