// Package transcript records the raw bytes of a LURK connection so a session
// can be replayed through the decoder later.
//
// A transcript file is a stream of msgpack-encoded Records.
package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack"
)

// Direction says which side of the connection produced a record.
type Direction uint8

const (
	Inbound Direction = iota + 1
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "in"
	case Outbound:
		return "out"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Record is one chunk of bytes as it crossed the connection. Inbound records
// keep the transport's chunking, outbound records hold one whole message.
type Record struct {
	Direction Direction `msgpack:"dir"`
	At        int64     `msgpack:"at"`
	Data      []byte    `msgpack:"data"`
}

// Time is the capture time of the record.
func (r Record) Time() time.Time {
	return time.Unix(0, r.At)
}

// Writer appends records to a stream. It is safe for concurrent use so that
// the read and write halves of a connection can share one.
type Writer struct {
	mu     sync.Mutex
	enc    *msgpack.Encoder
	closer io.Closer
	now    func() time.Time
}

func NewWriter(w io.Writer) *Writer {
	tw := &Writer{enc: msgpack.NewEncoder(w), now: time.Now}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}
	return tw
}

// Create opens path for writing, truncating any previous transcript.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("transcript: create %s: %w", path, err)
	}
	return NewWriter(f), nil
}

// Record writes data as one record. data is not retained.
func (w *Writer) Record(dir Direction, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec := Record{Direction: dir, At: w.now().UnixNano(), Data: data}
	if err := w.enc.Encode(&rec); err != nil {
		return fmt.Errorf("transcript: write record: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Reader returns records in the order they were written.
type Reader struct {
	dec *msgpack.Decoder
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: msgpack.NewDecoder(r)}
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("transcript: read record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	tr := NewReader(r)
	var out []Record
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Stream concatenates the data of every record flowing in dir.
func Stream(records []Record, dir Direction) []byte {
	var out []byte
	for _, rec := range records {
		if rec.Direction == dir {
			out = append(out, rec.Data...)
		}
	}
	return out
}
