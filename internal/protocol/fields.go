package protocol

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const (
	// NameLen is the width of every name field.
	NameLen = 32
	// SenderLen is the usable width of a Message sender; the two bytes after it
	// hold the narration marker.
	SenderLen = 30
	// MaxTextLen is the longest variable field a u16 length can describe.
	MaxTextLen = 0xFFFF
)

var le = binary.LittleEndian

func checkName(t Type, field, s string, limit int) error {
	if len(s) > limit {
		return fieldErr(t, field, "%d bytes exceeds maximum of %d", len(s), limit)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return fieldErr(t, field, "contains a NUL byte")
	}
	return nil
}

func checkText(t Type, field string, n int) error {
	if n > MaxTextLen {
		return fieldErr(t, field, "%d bytes exceeds maximum of %d", n, MaxTextLen)
	}
	return nil
}

// appendName writes s NUL-padded to width bytes.
func appendName(dst []byte, t Type, field, s string, width int) ([]byte, error) {
	if len(s) > width {
		return dst, &RangeError{Type: t, Field: field, Value: len(s), Max: width}
	}
	dst = append(dst, s...)
	for i := len(s); i < width; i++ {
		dst = append(dst, 0)
	}
	return dst, nil
}

func appendLen(dst []byte, t Type, field string, n int) ([]byte, error) {
	if n > MaxTextLen {
		return dst, &RangeError{Type: t, Field: field, Value: n, Max: MaxTextLen}
	}
	return le.AppendUint16(dst, uint16(n)), nil
}

// readName reads a NUL-padded name. Bytes after the first NUL must all be NUL
// so that re-encoding reproduces the input exactly.
func readName(t Type, field string, b []byte) (string, error) {
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		return string(b), nil
	}
	for _, c := range b[n:] {
		if c != 0 {
			return "", fieldErr(t, field, "non-NUL byte in padding")
		}
	}
	return string(b[:n]), nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
