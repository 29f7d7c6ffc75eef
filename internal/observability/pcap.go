package observability

import (
	"encoding/hex"
	"strings"
)

// HexDump renders b as offset, hex and ASCII columns for trace logs.
func HexDump(b []byte) string {
	return strings.TrimRight(hex.Dump(b), "\n")
}
