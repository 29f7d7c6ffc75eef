package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/danmuck/lurk/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	before := DecodedCount("Room")
	RecordDecoded("Room", 48)
	RecordEncoded("Room", 48)
	RecordDecodeError("unknown_type")

	if got := DecodedCount("Room"); got != before+1 {
		t.Fatalf("decoded count: got %v want %v", got, before+1)
	}
	if EncodedCount("Room") < 1 || DecodeErrorCount("unknown_type") < 1 {
		t.Fatalf("expected encoded and error counters to move")
	}
}

func TestWriteSummaryListsCodecCounters(t *testing.T) {
	testlog.Start(t)
	RecordDecoded("Leave", 1)

	var buf bytes.Buffer
	if err := WriteSummary(&buf); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(buf.String(), "lurk_codec_messages_decoded_total type=Leave") {
		t.Fatalf("summary missing decoded counter:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "process_") {
		t.Fatalf("summary leaked non-codec metrics:\n%s", buf.String())
	}
}

func TestHexDumpShowsOffsetsAndASCII(t *testing.T) {
	out := HexDump([]byte("Aldric\x00\x00"))
	if !strings.HasPrefix(out, "00000000") || !strings.Contains(out, "|Aldric..|") {
		t.Fatalf("unexpected dump: %q", out)
	}
}
