package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/lurk/internal/config"
	"github.com/danmuck/lurk/internal/logging"
	"github.com/danmuck/lurk/internal/observability"
	"github.com/danmuck/lurk/internal/protocol"
	"github.com/danmuck/lurk/internal/transcript"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime("lurkdump")
	observability.RegisterMetrics()
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("lurkdump failed")
	}
}

type options struct {
	configPath string
	input      string
	transcript bool
	commands   bool
	trace      bool
	chunk      int
	metrics    bool
}

func parseFlags(args []string) (options, map[string]bool, error) {
	var o options
	fs := flag.NewFlagSet("lurkdump", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "lurk.toml to load before applying flags")
	fs.StringVar(&o.input, "input", "-", "capture to decode, - for stdin")
	fs.BoolVar(&o.transcript, "transcript", false, "input is a msgpack transcript instead of raw bytes")
	fs.BoolVar(&o.commands, "commands", false, "enable the command extension")
	fs.BoolVar(&o.trace, "trace", false, "log every decoded message")
	fs.IntVar(&o.chunk, "chunk", 0, "feed the decoder n bytes at a time, 0 for all at once")
	fs.BoolVar(&o.metrics, "metrics", false, "print codec counters after decoding")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if o.chunk < 0 {
		return options{}, nil, fmt.Errorf("chunk must not be negative: %d", o.chunk)
	}
	return o, set, nil
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	o, set, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if o.configPath != "" {
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}
	if set["commands"] {
		cfg.CommandExtension = o.commands
	}
	if set["trace"] {
		cfg.Trace = o.trace
	}
	opts := cfg.ProtocolOptions()

	data, err := readInput(o.input, stdin)
	if err != nil {
		return err
	}

	if !o.transcript {
		if err := dump(stdout, "", data, opts, o.chunk); err != nil {
			return err
		}
	} else {
		recs, err := transcript.ReadAll(bytes.NewReader(data))
		if err != nil {
			return err
		}
		for _, dir := range []transcript.Direction{transcript.Inbound, transcript.Outbound} {
			stream := transcript.Stream(recs, dir)
			if len(stream) == 0 {
				continue
			}
			if err := dump(stdout, dir.String()+" ", stream, opts, o.chunk); err != nil {
				return err
			}
		}
	}

	if o.metrics {
		return observability.WriteSummary(stdout)
	}
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// dump decodes data and prints one line per message. Field errors are printed
// and skipped; a protocol violation ends the dump since framing is lost.
func dump(w io.Writer, prefix string, data []byte, opts protocol.Options, chunk int) error {
	dec := protocol.NewDecoder(opts)
	if chunk <= 0 {
		chunk = len(data)
	}
	count := 0
	for start := 0; start < len(data); start += chunk {
		dec.Feed(data[start:min(start+chunk, len(data))])
		for {
			msg, err := dec.Next()
			if errors.Is(err, protocol.ErrIncomplete) {
				break
			}
			if errors.Is(err, protocol.ErrProtocolViolation) {
				fmt.Fprintf(w, "%s! %v\n", prefix, err)
				return nil
			}
			if err != nil {
				fmt.Fprintf(w, "%s! %v\n", prefix, err)
				continue
			}
			count++
			fmt.Fprintf(w, "%s%4d %s\n", prefix, count, protocol.Format(msg))
		}
	}
	if n := dec.Buffered(); n > 0 {
		fmt.Fprintf(w, "%s! truncated: %d trailing bytes\n", prefix, n)
	}
	return nil
}
