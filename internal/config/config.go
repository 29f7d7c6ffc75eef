package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/lurk/internal/protocol"
	"github.com/danmuck/lurk/internal/protocol/frame"
	"github.com/danmuck/lurk/internal/protocol/session"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the runtime configuration of the LURK tools.
type Config struct {
	CommandExtension bool
	Trace            bool
	MaxMessageBytes  int
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Transcript       string
}

type fileConfig struct {
	CommandExtension bool   `toml:"command_extension"`
	Trace            bool   `toml:"trace"`
	MaxMessageBytes  int    `toml:"max_message_bytes"`
	ConnectTimeout   string `toml:"connect_timeout"`
	ReadTimeout      string `toml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	Transcript       string `toml:"transcript"`
}

// DefaultConfig mirrors the compiled protocol options and session defaults.
func DefaultConfig() Config {
	opts := protocol.DefaultOptions()
	sess := session.DefaultConfig()
	return Config{
		CommandExtension: opts.CommandExtension,
		Trace:            opts.Trace,
		MaxMessageBytes:  opts.Limits.MaxMessageBytes,
		ConnectTimeout:   sess.ConnectTimeout,
		ReadTimeout:      sess.ReadTimeout,
		WriteTimeout:     sess.WriteTimeout,
	}
}

// Load overlays the keys present in the TOML file at path onto DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	if meta.IsDefined("command_extension") {
		cfg.CommandExtension = raw.CommandExtension
	}
	if meta.IsDefined("trace") {
		cfg.Trace = raw.Trace
	}
	if meta.IsDefined("max_message_bytes") {
		cfg.MaxMessageBytes = raw.MaxMessageBytes
	}
	for _, d := range []struct {
		key string
		raw string
		out *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
	} {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.out = v
	}
	if meta.IsDefined("transcript") {
		cfg.Transcript = strings.TrimSpace(raw.Transcript)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxMessageBytes < 0 {
		return fmt.Errorf("%w: max_message_bytes must not be negative", ErrInvalidConfig)
	}
	if c.MaxMessageBytes > 0 && c.MaxMessageBytes < minMessageBytes() {
		return fmt.Errorf("%w: max_message_bytes %d cannot hold a Message header of %d bytes", ErrInvalidConfig, c.MaxMessageBytes, minMessageBytes())
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// minMessageBytes is the largest fixed part of any message, type byte
// included. A smaller limit would reject messages with empty text.
func minMessageBytes() int {
	layout, _ := protocol.Registry(protocol.Options{CommandExtension: true}).Lookup(uint8(protocol.TypeMessage))
	return 1 + layout.FixedLen
}

// ProtocolOptions is the codec configuration selected by c.
func (c Config) ProtocolOptions() protocol.Options {
	return protocol.Options{
		CommandExtension: c.CommandExtension,
		Trace:            c.Trace,
		Limits:           frame.Limits{MaxMessageBytes: c.MaxMessageBytes},
	}
}

// SessionConfig is the connection configuration selected by c.
func (c Config) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = c.ConnectTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	return cfg
}
