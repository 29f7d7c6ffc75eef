package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/lurk/internal/config"
	"github.com/danmuck/lurk/internal/logging"
	"github.com/danmuck/lurk/internal/protocol"
	"github.com/danmuck/lurk/internal/protocol/session"
	"github.com/danmuck/lurk/internal/transcript"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const commandPrefix = "!"

var errQuit = errors.New("quit")

const usage = `/go ROOM                 change room
/fight                   fight the monsters in the room
/pvp NAME                fight a player
/loot NAME               loot a dead player or monster
/char NAME ATK DEF REGEN [DESCRIPTION]
                         describe your character
/start                   start playing
/say NAME TEXT           message a player
/leave                   leave the game
!COMMAND ARGS            command extension (help, broadcast, message, nuke)
/quit                    close the connection`

func main() {
	logging.ConfigureRuntime("lurkclient")

	addr := flag.String("addr", "localhost:5005", "server address")
	configPath := flag.String("config", "", "lurk.toml to load")
	name := flag.String("name", "", "sender name for /say")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}

	conn, err := session.Dial(context.Background(), *addr, cfg.SessionConfig(), cfg.ProtocolOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("connect failed")
	}
	defer conn.Close()

	if cfg.Transcript != "" {
		rec, err := transcript.Create(cfg.Transcript)
		if err != nil {
			log.Fatal().Err(err).Msg("open transcript")
		}
		defer rec.Close()
		conn.WithRecorder(rec)
	}

	log.Info().Str("addr", *addr).Bool("commands", cfg.CommandExtension).Msg("connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var grp errgroup.Group
	grp.Go(func() error {
		defer conn.Close()
		return interact(ctx, os.Stdin, os.Stdout, conn, *name)
	})
	grp.Go(func() error {
		// a closed peer stops interact without waiting for another stdin line
		defer cancel()
		return receive(conn, os.Stdout)
	})
	if err := grp.Wait(); err != nil && !errors.Is(err, errQuit) {
		log.Fatal().Err(err).Msg("session ended")
	}
}

type receiver interface {
	Recv() (protocol.Message, error)
}

// receive prints messages until the peer or the local side closes the
// connection.
func receive(conn receiver, w io.Writer) error {
	for {
		msg, err := conn.Recv()
		if errors.Is(err, protocol.ErrFieldConstraint) {
			log.Warn().Err(err).Msg("skipped malformed message")
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			log.Info().Msg("connection closed")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, protocol.Format(msg))
	}
}

type sender interface {
	Send(protocol.Message) error
}

// interact sends one message per console line until /quit, /leave, the end
// of r, or ctx is done. Lines are scanned on their own goroutine so a blocked
// read of r never holds up shutdown.
func interact(ctx context.Context, r io.Reader, w io.Writer, conn sender, name string) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if line == "/help" {
			fmt.Fprintln(w, usage)
			continue
		}
		msg, err := parseInput(line, name)
		if errors.Is(err, errQuit) {
			return errQuit
		}
		if err != nil {
			fmt.Fprintf(w, "! %v\n", err)
			continue
		}
		if err := conn.Send(msg); err != nil {
			return err
		}
		if msg.Type() == protocol.TypeLeave {
			return errQuit
		}
	}
}

// parseInput turns one console line into the message it asks to send.
func parseInput(line, name string) (protocol.Message, error) {
	if cmd, ok, err := protocol.ParseCommandLine(commandPrefix, line); ok {
		return cmd, err
	}
	argv := strings.Fields(line)
	if len(argv) == 0 || !strings.HasPrefix(argv[0], "/") {
		return nil, fmt.Errorf("unknown input %q, try /help", line)
	}
	rest := argv[1:]
	switch argv[0] {
	case "/quit":
		return nil, errQuit
	case "/go":
		if len(rest) != 1 {
			return nil, errors.New("usage: /go ROOM")
		}
		room, err := strconv.ParseUint(rest[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad room: %w", err)
		}
		return protocol.NewChangeRoom(uint16(room)), nil
	case "/fight":
		return protocol.Fight{}, nil
	case "/start":
		return protocol.Start{}, nil
	case "/leave":
		return protocol.Leave{}, nil
	case "/pvp":
		if len(rest) != 1 {
			return nil, errors.New("usage: /pvp NAME")
		}
		return protocol.NewPvpFight(rest[0])
	case "/loot":
		if len(rest) != 1 {
			return nil, errors.New("usage: /loot NAME")
		}
		return protocol.NewLoot(rest[0])
	case "/say":
		if len(rest) < 2 {
			return nil, errors.New("usage: /say NAME TEXT")
		}
		return protocol.NewChat(rest[0], name, strings.Join(rest[1:], " "), false)
	case "/char":
		return parseCharacter(rest)
	default:
		return nil, fmt.Errorf("unknown command %s, try /help", argv[0])
	}
}

func parseCharacter(rest []string) (protocol.Message, error) {
	if len(rest) < 4 {
		return nil, errors.New("usage: /char NAME ATK DEF REGEN [DESCRIPTION]")
	}
	var stats [3]uint16
	for i, raw := range rest[1:4] {
		v, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad stat %q: %w", raw, err)
		}
		stats[i] = uint16(v)
	}
	c, err := protocol.NewCharacter(rest[0], protocol.FlagReady, protocol.Stats{
		Attack:  stats[0],
		Defense: stats[1],
		Regen:   stats[2],
	}, strings.Join(rest[4:], " "))
	if err != nil {
		return nil, err
	}
	return c, nil
}
