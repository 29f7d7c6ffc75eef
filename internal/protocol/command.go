package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// CommandKind selects the payload shape of a Command.
type CommandKind uint8

const (
	CommandHelp CommandKind = iota
	CommandBroadcast
	CommandMessage
	CommandNuke
	CommandOther
)

var commandKindNames = [...]string{
	CommandHelp:      "help",
	CommandBroadcast: "broadcast",
	CommandMessage:   "message",
	CommandNuke:      "nuke",
	CommandOther:     "other",
}

func (k CommandKind) String() string {
	if int(k) < len(commandKindNames) {
		return commandKindNames[k]
	}
	return fmt.Sprintf("CommandKind(%d)", uint8(k))
}

// Command is the command extension message. It travels on TypeCommand and is
// only understood by peers that enable the extension.
//
// Payload per kind:
//
//	Help       topic text
//	Broadcast  text
//	Message    recipient name (32 bytes, NUL padded) followed by text
//	Nuke       target name, unpadded
//	Other      arguments joined by NUL
type Command struct {
	kind CommandKind
	name string
	text string
	args []string
}

// NewHelpCommand asks for help, optionally on a topic.
func NewHelpCommand(topic string) (Command, error) {
	if err := checkText(TypeCommand, "topic", len(topic)); err != nil {
		return Command{}, err
	}
	return Command{kind: CommandHelp, text: topic}, nil
}

// NewBroadcastCommand sends text to every connected player.
func NewBroadcastCommand(text string) (Command, error) {
	if err := checkText(TypeCommand, "text", len(text)); err != nil {
		return Command{}, err
	}
	return Command{kind: CommandBroadcast, text: text}, nil
}

// NewMessageCommand sends text to one player.
func NewMessageCommand(recipient, text string) (Command, error) {
	if err := checkName(TypeCommand, "recipient", recipient, NameLen); err != nil {
		return Command{}, err
	}
	if err := checkText(TypeCommand, "text", NameLen+len(text)); err != nil {
		return Command{}, err
	}
	return Command{kind: CommandMessage, name: recipient, text: text}, nil
}

// NewNukeCommand removes a player, or every player when target is empty.
func NewNukeCommand(target string) (Command, error) {
	if err := checkName(TypeCommand, "target", target, NameLen); err != nil {
		return Command{}, err
	}
	return Command{kind: CommandNuke, name: target}, nil
}

// NewOtherCommand carries an unrecognized command verbatim. Each argument must
// be non-empty and free of NUL bytes.
func NewOtherCommand(args ...string) (Command, error) {
	n := 0
	for i, arg := range args {
		if arg == "" {
			return Command{}, fieldErr(TypeCommand, "args", "argument %d is empty", i)
		}
		if strings.IndexByte(arg, 0) >= 0 {
			return Command{}, fieldErr(TypeCommand, "args", "argument %d contains a NUL byte", i)
		}
		n += len(arg) + 1
	}
	if n > 0 {
		n--
	}
	if err := checkText(TypeCommand, "args", n); err != nil {
		return Command{}, err
	}
	var own []string
	if len(args) > 0 {
		own = append(own, args...)
	}
	return Command{kind: CommandOther, args: own}, nil
}

func (Command) Type() Type { return TypeCommand }

func (m Command) Kind() CommandKind { return m.kind }

// Topic is the help topic of a Help command.
func (m Command) Topic() string {
	if m.kind != CommandHelp {
		return ""
	}
	return m.text
}

// Text is the body of a Broadcast or Message command.
func (m Command) Text() string {
	if m.kind != CommandBroadcast && m.kind != CommandMessage {
		return ""
	}
	return m.text
}

// Recipient is the addressee of a Message command.
func (m Command) Recipient() string {
	if m.kind != CommandMessage {
		return ""
	}
	return m.name
}

// Target is the player a Nuke command removes.
func (m Command) Target() string {
	if m.kind != CommandNuke {
		return ""
	}
	return m.name
}

// Args returns a copy of the arguments of an Other command.
func (m Command) Args() []string {
	if len(m.args) == 0 {
		return nil
	}
	return append([]string(nil), m.args...)
}

func (m Command) payloadLen() int {
	switch m.kind {
	case CommandMessage:
		return NameLen + len(m.text)
	case CommandNuke:
		return len(m.name)
	case CommandOther:
		n := 0
		for _, arg := range m.args {
			n += len(arg) + 1
		}
		if n > 0 {
			n--
		}
		return n
	default:
		return len(m.text)
	}
}

func (m Command) appendBody(dst []byte) ([]byte, error) {
	if int(m.kind) >= len(commandKindNames) {
		return dst, &RangeError{Type: TypeCommand, Field: "kind", Value: int(m.kind), Max: int(CommandOther)}
	}
	dst = append(dst, byte(m.kind))
	dst, err := appendLen(dst, TypeCommand, "payload", m.payloadLen())
	if err != nil {
		return dst, err
	}
	switch m.kind {
	case CommandMessage:
		if dst, err = appendName(dst, TypeCommand, "recipient", m.name, NameLen); err != nil {
			return dst, err
		}
		dst = append(dst, m.text...)
	case CommandNuke:
		dst = append(dst, m.name...)
	case CommandOther:
		for i, arg := range m.args {
			if i > 0 {
				dst = append(dst, 0)
			}
			dst = append(dst, arg...)
		}
	default:
		dst = append(dst, m.text...)
	}
	return dst, nil
}

func parseCommand(body []byte) (Message, error) {
	kind := CommandKind(body[0])
	payload := body[3:]
	switch kind {
	case CommandHelp:
		return Command{kind: kind, text: string(payload)}, nil
	case CommandBroadcast:
		return Command{kind: kind, text: string(payload)}, nil
	case CommandMessage:
		if len(payload) < NameLen {
			return nil, fieldErr(TypeCommand, "recipient", "payload of %d bytes shorter than a name", len(payload))
		}
		recipient, err := readName(TypeCommand, "recipient", payload[:NameLen])
		if err != nil {
			return nil, err
		}
		return Command{kind: kind, name: recipient, text: string(payload[NameLen:])}, nil
	case CommandNuke:
		return NewNukeCommand(string(payload))
	case CommandOther:
		if len(payload) == 0 {
			return Command{kind: kind}, nil
		}
		parts := bytes.Split(payload, []byte{0})
		args := make([]string, len(parts))
		for i, part := range parts {
			args[i] = string(part)
		}
		return NewOtherCommand(args...)
	default:
		return nil, fieldErr(TypeCommand, "kind", "unknown command kind %d", uint8(kind))
	}
}

var ErrNoCommand = errors.New("protocol: empty command line")

// ParseCommandLine turns an operator console line such as "!broadcast hello
// all" into a Command. ok is false when line does not start with prefix.
func ParseCommandLine(prefix, line string) (cmd Command, ok bool, err error) {
	if !strings.HasPrefix(line, prefix) {
		return Command{}, false, nil
	}
	argv := strings.Fields(line[len(prefix):])
	if len(argv) == 0 {
		return Command{}, true, ErrNoCommand
	}
	rest := argv[1:]
	switch strings.ToLower(argv[0]) {
	case "help":
		cmd, err = NewHelpCommand(strings.Join(rest, " "))
	case "broadcast":
		cmd, err = NewBroadcastCommand(strings.Join(rest, " "))
	case "message":
		if len(rest) == 0 {
			return Command{}, true, fieldErr(TypeCommand, "recipient", "missing recipient")
		}
		cmd, err = NewMessageCommand(rest[0], strings.Join(rest[1:], " "))
	case "nuke":
		target := ""
		if len(rest) > 0 {
			target = rest[0]
		}
		cmd, err = NewNukeCommand(target)
	default:
		cmd, err = NewOtherCommand(argv...)
	}
	return cmd, true, err
}
