package protocol

import (
	"fmt"
	"strings"
)

// Format renders msg on one line for logs and dump tools.
func Format(msg Message) string {
	switch m := msg.(type) {
	case nil:
		return "<nil>"
	case Chat:
		kind := "said"
		if m.narration {
			kind = "narrated"
		}
		return fmt.Sprintf("Message %q %s to %q: %q", m.sender, kind, m.recipient, m.text)
	case ChangeRoom:
		return fmt.Sprintf("ChangeRoom room=%d", m.room)
	case PvpFight:
		return fmt.Sprintf("PvpFight target=%q", m.target)
	case Loot:
		return fmt.Sprintf("Loot target=%q", m.target)
	case Accept:
		return fmt.Sprintf("Accept %s", m.accepted)
	case ErrorMessage:
		return fmt.Sprintf("Error %s: %q", m.code, m.text)
	case Room:
		return fmt.Sprintf("Room %d %q: %q", m.room, m.name, m.description)
	case Connection:
		return fmt.Sprintf("Connection %d %q: %q", m.room, m.name, m.description)
	case Character:
		s := m.stats
		return fmt.Sprintf("Character %q flags=%s atk=%d def=%d regen=%d hp=%d gold=%d room=%d: %q",
			m.name, m.flags, s.Attack, s.Defense, s.Regen, s.Health, s.Gold, s.Room, m.description)
	case Game:
		return fmt.Sprintf("Game points=%d limit=%d: %q", m.initialPoints, m.statLimit, m.description)
	case Version:
		return fmt.Sprintf("Version %d.%d extensions=%d", m.major, m.minor, len(m.extensions))
	case Command:
		return formatCommand(m)
	default:
		return msg.Type().String()
	}
}

func formatCommand(m Command) string {
	switch m.kind {
	case CommandMessage:
		return fmt.Sprintf("Command message to %q: %q", m.name, m.text)
	case CommandNuke:
		if m.name == "" {
			return "Command nuke all"
		}
		return fmt.Sprintf("Command nuke %q", m.name)
	case CommandOther:
		return fmt.Sprintf("Command other [%s]", strings.Join(m.args, " "))
	default:
		return fmt.Sprintf("Command %s %q", m.kind, m.text)
	}
}
