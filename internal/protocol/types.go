package protocol

import "fmt"

// Type is the one-byte identifier that leads every message on the wire.
type Type uint8

const (
	TypeMessage    Type = 1
	TypeChangeRoom Type = 2
	TypeFight      Type = 3
	TypePvpFight   Type = 4
	TypeLoot       Type = 5
	TypeStart      Type = 6
	TypeError      Type = 7
	TypeAccept     Type = 8
	TypeRoom       Type = 9
	TypeCharacter  Type = 10
	TypeGame       Type = 11
	TypeLeave      Type = 12
	TypeConnection Type = 13
	TypeVersion    Type = 14

	// TypeCommand is reserved for the command extension and is unknown to
	// readers that do not enable it.
	TypeCommand Type = 15
)

var typeNames = map[Type]string{
	TypeMessage:    "Message",
	TypeChangeRoom: "ChangeRoom",
	TypeFight:      "Fight",
	TypePvpFight:   "PvpFight",
	TypeLoot:       "Loot",
	TypeStart:      "Start",
	TypeError:      "Error",
	TypeAccept:     "Accept",
	TypeRoom:       "Room",
	TypeCharacter:  "Character",
	TypeGame:       "Game",
	TypeLeave:      "Leave",
	TypeConnection: "Connection",
	TypeVersion:    "Version",
	TypeCommand:    "Command",
}

// String returns a readable name for t, or Unknown(<value>) if it is not mapped.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}

// Defined reports whether t names a message of the base protocol or the
// reserved command identifier.
func (t Type) Defined() bool {
	return t >= TypeMessage && t <= TypeCommand
}

// ErrorCode is the code carried by an Error message.
type ErrorCode uint8

const (
	ErrorOther ErrorCode = iota
	ErrorBadRoom
	ErrorPlayerExists
	ErrorBadMonster
	ErrorStatError
	ErrorNotReady
	ErrorNoTarget
	ErrorNoFight
	ErrorNoPlayerCombat
)

var errorCodeNames = [...]string{
	ErrorOther:          "Other",
	ErrorBadRoom:        "BadRoom",
	ErrorPlayerExists:   "PlayerExists",
	ErrorBadMonster:     "BadMonster",
	ErrorStatError:      "StatError",
	ErrorNotReady:       "NotReady",
	ErrorNoTarget:       "NoTarget",
	ErrorNoFight:        "NoFight",
	ErrorNoPlayerCombat: "NoPlayerCombat",
}

// Valid reports whether c is one of the codes the protocol defines.
func (c ErrorCode) Valid() bool {
	return int(c) < len(errorCodeNames)
}

func (c ErrorCode) String() string {
	if c.Valid() {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("ErrorCode(%d)", uint8(c))
}

// CharacterFlags is the status bit set of a Character. The low three bits are
// reserved and carried through unchanged.
type CharacterFlags uint8

const (
	FlagAlive   CharacterFlags = 0b1000_0000
	FlagBattle  CharacterFlags = 0b0100_0000 // join battle
	FlagMonster CharacterFlags = 0b0010_0000
	FlagStarted CharacterFlags = 0b0001_0000
	FlagReady   CharacterFlags = 0b0000_1000
)

// Preset flag combinations servers assign on death, revival and reset.
const (
	FlagsDead  = FlagBattle | FlagReady
	FlagsAlive = FlagAlive | FlagBattle | FlagReady
	FlagsReset = FlagAlive | FlagBattle
)

// Has reports whether every bit of mask is set.
func (f CharacterFlags) Has(mask CharacterFlags) bool {
	return f&mask == mask
}

func (f CharacterFlags) String() string {
	return fmt.Sprintf("0b%08b", uint8(f))
}
