package protocol

// Stats are the numeric attributes of a Character.
type Stats struct {
	Attack  uint16
	Defense uint16
	Regen   uint16
	Health  int16
	Gold    uint16
	Room    uint16
}

// Character describes a player or monster. Clients send it to create their
// character; servers send it for every entity the player should know about.
type Character struct {
	name        string
	flags       CharacterFlags
	stats       Stats
	description string
}

func NewCharacter(name string, flags CharacterFlags, stats Stats, description string) (Character, error) {
	if err := checkName(TypeCharacter, "name", name, NameLen); err != nil {
		return Character{}, err
	}
	if err := checkText(TypeCharacter, "description", len(description)); err != nil {
		return Character{}, err
	}
	return Character{name: name, flags: flags, stats: stats, description: description}, nil
}

func (Character) Type() Type { return TypeCharacter }

func (m Character) Name() string          { return m.name }
func (m Character) Flags() CharacterFlags { return m.flags }
func (m Character) Stats() Stats          { return m.stats }
func (m Character) Attack() uint16        { return m.stats.Attack }
func (m Character) Defense() uint16       { return m.stats.Defense }
func (m Character) Regen() uint16         { return m.stats.Regen }
func (m Character) Health() int16         { return m.stats.Health }
func (m Character) Gold() uint16          { return m.stats.Gold }
func (m Character) Room() uint16          { return m.stats.Room }
func (m Character) Description() string   { return m.description }

// WithDefaults returns the character as a server admits it: full health, no
// gold, the starting room and reset flags. Name, combat stats and description
// are kept.
func (m Character) WithDefaults() Character {
	m.stats.Health = 100
	m.stats.Gold = 0
	m.stats.Room = 0
	m.flags = FlagsReset
	return m
}

// WithFlags returns a copy of the character carrying flags.
func (m Character) WithFlags(flags CharacterFlags) Character {
	m.flags = flags
	return m
}

// WithStats returns a copy of the character carrying stats.
func (m Character) WithStats(stats Stats) Character {
	m.stats = stats
	return m
}

func (m Character) appendBody(dst []byte) ([]byte, error) {
	dst, err := appendName(dst, TypeCharacter, "name", m.name, NameLen)
	if err != nil {
		return dst, err
	}
	dst = append(dst, byte(m.flags))
	dst = le.AppendUint16(dst, m.stats.Attack)
	dst = le.AppendUint16(dst, m.stats.Defense)
	dst = le.AppendUint16(dst, m.stats.Regen)
	dst = le.AppendUint16(dst, uint16(m.stats.Health))
	dst = le.AppendUint16(dst, m.stats.Gold)
	dst = le.AppendUint16(dst, m.stats.Room)
	if dst, err = appendLen(dst, TypeCharacter, "description", len(m.description)); err != nil {
		return dst, err
	}
	return append(dst, m.description...), nil
}

func parseCharacter(body []byte) (Message, error) {
	name, err := readName(TypeCharacter, "name", body[0:NameLen])
	if err != nil {
		return nil, err
	}
	return Character{
		name:  name,
		flags: CharacterFlags(body[32]),
		stats: Stats{
			Attack:  le.Uint16(body[33:35]),
			Defense: le.Uint16(body[35:37]),
			Regen:   le.Uint16(body[37:39]),
			Health:  int16(le.Uint16(body[39:41])),
			Gold:    le.Uint16(body[41:43]),
			Room:    le.Uint16(body[43:45]),
		},
		description: string(body[47:]),
	}, nil
}
