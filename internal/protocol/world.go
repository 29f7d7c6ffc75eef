package protocol

// Room describes the room the player is in. Servers send it after ChangeRoom
// and Start, and may re-send it at any time.
type Room struct {
	room        uint16
	name        string
	description string
}

func NewRoom(room uint16, name, description string) (Room, error) {
	if err := checkPlace(TypeRoom, name, description); err != nil {
		return Room{}, err
	}
	return Room{room: room, name: name, description: description}, nil
}

func (Room) Type() Type { return TypeRoom }

func (m Room) Room() uint16        { return m.room }
func (m Room) Name() string        { return m.name }
func (m Room) Description() string { return m.description }

func (m Room) appendBody(dst []byte) ([]byte, error) {
	return appendPlace(dst, TypeRoom, m.room, m.name, m.description)
}

func parseRoom(body []byte) (Message, error) {
	room, name, description, err := readPlace(TypeRoom, body)
	if err != nil {
		return nil, err
	}
	return Room{room: room, name: name, description: description}, nil
}

// Connection describes a room reachable from the player's current room.
// Its description may differ from the one sent once the room is entered.
type Connection struct {
	room        uint16
	name        string
	description string
}

func NewConnection(room uint16, name, description string) (Connection, error) {
	if err := checkPlace(TypeConnection, name, description); err != nil {
		return Connection{}, err
	}
	return Connection{room: room, name: name, description: description}, nil
}

func (Connection) Type() Type { return TypeConnection }

func (m Connection) Room() uint16        { return m.room }
func (m Connection) Name() string        { return m.name }
func (m Connection) Description() string { return m.description }

func (m Connection) appendBody(dst []byte) ([]byte, error) {
	return appendPlace(dst, TypeConnection, m.room, m.name, m.description)
}

func parseConnection(body []byte) (Message, error) {
	room, name, description, err := readPlace(TypeConnection, body)
	if err != nil {
		return nil, err
	}
	return Connection{room: room, name: name, description: description}, nil
}

// Room and Connection share one layout: room u16, name, length u16, description.

func checkPlace(t Type, name, description string) error {
	if err := checkName(t, "name", name, NameLen); err != nil {
		return err
	}
	return checkText(t, "description", len(description))
}

func appendPlace(dst []byte, t Type, room uint16, name, description string) ([]byte, error) {
	dst = le.AppendUint16(dst, room)
	dst, err := appendName(dst, t, "name", name, NameLen)
	if err != nil {
		return dst, err
	}
	if dst, err = appendLen(dst, t, "description", len(description)); err != nil {
		return dst, err
	}
	return append(dst, description...), nil
}

func readPlace(t Type, body []byte) (uint16, string, string, error) {
	name, err := readName(t, "name", body[2:2+NameLen])
	if err != nil {
		return 0, "", "", err
	}
	return le.Uint16(body[0:2]), name, string(body[2+NameLen+2:]), nil
}

// Game is sent once on connect to describe the game. InitialPoints caps the
// sum of attack, defense and regen of a new character; StatLimit caps it for
// any character, 65535 meaning unused.
type Game struct {
	initialPoints uint16
	statLimit     uint16
	description   string
}

func NewGame(initialPoints, statLimit uint16, description string) (Game, error) {
	if err := checkText(TypeGame, "description", len(description)); err != nil {
		return Game{}, err
	}
	return Game{initialPoints: initialPoints, statLimit: statLimit, description: description}, nil
}

func (Game) Type() Type { return TypeGame }

func (m Game) InitialPoints() uint16 { return m.initialPoints }
func (m Game) StatLimit() uint16     { return m.statLimit }
func (m Game) Description() string   { return m.description }

func (m Game) appendBody(dst []byte) ([]byte, error) {
	dst = le.AppendUint16(dst, m.initialPoints)
	dst = le.AppendUint16(dst, m.statLimit)
	dst, err := appendLen(dst, TypeGame, "description", len(m.description))
	if err != nil {
		return dst, err
	}
	return append(dst, m.description...), nil
}

func parseGame(body []byte) (Message, error) {
	return Game{
		initialPoints: le.Uint16(body[0:2]),
		statLimit:     le.Uint16(body[2:4]),
		description:   string(body[6:]),
	}, nil
}

// Version is sent by the server on connect, alongside Game. Extensions are
// opaque blobs, each written as a u16 length followed by its bytes.
type Version struct {
	major      uint8
	minor      uint8
	extensions [][]byte
}

func NewVersion(major, minor uint8, extensions ...[]byte) (Version, error) {
	total := 0
	var exts [][]byte
	for i, ext := range extensions {
		if len(ext) > MaxTextLen {
			return Version{}, fieldErr(TypeVersion, "extensions", "extension %d is %d bytes, maximum %d", i, len(ext), MaxTextLen)
		}
		total += 2 + len(ext)
		exts = append(exts, cloneBytes(ext))
	}
	if err := checkText(TypeVersion, "extensions", total); err != nil {
		return Version{}, err
	}
	return Version{major: major, minor: minor, extensions: exts}, nil
}

func (Version) Type() Type { return TypeVersion }

func (m Version) Major() uint8 { return m.major }
func (m Version) Minor() uint8 { return m.minor }

// Extensions returns copies of the extension blobs.
func (m Version) Extensions() [][]byte {
	if m.extensions == nil {
		return nil
	}
	out := make([][]byte, len(m.extensions))
	for i, ext := range m.extensions {
		out[i] = cloneBytes(ext)
	}
	return out
}

func (m Version) extensionsLen() int {
	n := 0
	for _, ext := range m.extensions {
		n += 2 + len(ext)
	}
	return n
}

func (m Version) appendBody(dst []byte) ([]byte, error) {
	dst = append(dst, m.major, m.minor)
	dst, err := appendLen(dst, TypeVersion, "extensions", m.extensionsLen())
	if err != nil {
		return dst, err
	}
	for _, ext := range m.extensions {
		if dst, err = appendLen(dst, TypeVersion, "extension", len(ext)); err != nil {
			return dst, err
		}
		dst = append(dst, ext...)
	}
	return dst, nil
}

func parseVersion(body []byte) (Message, error) {
	m := Version{major: body[0], minor: body[1]}
	list := body[4:]
	for len(list) > 0 {
		if len(list) < 2 {
			return nil, fieldErr(TypeVersion, "extensions", "truncated extension length")
		}
		n := int(le.Uint16(list[0:2]))
		if len(list)-2 < n {
			return nil, fieldErr(TypeVersion, "extensions", "extension of %d bytes overruns list", n)
		}
		m.extensions = append(m.extensions, cloneBytes(list[2:2+n]))
		list = list[2+n:]
	}
	return m, nil
}

// Chat is the protocol's Message message: text from one player, the server or
// the narrator to a recipient. Narration is flagged in the two bytes that
// follow the 30-byte sender.
type Chat struct {
	recipient string
	sender    string
	narration bool
	text      string
}

func NewChat(recipient, sender, text string, narration bool) (Chat, error) {
	if err := checkName(TypeMessage, "recipient", recipient, NameLen); err != nil {
		return Chat{}, err
	}
	if err := checkName(TypeMessage, "sender", sender, SenderLen); err != nil {
		return Chat{}, err
	}
	if err := checkText(TypeMessage, "text", len(text)); err != nil {
		return Chat{}, err
	}
	return Chat{recipient: recipient, sender: sender, narration: narration, text: text}, nil
}

// ServerMessage builds a non-narrated message from "Server", used for system notices.
func ServerMessage(recipient, text string) (Chat, error) {
	return NewChat(recipient, "Server", text, false)
}

// NarratorMessage builds a narrated message from "Narrator", used for room
// descriptions and other story text.
func NarratorMessage(recipient, text string) (Chat, error) {
	return NewChat(recipient, "Narrator", text, true)
}

func (Chat) Type() Type { return TypeMessage }

func (m Chat) Recipient() string { return m.recipient }
func (m Chat) Sender() string    { return m.sender }
func (m Chat) Narration() bool   { return m.narration }
func (m Chat) Text() string      { return m.text }

func (m Chat) appendBody(dst []byte) ([]byte, error) {
	dst, err := appendLen(dst, TypeMessage, "text", len(m.text))
	if err != nil {
		return dst, err
	}
	if dst, err = appendName(dst, TypeMessage, "recipient", m.recipient, NameLen); err != nil {
		return dst, err
	}
	if dst, err = appendName(dst, TypeMessage, "sender", m.sender, SenderLen); err != nil {
		return dst, err
	}
	marker := byte(0)
	if m.narration {
		marker = 1
	}
	dst = append(dst, 0, marker)
	return append(dst, m.text...), nil
}

func parseChat(body []byte) (Message, error) {
	recipient, err := readName(TypeMessage, "recipient", body[2:34])
	if err != nil {
		return nil, err
	}
	sender, err := readName(TypeMessage, "sender", body[34:64])
	if err != nil {
		return nil, err
	}
	var narration bool
	switch {
	case body[64] == 0 && body[65] == 0:
	case body[64] == 0 && body[65] == 1:
		narration = true
	default:
		return nil, fieldErr(TypeMessage, "narration", "invalid marker %#02x %#02x", body[64], body[65])
	}
	return Chat{recipient: recipient, sender: sender, narration: narration, text: string(body[66:])}, nil
}
