package protocol

// Message is one LURK protocol message. The set of implementations is closed:
// every variant lives in this package and maps to exactly one Type.
//
// Message values are immutable. Fields are read through accessors, and the
// With* helpers return modified copies.
type Message interface {
	Type() Type
	// appendBody appends everything after the type byte.
	appendBody(dst []byte) ([]byte, error)
}

// Fight asks the server to start a fight against the monsters in the
// player's current room.
type Fight struct{}

func (Fight) Type() Type { return TypeFight }

func (Fight) appendBody(dst []byte) ([]byte, error) { return dst, nil }

// Start tells the server the client's character is ready to play.
type Start struct{}

func (Start) Type() Type { return TypeStart }

func (Start) appendBody(dst []byte) ([]byte, error) { return dst, nil }

// Leave announces that the client is disconnecting.
type Leave struct{}

func (Leave) Type() Type { return TypeLeave }

func (Leave) appendBody(dst []byte) ([]byte, error) { return dst, nil }

// ChangeRoom asks the server to move the player to another room.
type ChangeRoom struct {
	room uint16
}

func NewChangeRoom(room uint16) ChangeRoom {
	return ChangeRoom{room: room}
}

func (ChangeRoom) Type() Type { return TypeChangeRoom }

func (m ChangeRoom) Room() uint16 { return m.room }

func (m ChangeRoom) appendBody(dst []byte) ([]byte, error) {
	return le.AppendUint16(dst, m.room), nil
}

func parseChangeRoom(body []byte) (Message, error) {
	return ChangeRoom{room: le.Uint16(body[0:2])}, nil
}

// PvpFight challenges another player by name.
type PvpFight struct {
	target string
}

func NewPvpFight(target string) (PvpFight, error) {
	if err := checkName(TypePvpFight, "target", target, NameLen); err != nil {
		return PvpFight{}, err
	}
	return PvpFight{target: target}, nil
}

func (PvpFight) Type() Type { return TypePvpFight }

func (m PvpFight) Target() string { return m.target }

func (m PvpFight) appendBody(dst []byte) ([]byte, error) {
	return appendName(dst, TypePvpFight, "target", m.target, NameLen)
}

func parsePvpFight(body []byte) (Message, error) {
	target, err := readName(TypePvpFight, "target", body[0:NameLen])
	if err != nil {
		return nil, err
	}
	return PvpFight{target: target}, nil
}

// Loot takes gold from a dead player or monster in the same room.
type Loot struct {
	target string
}

func NewLoot(target string) (Loot, error) {
	if err := checkName(TypeLoot, "target", target, NameLen); err != nil {
		return Loot{}, err
	}
	return Loot{target: target}, nil
}

func (Loot) Type() Type { return TypeLoot }

func (m Loot) Target() string { return m.target }

func (m Loot) appendBody(dst []byte) ([]byte, error) {
	return appendName(dst, TypeLoot, "target", m.target, NameLen)
}

func parseLoot(body []byte) (Message, error) {
	target, err := readName(TypeLoot, "target", body[0:NameLen])
	if err != nil {
		return nil, err
	}
	return Loot{target: target}, nil
}

// Accept acknowledges an action that has no other direct result.
type Accept struct {
	accepted Type
}

// NewAccept acknowledges a message of type t.
func NewAccept(t Type) (Accept, error) {
	if !t.Defined() {
		return Accept{}, fieldErr(TypeAccept, "accepted", "type %d is not a protocol message type", uint8(t))
	}
	return Accept{accepted: t}, nil
}

func (Accept) Type() Type { return TypeAccept }

// Accepted is the type of the message being acknowledged.
func (m Accept) Accepted() Type { return m.accepted }

func (m Accept) appendBody(dst []byte) ([]byte, error) {
	if !m.accepted.Defined() {
		return dst, &RangeError{Type: TypeAccept, Field: "accepted", Value: int(m.accepted), Max: int(TypeCommand)}
	}
	return append(dst, byte(m.accepted)), nil
}

func parseAccept(body []byte) (Message, error) {
	return NewAccept(Type(body[0]))
}

// ErrorMessage is the protocol's Error message: a code plus readable text.
type ErrorMessage struct {
	code ErrorCode
	text string
}

func NewErrorMessage(code ErrorCode, text string) (ErrorMessage, error) {
	if !code.Valid() {
		return ErrorMessage{}, fieldErr(TypeError, "code", "unknown error code %d", uint8(code))
	}
	if err := checkText(TypeError, "text", len(text)); err != nil {
		return ErrorMessage{}, err
	}
	return ErrorMessage{code: code, text: text}, nil
}

func (ErrorMessage) Type() Type { return TypeError }

func (m ErrorMessage) Code() ErrorCode { return m.code }

func (m ErrorMessage) Text() string { return m.text }

func (m ErrorMessage) appendBody(dst []byte) ([]byte, error) {
	dst = append(dst, byte(m.code))
	dst, err := appendLen(dst, TypeError, "text", len(m.text))
	if err != nil {
		return dst, err
	}
	return append(dst, m.text...), nil
}

func parseErrorMessage(body []byte) (Message, error) {
	return NewErrorMessage(ErrorCode(body[0]), string(body[3:]))
}
