package protocol

import (
	"fmt"

	"github.com/danmuck/lurk/internal/protocol/frame"
)

type variant struct {
	layout frame.Layout
	parse  func(body []byte) (Message, error)
}

var baseVariants = map[Type]variant{
	TypeMessage:    {frame.Layout{FixedLen: 66, LenOffset: 0}, parseChat},
	TypeChangeRoom: {frame.Layout{FixedLen: 2, LenOffset: frame.NoLength}, parseChangeRoom},
	TypeFight:      {frame.Layout{FixedLen: 0, LenOffset: frame.NoLength}, func([]byte) (Message, error) { return Fight{}, nil }},
	TypePvpFight:   {frame.Layout{FixedLen: NameLen, LenOffset: frame.NoLength}, parsePvpFight},
	TypeLoot:       {frame.Layout{FixedLen: NameLen, LenOffset: frame.NoLength}, parseLoot},
	TypeStart:      {frame.Layout{FixedLen: 0, LenOffset: frame.NoLength}, func([]byte) (Message, error) { return Start{}, nil }},
	TypeError:      {frame.Layout{FixedLen: 3, LenOffset: 1}, parseErrorMessage},
	TypeAccept:     {frame.Layout{FixedLen: 1, LenOffset: frame.NoLength}, parseAccept},
	TypeRoom:       {frame.Layout{FixedLen: 36, LenOffset: 34}, parseRoom},
	TypeCharacter:  {frame.Layout{FixedLen: 47, LenOffset: 45}, parseCharacter},
	TypeGame:       {frame.Layout{FixedLen: 6, LenOffset: 4}, parseGame},
	TypeLeave:      {frame.Layout{FixedLen: 0, LenOffset: frame.NoLength}, func([]byte) (Message, error) { return Leave{}, nil }},
	TypeConnection: {frame.Layout{FixedLen: 36, LenOffset: 34}, parseConnection},
	TypeVersion:    {frame.Layout{FixedLen: 4, LenOffset: 2}, parseVersion},
}

var commandVariant = variant{frame.Layout{FixedLen: 3, LenOffset: 1}, parseCommand}

var (
	baseRegistry     = buildRegistry(false)
	extendedRegistry = buildRegistry(true)
)

func buildRegistry(commands bool) *frame.Registry {
	reg := frame.NewRegistry()
	for t, v := range baseVariants {
		mustRegister(reg, t, v.layout)
	}
	if commands {
		mustRegister(reg, TypeCommand, commandVariant.layout)
	}
	return reg
}

func mustRegister(reg *frame.Registry, t Type, layout frame.Layout) {
	if err := reg.Register(uint8(t), layout); err != nil {
		panic(fmt.Sprintf("protocol: layout for %s: %v", t, err))
	}
}

// Registry returns the framing table for the variants opts enables.
func Registry(opts Options) *frame.Registry {
	if opts.CommandExtension {
		return extendedRegistry
	}
	return baseRegistry
}

func lookupVariant(t Type, opts Options) (variant, bool) {
	if t == TypeCommand {
		return commandVariant, opts.CommandExtension
	}
	v, ok := baseVariants[t]
	return v, ok
}
