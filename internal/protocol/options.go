package protocol

import "github.com/danmuck/lurk/internal/protocol/frame"

// Options selects protocol features. Peers must agree on CommandExtension: a
// peer without it reports a Command as an unknown type.
type Options struct {
	// CommandExtension enables the Command variant on TypeCommand.
	CommandExtension bool
	// Trace logs every encoded and decoded message at debug level and its
	// bytes at trace level. It never changes codec behavior.
	Trace bool
	// Limits bounds decoder memory.
	Limits frame.Limits
}

// DefaultOptions returns the options compiled into this build. The
// lurkcommands and lurktrace build tags turn the matching features on.
func DefaultOptions() Options {
	return Options{
		CommandExtension: commandExtensionBuild,
		Trace:            traceBuild,
		Limits:           frame.DefaultLimits(),
	}
}
