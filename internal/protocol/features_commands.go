//go:build lurkcommands

package protocol

const commandExtensionBuild = true
