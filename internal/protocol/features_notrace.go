//go:build !lurktrace

package protocol

const traceBuild = false
