//go:build lurktrace

package protocol

const traceBuild = true
