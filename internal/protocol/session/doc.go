// Package session runs the LURK codec over a net.Conn.
//
// Ownership boundary:
// - single-attempt dialing bounded by ConnectTimeout
// - per-call read/write deadlines
// - queueing messages that arrived in the same read
// - optional transcript capture of both directions
package session
