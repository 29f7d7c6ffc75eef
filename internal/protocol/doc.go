// Package protocol owns the LURK message model and its wire codec.
//
// Ownership boundary:
// - message variants and their validating constructors
// - encoding of a message into its exact wire bytes
// - incremental decoding of a byte stream into messages (frame/ does the framing)
//
// Every integer on the wire is little-endian. Names occupy 32 NUL-padded bytes;
// descriptions and other free text are sized by a u16 length in the fixed part.
package protocol
