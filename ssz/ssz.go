// Package ssz provides the byte-level plumbing for the Simple Serialize
// (SSZ) wire format: a scoped decoding reader, a counting encoding writer,
// and the shared error kinds of the codec.
//
// Serialization logic lives with the type descriptors in the view package;
// this package owns the stream contract: every value decodes against an
// exact byte scope, and offset-table violations surface as DecodeError
// values carrying the stream position.
//
// Spec: https://github.com/ethereum/consensus-specs/blob/dev/ssz/simple-serialize.md
package ssz

import "errors"

// BytesPerChunk is the number of bytes in each Merkle leaf chunk.
const BytesPerChunk = 32

// BytesPerLengthOffset is the number of bytes used for each offset in
// variable-length SSZ composites (4 bytes, little-endian uint32).
const BytesPerLengthOffset = 4

// Common errors.
var (
	// ErrInvalidBool is returned when a boolean byte is neither 0x00 nor
	// 0x01.
	ErrInvalidBool = errors.New("ssz: invalid boolean value")
	// ErrInvalidBitfield is returned when a bitvector carries set bits above
	// its length, or a bitlist's last byte is missing the delimiter bit.
	ErrInvalidBitfield = errors.New("ssz: invalid bitfield")
	// ErrLengthMismatch is returned when a fixed-size value is decoded with
	// a scope that differs from its type byte length.
	ErrLengthMismatch = errors.New("ssz: scope does not match fixed byte length")
)
