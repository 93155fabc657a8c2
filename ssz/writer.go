package ssz

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EncodingWriter writes a value's serialization to a stream, counting the
// bytes emitted.
type EncodingWriter struct {
	w io.Writer
	n uint64
}

// NewEncodingWriter wraps w.
func NewEncodingWriter(w io.Writer) *EncodingWriter {
	return &EncodingWriter{w: w}
}

// Written returns the number of bytes written so far.
func (ew *EncodingWriter) Written() uint64 { return ew.n }

// Write emits p in full.
func (ew *EncodingWriter) Write(p []byte) error {
	n, err := ew.w.Write(p)
	ew.n += uint64(n)
	if err != nil {
		return fmt.Errorf("ssz: write failed: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("ssz: short write: %d of %d bytes", n, len(p))
	}
	return nil
}

// WriteByte emits a single byte.
func (ew *EncodingWriter) WriteByte(b byte) error {
	return ew.Write([]byte{b})
}

// WriteUint16 emits 2 bytes little-endian.
func (ew *EncodingWriter) WriteUint16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return ew.Write(b[:])
}

// WriteUint32 emits 4 bytes little-endian.
func (ew *EncodingWriter) WriteUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return ew.Write(b[:])
}

// WriteUint64 emits 8 bytes little-endian.
func (ew *EncodingWriter) WriteUint64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return ew.Write(b[:])
}

// WriteOffset emits a 4-byte little-endian offset. Offsets above the
// uint32 range are a length violation of the composite being encoded.
func (ew *EncodingWriter) WriteOffset(v uint64) error {
	if v > 0xffffffff {
		return fmt.Errorf("ssz: offset %d exceeds uint32 range", v)
	}
	return ew.WriteUint32(uint32(v))
}
