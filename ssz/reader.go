package ssz

import (
	"encoding/binary"
	"io"
)

// DecodingReader reads a value's serialization from a stream against an
// exact byte scope: the number of bytes allotted to the value being
// decoded. Reads past the scope fail, and the consumed-byte index feeds
// DecodeError offsets.
type DecodingReader struct {
	r     io.Reader
	scope uint64
	read  uint64
}

// NewDecodingReader wraps r with the given scope.
func NewDecodingReader(r io.Reader, scope uint64) *DecodingReader {
	return &DecodingReader{r: r, scope: scope}
}

// Scope returns the total byte scope of the reader.
func (dr *DecodingReader) Scope() uint64 { return dr.scope }

// Index returns the number of bytes consumed so far.
func (dr *DecodingReader) Index() uint64 { return dr.read }

// Remaining returns the number of unconsumed bytes in the scope.
func (dr *DecodingReader) Remaining() uint64 { return dr.scope - dr.read }

// checkAvail fails with a DecodeError if fewer than n bytes remain.
func (dr *DecodingReader) checkAvail(n uint64) error {
	if dr.Remaining() < n {
		return DecodeErrf(dr.read, "needs %d bytes, scope has %d left", n, dr.Remaining())
	}
	return nil
}

// Read fills p from the stream, consuming exactly len(p) bytes.
func (dr *DecodingReader) Read(p []byte) error {
	if err := dr.checkAvail(uint64(len(p))); err != nil {
		return err
	}
	if _, err := io.ReadFull(dr.r, p); err != nil {
		return DecodeErrf(dr.read, "read failed: %v", err)
	}
	dr.read += uint64(len(p))
	return nil
}

// ReadByte consumes and returns a single byte.
func (dr *DecodingReader) ReadByte() (byte, error) {
	var b [1]byte
	if err := dr.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 consumes 2 bytes little-endian.
func (dr *DecodingReader) ReadUint16() (uint16, error) {
	var b [2]byte
	if err := dr.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadUint32 consumes 4 bytes little-endian.
func (dr *DecodingReader) ReadUint32() (uint32, error) {
	var b [4]byte
	if err := dr.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadUint64 consumes 8 bytes little-endian.
func (dr *DecodingReader) ReadUint64() (uint64, error) {
	var b [8]byte
	if err := dr.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ReadOffset consumes a 4-byte little-endian offset.
func (dr *DecodingReader) ReadOffset() (uint32, error) {
	return dr.ReadUint32()
}

// Sub carves a child reader of the given scope out of the remaining bytes.
// The child shares the underlying stream; its consumption is accounted to
// the parent immediately, so the parent must not read again until the child
// has consumed its full scope.
func (dr *DecodingReader) Sub(scope uint64) (*DecodingReader, error) {
	if err := dr.checkAvail(scope); err != nil {
		return nil, err
	}
	dr.read += scope
	return &DecodingReader{r: dr.r, scope: scope}, nil
}
