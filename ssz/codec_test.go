package ssz

import (
	"bytes"
	"errors"
	"testing"
)

// --- DecodingReader ---

func TestDecodingReaderScopedReads(t *testing.T) {
	dr := NewDecodingReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}), 5)
	if dr.Scope() != 5 || dr.Index() != 0 || dr.Remaining() != 5 {
		t.Fatal("fresh reader accounting wrong")
	}
	b, err := dr.ReadByte()
	if err != nil || b != 1 {
		t.Fatalf("ReadByte: %v %d", err, b)
	}
	buf := make([]byte, 3)
	if err := dr.Read(buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 2 || buf[2] != 4 {
		t.Error("Read content mismatch")
	}
	if dr.Index() != 4 || dr.Remaining() != 1 {
		t.Errorf("accounting: index %d remaining %d", dr.Index(), dr.Remaining())
	}
}

func TestDecodingReaderScopeOverrun(t *testing.T) {
	dr := NewDecodingReader(bytes.NewReader([]byte{1, 2}), 2)
	buf := make([]byte, 3)
	err := dr.Read(buf)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Offset != 0 {
		t.Errorf("offset = %d, want 0", de.Offset)
	}
}

func TestDecodingReaderLittleEndian(t *testing.T) {
	data := []byte{0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	dr := NewDecodingReader(bytes.NewReader(data), uint64(len(data)))
	v16, err := dr.ReadUint16()
	if err != nil || v16 != 1 {
		t.Fatalf("ReadUint16: %v %d", err, v16)
	}
	v32, err := dr.ReadUint32()
	if err != nil || v32 != 2 {
		t.Fatalf("ReadUint32: %v %d", err, v32)
	}
	v64, err := dr.ReadUint64()
	if err != nil || v64 != 3 {
		t.Fatalf("ReadUint64: %v %d", err, v64)
	}
}

func TestDecodingReaderSub(t *testing.T) {
	dr := NewDecodingReader(bytes.NewReader([]byte{1, 2, 3, 4}), 4)
	sub, err := dr.Sub(3)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Scope() != 3 {
		t.Errorf("sub scope = %d, want 3", sub.Scope())
	}
	// The parent accounts the sub scope immediately.
	if dr.Remaining() != 1 {
		t.Errorf("parent remaining = %d, want 1", dr.Remaining())
	}
	buf := make([]byte, 3)
	if err := sub.Read(buf); err != nil {
		t.Fatal(err)
	}
	if _, err := dr.Sub(2); err == nil {
		t.Error("oversized sub scope should fail")
	}
}

// --- EncodingWriter ---

func TestEncodingWriterCountsBytes(t *testing.T) {
	var buf bytes.Buffer
	ew := NewEncodingWriter(&buf)
	if err := ew.WriteByte(7); err != nil {
		t.Fatal(err)
	}
	if err := ew.WriteUint32(1); err != nil {
		t.Fatal(err)
	}
	if err := ew.WriteUint64(2); err != nil {
		t.Fatal(err)
	}
	if ew.Written() != 13 {
		t.Errorf("Written = %d, want 13", ew.Written())
	}
	want := []byte{7, 1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("output %x, want %x", buf.Bytes(), want)
	}
}

func TestWriteOffsetRange(t *testing.T) {
	var buf bytes.Buffer
	ew := NewEncodingWriter(&buf)
	if err := ew.WriteOffset(0xffffffff); err != nil {
		t.Fatal(err)
	}
	if err := ew.WriteOffset(1 << 32); err == nil {
		t.Error("offset above uint32 range should fail")
	}
}

// --- DecodeError ---

func TestDecodeErrorMessage(t *testing.T) {
	err := DecodeErrf(12, "bad offset %d", 99)
	want := "ssz: decode error at offset 12: bad offset 99"
	if err.Error() != want {
		t.Errorf("message %q, want %q", err.Error(), want)
	}
}
