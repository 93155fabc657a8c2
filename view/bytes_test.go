package view

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// --- ByteVector ---

func TestByteVectorRoundTrip(t *testing.T) {
	td, err := ByteVectorType(48)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 48)
	for i := range data {
		data[i] = byte(i + 1)
	}
	v, err := td.FromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	enc := encodeOrFatal(t, v)
	if !bytes.Equal(enc, data) {
		t.Fatal("byte vector serialization should be the raw bytes")
	}
	back, err := DecodeBytes(td, data)
	if err != nil {
		t.Fatal(err)
	}
	if back.HashTreeRoot() != v.HashTreeRoot() {
		t.Error("root changed over round trip")
	}
	// Root equals the direct chunk merkleization.
	want := tree.Merkleize(tree.PackChunks(data), 2)
	if v.HashTreeRoot() != want {
		t.Errorf("root mismatch: got %s want %s", v.HashTreeRoot(), want)
	}
}

func TestByteVectorScopeMismatch(t *testing.T) {
	td, _ := ByteVectorType(4)
	if _, err := DecodeBytes(td, []byte{1, 2, 3}); !errors.Is(err, ssz.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestByteVectorGetSet(t *testing.T) {
	td, _ := ByteVectorType(40)
	v := td.Default(nil).(*ByteVectorView)
	if err := v.Set(35, 0xcc); err != nil {
		t.Fatal(err)
	}
	b, err := v.Get(35)
	if err != nil || b != 0xcc {
		t.Fatalf("Get(35) = %x (%v), want cc", b, err)
	}
	if err := v.Set(40, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestByteVectorObjAcceptsHex(t *testing.T) {
	td, _ := ByteVectorType(4)
	v, err := td.FromObj("0x01020304")
	if err != nil {
		t.Fatal(err)
	}
	obj, err := v.ToObj()
	if err != nil {
		t.Fatal(err)
	}
	if got := obj.(hexutil.Bytes).String(); got != "0x01020304" {
		t.Errorf("ToObj = %s", got)
	}
	back, err := td.FromObj(obj)
	if err != nil {
		t.Fatal(err)
	}
	if back.HashTreeRoot() != v.HashTreeRoot() {
		t.Error("object round trip changed the value")
	}
}

// --- ByteList ---

func TestByteListRoundTrip(t *testing.T) {
	td, err := ByteListType(100)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("hello merkle world, this is a byte list spanning two chunks!")
	v, err := td.FromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	enc := encodeOrFatal(t, v)
	if !bytes.Equal(enc, data) {
		t.Fatal("byte list serialization should be the raw bytes")
	}
	n, err := v.ValueByteLength()
	if err != nil || n != uint64(len(data)) {
		t.Errorf("ValueByteLength = %d (%v), want %d", n, err, len(data))
	}
	back, err := DecodeBytes(td, data)
	if err != nil {
		t.Fatal(err)
	}
	if back.HashTreeRoot() != v.HashTreeRoot() {
		t.Error("root changed over round trip")
	}
	// Root is mix_in_length over the chunk merkleization with the limit's
	// chunk count.
	want := tree.MixInLength(tree.Merkleize(tree.PackChunks(data), 4), uint64(len(data)))
	if v.HashTreeRoot() != want {
		t.Errorf("root mismatch: got %s want %s", v.HashTreeRoot(), want)
	}
}

func TestByteListEmpty(t *testing.T) {
	td, _ := ByteListType(64)
	v := td.Default(nil).(*ByteListView)
	if data := encodeOrFatal(t, v); len(data) != 0 {
		t.Errorf("empty byte list should encode to nothing, got %x", data)
	}
	want := tree.MixInLength(tree.ZeroHash(1), 0)
	if v.HashTreeRoot() != want {
		t.Errorf("empty root mismatch")
	}
}

func TestByteListOverLimit(t *testing.T) {
	td, _ := ByteListType(4)
	if _, err := DecodeBytes(td, []byte{1, 2, 3, 4, 5}); err == nil {
		t.Error("5 bytes should exceed ByteList[4]")
	}
	if _, err := td.FromBytes([]byte{1, 2, 3, 4, 5}); !errors.Is(err, ErrListLimit) {
		t.Error("FromBytes past limit should fail with ErrListLimit")
	}
}

func TestByteListAppendPop(t *testing.T) {
	td, _ := ByteListType(80)
	v := td.Default(nil).(*ByteListView)
	for i := 0; i < 40; i++ {
		if err := v.Append(byte(i + 1)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	got, err := v.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 40 || got[0] != 1 || got[39] != 40 {
		t.Fatalf("content mismatch after appends: %x", got)
	}
	fresh, err := td.FromBytes(got)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.HashTreeRoot() != v.HashTreeRoot() {
		t.Error("append-built and bytes-built lists disagree on root")
	}
	snapshot := v.HashTreeRoot()
	if err := v.Append(0xff); err != nil {
		t.Fatal(err)
	}
	if err := v.Pop(); err != nil {
		t.Fatal(err)
	}
	if v.HashTreeRoot() != snapshot {
		t.Error("pop did not restore the canonical root")
	}
}
