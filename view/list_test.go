package view

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eth2030/sszview/tree"
)

// --- List[uint16, 4] wire vector ---

func TestListUint16Encoding(t *testing.T) {
	td, err := ListType(Uint16Type, 4)
	if err != nil {
		t.Fatal(err)
	}
	v, err := td.FromObj([]any{uint64(1), uint64(2)})
	if err != nil {
		t.Fatal(err)
	}
	data := encodeOrFatal(t, v)
	want := []byte{0x01, 0x00, 0x02, 0x00}
	if !bytes.Equal(data, want) {
		t.Fatalf("encoding = %x, want %x", data, want)
	}
	// Root is mix_in_length(merkleize(packed chunk, limit 1), 2).
	var chunk tree.Root
	chunk[0], chunk[2] = 1, 2
	wantRoot := tree.MixInLength(tree.Merkleize([]tree.Root{chunk}, 1), 2)
	if v.HashTreeRoot() != wantRoot {
		t.Errorf("root = %s, want %s", v.HashTreeRoot(), wantRoot)
	}

	back, err := DecodeBytes(td, want)
	if err != nil {
		t.Fatal(err)
	}
	if back.HashTreeRoot() != wantRoot {
		t.Error("decoded root mismatch")
	}
}

// --- length, append, pop ---

func TestListAppendPop(t *testing.T) {
	td, _ := ListType(Uint64Type, 8)
	v := td.Default(nil).(*ListView)

	if ll, err := v.Length(); err != nil || ll != 0 {
		t.Fatalf("default length = %d (%v), want 0", ll, err)
	}
	for i := uint64(0); i < 8; i++ {
		if err := v.Append(Uint64View(i + 1)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := v.Append(Uint64View(99)); !errors.Is(err, ErrListLimit) {
		t.Errorf("append past limit: expected ErrListLimit, got %v", err)
	}
	if ll, _ := v.Length(); ll != 8 {
		t.Fatalf("length = %d, want 8", ll)
	}
	for i := uint64(0); i < 8; i++ {
		got, err := v.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got.(Uint64View) != Uint64View(i+1) {
			t.Errorf("element %d = %d, want %d", i, got.(Uint64View), i+1)
		}
	}

	if err := v.Pop(); err != nil {
		t.Fatal(err)
	}
	if ll, _ := v.Length(); ll != 7 {
		t.Fatalf("length after pop = %d, want 7", ll)
	}
	if _, err := v.Get(7); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("popped element should be out of range, got %v", err)
	}
}

func TestListPopRestoresCanonicalRoot(t *testing.T) {
	td, _ := ListType(Uint64Type, 8)
	v := td.Default(nil).(*ListView)
	if err := v.Append(Uint64View(1)); err != nil {
		t.Fatal(err)
	}
	snapshot := v.HashTreeRoot()
	if err := v.Append(Uint64View(2)); err != nil {
		t.Fatal(err)
	}
	if err := v.Pop(); err != nil {
		t.Fatal(err)
	}
	// Popping must zero-fill: the root equals the pre-append root exactly.
	if v.HashTreeRoot() != snapshot {
		t.Error("pop did not restore the canonical root")
	}
}

func TestListPopEmpty(t *testing.T) {
	td, _ := ListType(Uint64Type, 4)
	v := td.Default(nil).(*ListView)
	if err := v.Pop(); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("pop on empty list: expected ErrOutOfRange, got %v", err)
	}
}

func TestListZeroLimit(t *testing.T) {
	td, err := ListType(Uint64Type, 0)
	if err != nil {
		t.Fatal(err)
	}
	v := td.Default(nil).(*ListView)
	if err := v.Append(Uint64View(1)); !errors.Is(err, ErrListLimit) {
		t.Errorf("append on List[_, 0]: expected ErrListLimit, got %v", err)
	}
	if _, err := DecodeBytes(td, nil); err != nil {
		t.Errorf("empty encoding of List[_, 0] should decode: %v", err)
	}
}

func TestListDecodeOverLimit(t *testing.T) {
	td, _ := ListType(Uint16Type, 2)
	if _, err := DecodeBytes(td, []byte{1, 0, 2, 0, 3, 0}); err == nil {
		t.Error("3 elements should exceed List[uint16, 2]")
	}
}

func TestListDecodeRaggedScope(t *testing.T) {
	td, _ := ListType(Uint16Type, 4)
	if _, err := DecodeBytes(td, []byte{1, 0, 2}); err == nil {
		t.Error("scope not divisible by element size should fail")
	}
}

// --- packed append across chunk boundaries ---

func TestListAppendAcrossChunks(t *testing.T) {
	td, _ := ListType(Uint8Type, 100) // 32 elements per chunk
	v := td.Default(nil).(*ListView)
	for i := uint64(0); i < 70; i++ {
		if err := v.Append(Uint8View(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	for i := uint64(0); i < 70; i++ {
		got, err := v.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got.(Uint8View) != Uint8View(i) {
			t.Errorf("element %d = %d", i, got.(Uint8View))
		}
	}
	// Cross-check against a fresh construction of the same content.
	obj := make([]any, 70)
	for i := range obj {
		obj[i] = uint64(i)
	}
	fresh, err := td.FromObj(obj)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.HashTreeRoot() != v.HashTreeRoot() {
		t.Error("append-built and obj-built lists disagree on root")
	}
}

// --- variable-size elements ---

func TestListOfListsRoundTrip(t *testing.T) {
	elem, _ := ListType(Uint8Type, 8)
	td, err := ListType(elem, 4)
	if err != nil {
		t.Fatal(err)
	}
	v, err := td.FromObj([]any{
		[]any{uint64(1)},
		[]any{uint64(2), uint64(3)},
	})
	if err != nil {
		t.Fatal(err)
	}
	data := encodeOrFatal(t, v)
	// Offsets 8, 9; payloads 0x01, 0x0203.
	want := []byte{0x08, 0, 0, 0, 0x09, 0, 0, 0, 1, 2, 3}
	if !bytes.Equal(data, want) {
		t.Fatalf("encoding = %x, want %x", data, want)
	}
	back, err := DecodeBytes(td, want)
	if err != nil {
		t.Fatal(err)
	}
	if back.HashTreeRoot() != v.HashTreeRoot() {
		t.Error("root changed over round trip")
	}
	n, err := v.ValueByteLength()
	if err != nil {
		t.Fatal(err)
	}
	if n != uint64(len(want)) {
		t.Errorf("ValueByteLength = %d, want %d", n, len(want))
	}
}

// --- sharing ---

func TestListSharingAcrossMutation(t *testing.T) {
	td, _ := ListType(Uint64Type, 16)
	v := td.Default(nil).(*ListView)
	for i := uint64(0); i < 8; i++ {
		if err := v.Append(Uint64View(i)); err != nil {
			t.Fatal(err)
		}
	}
	// Elements 0..3 live in chunk 0, 4..7 in chunk 1.
	chunk0Before, err := tree.Getter(v.Backing(), v.td.elemGindex(0))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Set(7, Uint64View(777)); err != nil {
		t.Fatal(err)
	}
	chunk0After, err := tree.Getter(v.Backing(), v.td.elemGindex(0))
	if err != nil {
		t.Fatal(err)
	}
	if chunk0Before != chunk0After {
		t.Error("chunk outside the mutated path must stay shared")
	}
}
