package view

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eth2030/sszview/tree"
)

// --- type construction ---

func TestVectorTypeRejectsZeroLength(t *testing.T) {
	if _, err := VectorType(Uint8Type, 0); err == nil {
		t.Error("zero-length vectors should be rejected")
	}
}

// --- packed basic vectors ---

func TestPackedVectorGetSet(t *testing.T) {
	td, err := VectorType(Uint16Type, 20) // 20*2 = 40 bytes, 2 chunks
	if err != nil {
		t.Fatal(err)
	}
	v := td.Default(nil).(*VectorView)
	for i := uint64(0); i < 20; i++ {
		if err := v.Set(i, Uint16View(i+1)); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	for i := uint64(0); i < 20; i++ {
		got, err := v.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got.(Uint16View) != Uint16View(i+1) {
			t.Errorf("element %d = %d, want %d", i, got.(Uint16View), i+1)
		}
	}
	if _, err := v.Get(20); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestPackedVectorRootMatchesDirectMerkleization(t *testing.T) {
	td, _ := VectorType(Uint64Type, 5) // 40 bytes, 2 chunks
	v := td.Default(nil).(*VectorView)
	serialized := make([]byte, 0, 40)
	for i := uint64(0); i < 5; i++ {
		if err := v.Set(i, Uint64View(i+100)); err != nil {
			t.Fatal(err)
		}
		var b [8]byte
		for j := 0; j < 8; j++ {
			b[j] = byte((i + 100) >> (8 * j))
		}
		serialized = append(serialized, b[:]...)
	}
	want := tree.Merkleize(tree.PackChunks(serialized), 2)
	if v.HashTreeRoot() != want {
		t.Errorf("packed vector root mismatch: got %s want %s", v.HashTreeRoot(), want)
	}
}

func TestPackedVectorSerialization(t *testing.T) {
	td, _ := VectorType(Uint16Type, 3)
	v, err := td.FromObj([]any{uint64(1), uint64(2), uint64(3)})
	if err != nil {
		t.Fatal(err)
	}
	data := encodeOrFatal(t, v)
	want := []byte{1, 0, 2, 0, 3, 0}
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
}

// --- composite element vectors ---

func TestComplexVectorRoundTrip(t *testing.T) {
	inner, err := ContainerType("Inner", []FieldDef{
		{Name: "a", Type: Uint64Type},
		{Name: "b", Type: Uint64Type},
	})
	if err != nil {
		t.Fatal(err)
	}
	td, err := VectorType(inner, 3)
	if err != nil {
		t.Fatal(err)
	}
	v, err := td.FromObj([]any{
		map[string]any{"a": uint64(1), "b": uint64(2)},
		map[string]any{"a": uint64(3), "b": uint64(4)},
		map[string]any{"a": uint64(5), "b": uint64(6)},
	})
	if err != nil {
		t.Fatal(err)
	}
	data := encodeOrFatal(t, v)
	if len(data) != 48 {
		t.Fatalf("fixed vector of 3x16 bytes should encode to 48, got %d", len(data))
	}
	back, err := DecodeBytes(td, data)
	if err != nil {
		t.Fatal(err)
	}
	if back.HashTreeRoot() != v.HashTreeRoot() {
		t.Error("root changed over round trip")
	}
}

func TestComplexVectorElementMutationPropagates(t *testing.T) {
	inner, _ := ContainerType("Inner", []FieldDef{{Name: "a", Type: Uint64Type}})
	td, _ := VectorType(inner, 2)
	v := td.Default(nil).(*VectorView)
	before := v.HashTreeRoot()
	untouchedBefore, err := tree.Getter(v.Backing(), 2)
	if err != nil {
		t.Fatal(err)
	}

	elem, err := v.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := elem.(*ContainerView).SetField("a", Uint64View(11)); err != nil {
		t.Fatal(err)
	}
	if v.HashTreeRoot() == before {
		t.Error("vector root must track element mutation")
	}
	reread, _ := v.Get(1)
	got, err := reread.(*ContainerView).Field("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.(Uint64View) != 11 {
		t.Errorf("element field = %d, want 11", got.(Uint64View))
	}
	// Element 0 is untouched and shared with the previous version.
	if untouchedAfter, _ := tree.Getter(v.Backing(), 2); untouchedAfter != untouchedBefore {
		t.Error("unmutated element should share its node")
	}
}

func TestVariableElementVectorOffsets(t *testing.T) {
	elemList, _ := ListType(Uint8Type, 8)
	td, err := VectorType(elemList, 2)
	if err != nil {
		t.Fatal(err)
	}
	v, err := td.FromObj([]any{
		[]any{uint64(1), uint64(2)},
		[]any{uint64(3)},
	})
	if err != nil {
		t.Fatal(err)
	}
	data := encodeOrFatal(t, v)
	// Two 4-byte offsets (8, 10), then payloads 0x0102 and 0x03.
	want := []byte{0x08, 0, 0, 0, 0x0a, 0, 0, 0, 1, 2, 3}
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
}

func TestVectorSetTypeMismatch(t *testing.T) {
	td, _ := VectorType(Uint16Type, 4)
	v := td.Default(nil).(*VectorView)
	if err := v.Set(0, Uint32View(1)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}
