package tree

import (
	"crypto/sha256"
	"testing"
)

// --- Hash and zero-hash tests ---

func TestHashMatchesSha256(t *testing.T) {
	var a, b Root
	a[0] = 1
	b[0] = 2
	got := Hash(a, b)
	want := sha256.Sum256(append(a[:], b[:]...))
	if got != want {
		t.Errorf("Hash mismatch: got %s want %x", got, want)
	}
}

func TestZeroHashChain(t *testing.T) {
	if ZeroHash(0) != (Root{}) {
		t.Fatal("ZeroHash(0) should be the zero chunk")
	}
	for d := uint8(1); d <= 64; d++ {
		want := Hash(ZeroHash(d-1), ZeroHash(d-1))
		if got := ZeroHash(d); got != want {
			t.Fatalf("ZeroHash(%d) does not chain from ZeroHash(%d)", d, d-1)
		}
	}
}

func TestZeroHashKnownVector(t *testing.T) {
	// ZH[1] = sha256(0^64), a fixed constant of the SSZ spec.
	want := sha256.Sum256(make([]byte, 64))
	if got := ZeroHash(1); got != Root(want) {
		t.Errorf("ZeroHash(1) = %s, want %x", got, want)
	}
}

// --- Merkleize tests ---

func TestMerkleizeZeroLimit(t *testing.T) {
	if got := Merkleize(nil, 0); got != ZeroHash(0) {
		t.Errorf("Merkleize with limit 0 should be the zero chunk, got %s", got)
	}
}

func TestMerkleizeSingleChunk(t *testing.T) {
	var chunk Root
	chunk[0] = 0xab
	if got := Merkleize([]Root{chunk}, 1); got != chunk {
		t.Errorf("single chunk with limit 1 should be its own root, got %s", got)
	}
}

func TestMerkleizeTwoChunks(t *testing.T) {
	var a, b Root
	a[0] = 1
	b[0] = 2
	got := Merkleize([]Root{a, b}, 2)
	if want := Hash(a, b); got != want {
		t.Errorf("Merkleize two chunks: got %s want %s", got, want)
	}
}

func TestMerkleizePadsWithZeroChunks(t *testing.T) {
	var a Root
	a[0] = 1
	got := Merkleize([]Root{a}, 4)
	want := Hash(Hash(a, ZeroHash(0)), ZeroHash(1))
	if got != want {
		t.Errorf("Merkleize with limit 4: got %s want %s", got, want)
	}
}

func TestMerkleizeEmptyWithLimit(t *testing.T) {
	if got := Merkleize(nil, 8); got != ZeroHash(3) {
		t.Errorf("empty chunks with limit 8 should be ZeroHash(3), got %s", got)
	}
}

func TestMerkleizeNonPowerOfTwoLimit(t *testing.T) {
	chunks := []Root{{1}, {2}, {3}}
	// Limit 3 rounds up to 4 leaves.
	got := Merkleize(chunks, 3)
	want := Hash(Hash(chunks[0], chunks[1]), Hash(chunks[2], ZeroHash(0)))
	if got != want {
		t.Errorf("limit 3: got %s want %s", got, want)
	}
}

// --- Mix-in tests ---

func TestMixInLength(t *testing.T) {
	var root Root
	root[0] = 7
	var lengthChunk Root
	lengthChunk[0] = 2
	want := Hash(root, lengthChunk)
	if got := MixInLength(root, 2); got != want {
		t.Errorf("MixInLength: got %s want %s", got, want)
	}
}

func TestMixInSelector(t *testing.T) {
	var root Root
	root[0] = 7
	var selectorChunk Root
	selectorChunk[0] = 1
	want := Hash(root, selectorChunk)
	if got := MixInSelector(root, 1); got != want {
		t.Errorf("MixInSelector: got %s want %s", got, want)
	}
}

// --- PackChunks tests ---

func TestPackChunks(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		chunks  int
	}{
		{"empty", 0, 1},
		{"partial", 2, 1},
		{"exact", 32, 1},
		{"two", 33, 2},
		{"many", 100, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.byteLen)
			for i := range data {
				data[i] = byte(i + 1)
			}
			chunks := PackChunks(data)
			if len(chunks) != tt.chunks {
				t.Fatalf("expected %d chunks, got %d", tt.chunks, len(chunks))
			}
			flat := make([]byte, 0, len(chunks)*32)
			for _, c := range chunks {
				flat = append(flat, c[:]...)
			}
			for i, b := range data {
				if flat[i] != b {
					t.Fatalf("byte %d: got %d want %d", i, flat[i], b)
				}
			}
			for i := tt.byteLen; i < len(flat); i++ {
				if flat[i] != 0 {
					t.Fatalf("padding byte %d should be zero", i)
				}
			}
		})
	}
}
