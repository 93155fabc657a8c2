package tree

import (
	"errors"
	"testing"
)

func leafOf(b byte) *LeafNode {
	var chunk Root
	chunk[0] = b
	return NewLeafNode(chunk)
}

// --- Root computation and caching ---

func TestLeafRootIsChunk(t *testing.T) {
	n := leafOf(0xaa)
	if n.Root()[0] != 0xaa {
		t.Error("leaf root should be the chunk")
	}
	if !n.IsLeaf() {
		t.Error("leaf should report IsLeaf")
	}
}

func TestPairRoot(t *testing.T) {
	a, b := leafOf(1), leafOf(2)
	p := NewPairNode(a, b)
	want := Hash(a.Root(), b.Root())
	if p.Root() != want {
		t.Errorf("pair root mismatch: got %s want %s", p.Root(), want)
	}
	// Memoized root must be stable.
	if p.Root() != want {
		t.Error("pair root changed between calls")
	}
}

func TestLeafFromUint64(t *testing.T) {
	n := LeafFromUint64(0x0102)
	chunk := n.Root()
	if chunk[0] != 0x02 || chunk[1] != 0x01 {
		t.Errorf("little-endian layout expected, got %s", chunk)
	}
	for i := 8; i < 32; i++ {
		if chunk[i] != 0 {
			t.Fatalf("byte %d should be zero padding", i)
		}
	}
}

// --- Getter ---

func TestGetter(t *testing.T) {
	//        1
	//     2     3
	//   4  5
	a, b, c := leafOf(1), leafOf(2), leafOf(3)
	root := NewPairNode(NewPairNode(a, b), c)

	tests := []struct {
		g    Gindex
		want Node
	}{
		{1, root},
		{3, c},
		{4, a},
		{5, b},
	}
	for _, tt := range tests {
		got, err := Getter(root, tt.g)
		if err != nil {
			t.Fatalf("Getter(%d): %v", tt.g, err)
		}
		if got != tt.want {
			t.Errorf("Getter(%d) returned wrong node", tt.g)
		}
	}
}

func TestGetterIntoLeafFails(t *testing.T) {
	root := NewPairNode(leafOf(1), leafOf(2))
	if _, err := Getter(root, 4); !errors.Is(err, ErrNavigation) {
		t.Errorf("expected ErrNavigation, got %v", err)
	}
}

func TestGetterIntoRootNodeFails(t *testing.T) {
	root := NewPairNode(NewRootNode(Root{1}), leafOf(2))
	if _, err := Getter(root, 4); !errors.Is(err, ErrPartialBacking) {
		t.Errorf("expected ErrPartialBacking, got %v", err)
	}
}

// --- Setter and structural sharing ---

func TestSetterRebindsAndShares(t *testing.T) {
	a, b, c, d := leafOf(1), leafOf(2), leafOf(3), leafOf(4)
	left := NewPairNode(a, b)
	right := NewPairNode(c, d)
	root := NewPairNode(left, right)

	repl := leafOf(9)
	next, err := SetNode(root, 5, repl)
	if err != nil {
		t.Fatal(err)
	}
	// The new tree sees the replacement.
	got, err := Getter(next, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != Node(repl) {
		t.Error("replacement not visible at target position")
	}
	// The old tree is untouched.
	old, _ := Getter(root, 5)
	if old != Node(b) {
		t.Error("original tree was mutated")
	}
	// The untouched sibling subtree is shared, not copied.
	sharedRight, _ := Getter(next, 3)
	if sharedRight != Node(right) {
		t.Error("untouched subtree should be shared by reference")
	}
	sharedA, _ := Getter(next, 4)
	if sharedA != Node(a) {
		t.Error("untouched leaf should be shared by reference")
	}
}

func TestSetterRootReplacesWholeTree(t *testing.T) {
	root := NewPairNode(leafOf(1), leafOf(2))
	repl := leafOf(9)
	next, err := SetNode(root, RootGindex, repl)
	if err != nil {
		t.Fatal(err)
	}
	if next != Node(repl) {
		t.Error("setting at the root should return the replacement")
	}
}

func TestSetterIntoLeafFails(t *testing.T) {
	root := NewPairNode(leafOf(1), leafOf(2))
	if _, err := Setter(root, 8, false); !errors.Is(err, ErrNavigation) {
		t.Errorf("expected ErrNavigation, got %v", err)
	}
}

func TestExpandIntoZeroRegion(t *testing.T) {
	// A summary node expands into zeroes when writing below it.
	root := NewPairNode(NewRootNode(ZeroHash(1)), leafOf(2))
	repl := leafOf(7)
	next, err := ExpandInto(root, 4, repl)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Getter(next, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got != Node(repl) {
		t.Error("expansion did not place the replacement")
	}
	// The expanded sibling is the zero chunk.
	sib, err := Getter(next, 5)
	if err != nil {
		t.Fatal(err)
	}
	if sib.Root() != ZeroHash(0) {
		t.Error("expanded sibling should be a zero chunk")
	}
}

// --- SummarizeInto ---

func TestSummarizeIntoKeepsRoot(t *testing.T) {
	a, b, c, d := leafOf(1), leafOf(2), leafOf(3), leafOf(4)
	root := NewPairNode(NewPairNode(a, b), NewPairNode(c, d))
	before := root.Root()

	collapsed, err := SummarizeInto(root, 2)
	if err != nil {
		t.Fatal(err)
	}
	if collapsed.Root() != before {
		t.Error("summarizing must not change the overall root")
	}
	// Access outside the summary still works.
	if got, err := Getter(collapsed, 6); err != nil || got != Node(c) {
		t.Errorf("access outside summary failed: %v", err)
	}
	// Access inside the summary fails with a partial-backing error.
	if _, err := Getter(collapsed, 4); !errors.Is(err, ErrPartialBacking) {
		t.Errorf("expected ErrPartialBacking inside summary, got %v", err)
	}
	// So does rebinding inside it.
	if _, err := Setter(collapsed, 4, false); !errors.Is(err, ErrPartialBacking) {
		t.Errorf("expected ErrPartialBacking for setter, got %v", err)
	}
}

// --- Zero nodes ---

func TestZeroNodeRootsMatchZeroHashes(t *testing.T) {
	for d := uint8(0); d <= 40; d++ {
		if ZeroNode(d).Root() != ZeroHash(d) {
			t.Fatalf("ZeroNode(%d) root mismatch", d)
		}
	}
}

func TestZeroNodeIsNavigable(t *testing.T) {
	z := ZeroNode(10)
	leaf, err := Getter(z, Gindex(1)<<10|37)
	if err != nil {
		t.Fatalf("zero subtree should be navigable: %v", err)
	}
	if leaf.Root() != (Root{}) {
		t.Error("zero subtree bottom should be zero chunks")
	}
}

func TestZeroNodeSetPreservesSharing(t *testing.T) {
	z := ZeroNode(4)
	repl := leafOf(5)
	g, _ := ToGindex(3, 4)
	next, err := SetNode(z, g, repl)
	if err != nil {
		t.Fatal(err)
	}
	// The shared zero node itself is untouched.
	if z.Root() != ZeroHash(4) {
		t.Fatal("shared zero subtree was mutated")
	}
	got, _ := Getter(next, g)
	if got != Node(repl) {
		t.Error("replacement not placed")
	}
}

// --- Subtree fills ---

func TestSubtreeFillToLength(t *testing.T) {
	bottom := leafOf(1)
	node, err := SubtreeFillToLength(bottom, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(0); i < 3; i++ {
		g, _ := ToGindex(i, 2)
		got, err := Getter(node, g)
		if err != nil {
			t.Fatalf("position %d: %v", i, err)
		}
		if got != Node(bottom) {
			t.Errorf("position %d should hold bottom", i)
		}
	}
	g, _ := ToGindex(3, 2)
	got, err := Getter(node, g)
	if err != nil {
		t.Fatal(err)
	}
	if got.Root() != ZeroHash(0) {
		t.Error("position 3 should be zero-padded")
	}
}

func TestSubtreeFillToContents(t *testing.T) {
	nodes := []Node{leafOf(1), leafOf(2), leafOf(3)}
	node, err := SubtreeFillToContents(nodes, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := Merkleize([]Root{{1}, {2}, {3}}, 4)
	if node.Root() != want {
		t.Errorf("contents root mismatch: got %s want %s", node.Root(), want)
	}
}

func TestSubtreeFillToContentsOverflow(t *testing.T) {
	nodes := []Node{leafOf(1), leafOf(2), leafOf(3)}
	if _, err := SubtreeFillToContents(nodes, 1); err == nil {
		t.Error("3 nodes should not fit depth 1")
	}
}
