package tree

import "iter"

// LeafIter returns a lazy left-to-right sequence over the leaves of the
// tree, keyed by generalized index. Virtual branches are resolved on
// demand; a branch that cannot be resolved is yielded itself as a terminal,
// so partial trees iterate without failing.
func LeafIter(n Node) iter.Seq2[Gindex, Node] {
	return func(yield func(Gindex, Node) bool) {
		walkLeaves(n, RootGindex, yield)
	}
}

func walkLeaves(n Node, g Gindex, yield func(Gindex, Node) bool) bool {
	if n.IsLeaf() {
		return yield(g, n)
	}
	left, err := n.Left()
	if err != nil {
		return yield(g, n)
	}
	right, err := n.Right()
	if err != nil {
		return yield(g, n)
	}
	return walkLeaves(left, g.Left(), yield) && walkLeaves(right, g.Right(), yield)
}

// DiffEntry is one differing subtree pair reported by Diff.
type DiffEntry struct {
	Gindex Gindex
	A, B   Node
}

// Diff returns a lazy sequence of the maximal differing subtrees between
// two trees: descent stops wherever roots are equal (structural sharing is
// detected by root equality), and a differing pair is reported once its
// children cannot be compared further — at leaves, terminals, or
// unresolvable branches. The sequence is empty iff a.Root() == b.Root().
func Diff(a, b Node) iter.Seq[DiffEntry] {
	return func(yield func(DiffEntry) bool) {
		walkDiff(a, b, RootGindex, yield)
	}
}

func walkDiff(a, b Node, g Gindex, yield func(DiffEntry) bool) bool {
	if a.Root() == b.Root() {
		return true
	}
	aLeft, errA := a.Left()
	bLeft, errB := b.Left()
	if errA != nil || errB != nil {
		return yield(DiffEntry{Gindex: g, A: a, B: b})
	}
	aRight, errA := a.Right()
	bRight, errB := b.Right()
	if errA != nil || errB != nil {
		return yield(DiffEntry{Gindex: g, A: a, B: b})
	}
	return walkDiff(aLeft, bLeft, g.Left(), yield) &&
		walkDiff(aRight, bRight, g.Right(), yield)
}
