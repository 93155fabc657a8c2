package tree

import (
	"errors"
	"sync/atomic"
)

// Tree navigation errors.
var (
	// ErrNavigation is returned when a generalized index steps into a leaf
	// chunk or addresses an invalid position.
	ErrNavigation = errors.New("tree: cannot navigate into leaf")
	// ErrPartialBacking is returned when traversal enters a branch that the
	// backing cannot resolve: a summarized root-only node, or a virtual node
	// whose source has no data for the branch.
	ErrPartialBacking = errors.New("tree: branch unavailable in partial backing")
)

// Node is a binary Merkle tree node. Exactly four variants exist: LeafNode
// (owns a chunk), PairNode (branch with two children), VirtualNode
// (precomputed root, children resolved on demand) and RootNode (terminal
// root with no recoverable children).
//
// Nodes are immutable. Root is a pure function of node content; PairNode
// memoizes it on first request. Any number of trees may share a subtree.
type Node interface {
	// Root returns the 32-byte Merkle root of the subtree.
	Root() Root
	// IsLeaf reports whether the node has no navigable children.
	IsLeaf() bool
	// Left returns the left child, or an error for leaf and unresolvable
	// nodes.
	Left() (Node, error)
	// Right returns the right child, or an error for leaf and unresolvable
	// nodes.
	Right() (Node, error)
}

// Link rebinds a subtree: applied to a replacement node it returns a new
// tree root equal to the original except at the linked position, sharing
// every untouched subtree.
type Link func(Node) Node

// Identity is the link of the root position.
func Identity(n Node) Node { return n }

// --- LeafNode ---

// LeafNode owns a 32-byte chunk. Its root is the chunk itself.
type LeafNode struct {
	chunk Root
}

// NewLeafNode returns a leaf holding the given chunk.
func NewLeafNode(chunk Root) *LeafNode {
	return &LeafNode{chunk: chunk}
}

// LeafFromBytes returns a leaf holding the given bytes left-aligned in a
// zero-padded chunk. The input must not exceed 32 bytes.
func LeafFromBytes(b []byte) *LeafNode {
	var chunk Root
	copy(chunk[:], b)
	return &LeafNode{chunk: chunk}
}

// LeafFromUint64 returns a leaf holding the little-endian value zero-padded
// to 32 bytes.
func LeafFromUint64(v uint64) *LeafNode {
	var chunk Root
	for i := 0; i < 8; i++ {
		chunk[i] = byte(v >> (8 * i))
	}
	return &LeafNode{chunk: chunk}
}

func (n *LeafNode) Root() Root           { return n.chunk }
func (n *LeafNode) IsLeaf() bool         { return true }
func (n *LeafNode) Left() (Node, error)  { return nil, ErrNavigation }
func (n *LeafNode) Right() (Node, error) { return nil, ErrNavigation }

func (n *LeafNode) String() string { return n.chunk.String() }

// --- PairNode ---

// PairNode is a branch with a left and right child. Its root is
// Hash(left.Root() || right.Root()), computed lazily and memoized. The
// memo is published atomically; a concurrent recompute is benign because
// the result is identical.
type PairNode struct {
	left, right Node
	root        atomic.Pointer[Root]
}

// NewPairNode returns a branch over the two children. Both must be non-nil.
func NewPairNode(left, right Node) *PairNode {
	return &PairNode{left: left, right: right}
}

// newPairWithRoot returns a branch whose root is already known, skipping
// the hash on first access. Used for shared zero subtrees.
func newPairWithRoot(left, right Node, root Root) *PairNode {
	p := &PairNode{left: left, right: right}
	p.root.Store(&root)
	return p
}

func (n *PairNode) Root() Root {
	if r := n.root.Load(); r != nil {
		return *r
	}
	r := Hash(n.left.Root(), n.right.Root())
	n.root.Store(&r)
	return r
}

func (n *PairNode) IsLeaf() bool         { return false }
func (n *PairNode) Left() (Node, error)  { return n.left, nil }
func (n *PairNode) Right() (Node, error) { return n.right, nil }

// --- RootNode ---

// RootNode carries a 32-byte root with no recoverable children: the
// terminal leaf of a proof, or the summary produced by SummarizeInto.
// Traversing into it fails with ErrPartialBacking.
type RootNode struct {
	root Root
}

// NewRootNode returns a terminal node carrying the given root.
func NewRootNode(root Root) *RootNode {
	return &RootNode{root: root}
}

func (n *RootNode) Root() Root           { return n.root }
func (n *RootNode) IsLeaf() bool         { return true }
func (n *RootNode) Left() (Node, error)  { return nil, ErrPartialBacking }
func (n *RootNode) Right() (Node, error) { return nil, ErrPartialBacking }

func (n *RootNode) String() string { return n.root.String() }

// --- Navigation and rebinding ---

// Getter returns the node at generalized index target. It fails with
// ErrNavigation when the path steps into a leaf chunk, and with
// ErrPartialBacking when it enters a summarized or unresolved branch.
func Getter(n Node, target Gindex) (Node, error) {
	if !target.Valid() {
		return nil, ErrNavigation
	}
	for target != RootGindex {
		right, sub := target.split()
		var err error
		if right {
			n, err = n.Right()
		} else {
			n, err = n.Left()
		}
		if err != nil {
			return nil, err
		}
		target = sub
	}
	return n, nil
}

// Setter returns the rebinding link of the subtree at target: applying the
// link to a node yields a new tree equal to n except at target, sharing all
// untouched subtrees. With expand set, leaf and root-only nodes on the path
// are expanded into zero subtrees of the remaining depth, allowing writes
// past the materialized region.
func Setter(n Node, target Gindex, expand bool) (Link, error) {
	if !target.Valid() {
		return nil, ErrNavigation
	}
	if target == RootGindex {
		return Identity, nil
	}
	var left, right Node
	if n.IsLeaf() {
		if !expand {
			_, err := n.Left()
			return nil, err
		}
		z := ZeroNode(target.Depth() - 1)
		left, right = z, z
	} else {
		var err error
		if left, err = n.Left(); err != nil {
			return nil, err
		}
		if right, err = n.Right(); err != nil {
			return nil, err
		}
	}
	goRight, sub := target.split()
	if goRight {
		inner, err := Setter(right, sub, expand)
		if err != nil {
			return nil, err
		}
		return func(v Node) Node {
			return NewPairNode(left, inner(v))
		}, nil
	}
	inner, err := Setter(left, sub, expand)
	if err != nil {
		return nil, err
	}
	return func(v Node) Node {
		return NewPairNode(inner(v), right)
	}, nil
}

// SetNode rebinds the subtree at target to v, returning the new tree root.
func SetNode(n Node, target Gindex, v Node) (Node, error) {
	link, err := Setter(n, target, false)
	if err != nil {
		return nil, err
	}
	return link(v), nil
}

// ExpandInto is SetNode with expansion: zero and summary nodes on the path
// are expanded into zero subtrees so the write can land past the
// materialized region.
func ExpandInto(n Node, target Gindex, v Node) (Node, error) {
	link, err := Setter(n, target, true)
	if err != nil {
		return nil, err
	}
	return link(v), nil
}

// SummarizeInto collapses the subtree at target into a root-only node
// carrying that subtree's root. The overall Merkle root is unchanged;
// interior detail below target is discarded and later traversal into it
// fails with ErrPartialBacking.
func SummarizeInto(n Node, target Gindex) (Node, error) {
	sub, err := Getter(n, target)
	if err != nil {
		return nil, err
	}
	link, err := Setter(n, target, false)
	if err != nil {
		return nil, err
	}
	return link(NewRootNode(sub.Root())), nil
}

// LeafContent returns the chunk carried by a leaf or root-only node.
// Reading a branch as a chunk is a navigation error.
func LeafContent(n Node) (Root, error) {
	if !n.IsLeaf() {
		return Root{}, ErrNavigation
	}
	return n.Root(), nil
}
