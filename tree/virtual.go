package tree

import "fmt"

// VirtualSource resolves the children of a virtual node from its root.
// Sources typically back onto proof data or an external store; a source
// returns an error for branches it has no data for.
type VirtualSource interface {
	Left(key Root) (Node, error)
	Right(key Root) (Node, error)
}

// VirtualNode carries a precomputed root and fetches its children on demand
// from a VirtualSource. It is the partial-tree substitute for a PairNode:
// resolved branches navigate normally, unresolved branches fail with
// ErrPartialBacking.
//
// Resolved children are cached on the node. The cache is not synchronized;
// like views, virtual nodes follow the single-threaded mutation model.
type VirtualNode struct {
	root        Root
	src         VirtualSource
	left, right Node
}

// NewVirtualNode returns a virtual node with the given root, resolving
// children through src. A nil src yields a node whose branches are all
// unresolvable.
func NewVirtualNode(root Root, src VirtualSource) *VirtualNode {
	return &VirtualNode{root: root, src: src}
}

func (n *VirtualNode) Root() Root   { return n.root }
func (n *VirtualNode) IsLeaf() bool { return false }

func (n *VirtualNode) Left() (Node, error) {
	if n.left != nil {
		return n.left, nil
	}
	if n.src == nil {
		return nil, ErrPartialBacking
	}
	child, err := n.src.Left(n.root)
	if err != nil {
		return nil, fmt.Errorf("%w: left of %s: %v", ErrPartialBacking, n.root, err)
	}
	n.left = child
	return child, nil
}

func (n *VirtualNode) Right() (Node, error) {
	if n.right != nil {
		return n.right, nil
	}
	if n.src == nil {
		return nil, ErrPartialBacking
	}
	child, err := n.src.Right(n.root)
	if err != nil {
		return nil, fmt.Errorf("%w: right of %s: %v", ErrPartialBacking, n.root, err)
	}
	n.right = child
	return child, nil
}

func (n *VirtualNode) String() string { return n.root.String() }
