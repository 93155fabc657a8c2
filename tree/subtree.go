package tree

import (
	"fmt"
	"sync"
)

// Shared zero subtrees. zeroNodes[0] is a zero-chunk leaf; zeroNodes[d] is a
// pair of two zeroNodes[d-1] with its root taken from the zero-hash table.
// All trees share these nodes for their padded regions, which keeps default
// backings cheap and traversable.
var (
	zeroNodesOnce sync.Once
	zeroNodes     [maxZeroHashDepth + 1]Node
)

func initZeroNodes() {
	zeroNodesOnce.Do(func() {
		initZeroHashes()
		zeroNodes[0] = NewLeafNode(Root{})
		for d := 1; d <= maxZeroHashDepth; d++ {
			zeroNodes[d] = newPairWithRoot(zeroNodes[d-1], zeroNodes[d-1], zeroHashTable[d])
		}
	})
}

// ZeroNode returns the shared subtree of 2^depth zero chunks. The returned
// node is fully navigable: getting or setting below it works like any other
// subtree, with all untouched zero regions shared.
func ZeroNode(depth uint8) Node {
	initZeroNodes()
	if depth > maxZeroHashDepth {
		// Deeper zero subtrees have no practical consumer; fail loudly
		// instead of building an unshared chain.
		panic(fmt.Sprintf("tree: zero subtree depth %d exceeds maximum %d", depth, maxZeroHashDepth))
	}
	return zeroNodes[depth]
}

// SubtreeFillToDepth returns a perfect subtree of the given depth with every
// bottom position holding bottom. All positions share the single bottom
// node.
func SubtreeFillToDepth(bottom Node, depth uint8) Node {
	node := bottom
	for i := uint8(0); i < depth; i++ {
		node = NewPairNode(node, node)
	}
	return node
}

// SubtreeFillToLength returns a subtree of the given depth with the first
// length bottom positions holding bottom and the remainder zeroed.
func SubtreeFillToLength(bottom Node, depth uint8, length uint64) (Node, error) {
	anchor := uint64(1) << depth
	if length > anchor {
		return nil, fmt.Errorf("tree: length %d exceeds subtree capacity %d", length, anchor)
	}
	if length == anchor {
		return SubtreeFillToDepth(bottom, depth), nil
	}
	if depth == 0 {
		if length != 1 {
			return nil, ErrNavigation
		}
		return bottom, nil
	}
	if depth == 1 {
		if length > 1 {
			return NewPairNode(bottom, bottom), nil
		}
		return NewPairNode(bottom, ZeroNode(0)), nil
	}
	pivot := anchor >> 1
	if length <= pivot {
		left, err := SubtreeFillToLength(bottom, depth-1, length)
		if err != nil {
			return nil, err
		}
		return NewPairNode(left, ZeroNode(depth-1)), nil
	}
	right, err := SubtreeFillToLength(bottom, depth-1, length-pivot)
	if err != nil {
		return nil, err
	}
	return NewPairNode(SubtreeFillToDepth(bottom, depth-1), right), nil
}

// SubtreeFillToContents returns a subtree of the given depth with the bottom
// positions holding the given nodes in order, zero-padded to the subtree
// capacity. An empty slice yields the shared zero subtree.
func SubtreeFillToContents(nodes []Node, depth uint8) (Node, error) {
	anchor := uint64(1) << depth
	if uint64(len(nodes)) > anchor {
		return nil, fmt.Errorf("tree: %d nodes exceed subtree capacity %d", len(nodes), anchor)
	}
	if len(nodes) == 0 {
		return ZeroNode(depth), nil
	}
	if depth == 0 {
		if len(nodes) != 1 {
			return nil, ErrNavigation
		}
		return nodes[0], nil
	}
	if depth == 1 {
		if len(nodes) > 1 {
			return NewPairNode(nodes[0], nodes[1]), nil
		}
		return NewPairNode(nodes[0], ZeroNode(0)), nil
	}
	pivot := anchor >> 1
	if uint64(len(nodes)) <= pivot {
		left, err := SubtreeFillToContents(nodes, depth-1)
		if err != nil {
			return nil, err
		}
		return NewPairNode(left, ZeroNode(depth-1)), nil
	}
	left, err := SubtreeFillToContents(nodes[:pivot], depth-1)
	if err != nil {
		return nil, err
	}
	right, err := SubtreeFillToContents(nodes[pivot:], depth-1)
	if err != nil {
		return nil, err
	}
	return NewPairNode(left, right), nil
}
