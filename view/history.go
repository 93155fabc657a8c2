package view

import (
	"fmt"
	"iter"

	"github.com/eth2030/sszview/tree"
)

// Revision is one backing replacement recorded by a History.
type Revision struct {
	Prev, Next tree.Node
}

// History records the sequence of backings a root-level view has held. It
// is installed as the view's hook (or chained in front of one) and appends
// a revision on every mutation. Backings are immutable, so the history
// shares all unchanged subtrees with the live value.
type History struct {
	initial   tree.Node
	revisions []Revision
}

// NewHistory starts a history at the given initial backing. Install Hook()
// on the root view to record its mutations:
//
//	v := td.Default(nil).(*view.ContainerView)
//	h := view.NewHistory(v.Backing())
//	v.Hook = h.Hook(nil)
func NewHistory(initial tree.Node) *History {
	return &History{initial: initial}
}

// Hook returns the recording hook. The next hook, if any, is invoked after
// the revision is recorded, so a history can chain in front of a parent
// rebind.
func (h *History) Hook(next BackingHook) BackingHook {
	return func(b tree.Node) error {
		h.revisions = append(h.revisions, Revision{Prev: h.Head(), Next: b})
		if next != nil {
			return next(b)
		}
		return nil
	}
}

// Len returns the number of recorded revisions.
func (h *History) Len() int { return len(h.revisions) }

// Revision returns the i'th recorded revision.
func (h *History) Revision(i int) Revision { return h.revisions[i] }

// Head returns the most recent backing: the initial one if nothing was
// recorded yet.
func (h *History) Head() tree.Node {
	if len(h.revisions) == 0 {
		return h.initial
	}
	return h.revisions[len(h.revisions)-1].Next
}

// Backing returns backing i of the sequence: 0 is the initial backing,
// i > 0 is the result of revision i-1.
func (h *History) Backing(i int) tree.Node {
	if i == 0 {
		return h.initial
	}
	return h.revisions[i-1].Next
}

// DiffAt returns the lazy subtree diff introduced by revision i.
func (h *History) DiffAt(i int) (iter.Seq[tree.DiffEntry], error) {
	if i < 0 || i >= len(h.revisions) {
		return nil, fmt.Errorf("%w: revision %d of %d", ErrOutOfRange, i, len(h.revisions))
	}
	r := h.revisions[i]
	return tree.Diff(r.Prev, r.Next), nil
}

// TargetEntry is one distinct value of a tree position across a history.
type TargetEntry struct {
	// Backing is the index of the first backing holding the value.
	Backing int
	Node    tree.Node
}

// TargetHistory extracts the ordered sequence of distinct subtrees at the
// given generalized index across all recorded backings: sequential equal
// values (by root) collapse into one entry keyed by their first
// occurrence. Backings that cannot resolve the position (partial, or not
// yet expanded) are skipped.
func (h *History) TargetHistory(target tree.Gindex) ([]TargetEntry, error) {
	if !target.Valid() {
		return nil, tree.ErrNavigation
	}
	var out []TargetEntry
	var last *tree.Root
	for i := 0; i <= len(h.revisions); i++ {
		node, err := tree.Getter(h.Backing(i), target)
		if err != nil {
			continue
		}
		root := node.Root()
		if last != nil && root == *last {
			continue
		}
		out = append(out, TargetEntry{Backing: i, Node: node})
		last = &root
	}
	return out, nil
}
