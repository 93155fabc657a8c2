package view

import (
	"fmt"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// ListTypeDef describes List[T, L]: a variable-length sequence with a
// declared limit. The backing is a pair whose left child is the chunked
// content tree (same layout as the vector, merkleized to the limit's chunk
// count) and whose right child is a leaf holding u256_le(length); the pair
// root therefore equals mix_in_length(content_root, length) by
// construction.
type ListTypeDef struct {
	elem          TypeDef
	basic         BasicTypeDef // non-nil for packed basic elements
	limit         uint64
	contentDepth  uint8
	depth         uint8 // contentDepth + 1 for the length mix-in
	elemsPerChunk uint64
}

// ListType builds a list descriptor. A zero limit is allowed and yields a
// list that can only ever be empty.
func ListType(elem TypeDef, limit uint64) (*ListTypeDef, error) {
	if elem == nil {
		return nil, fmt.Errorf("view: list element type is nil")
	}
	td := &ListTypeDef{elem: elem, limit: limit}
	if b, ok := elem.(BasicTypeDef); ok {
		td.basic = b
		size := b.ByteLength()
		td.elemsPerChunk = 32 / size
		td.contentDepth = tree.CoverDepth((limit*size + 31) / 32)
	} else {
		td.contentDepth = tree.CoverDepth(limit)
	}
	td.depth = td.contentDepth + 1
	return td, nil
}

// ElementType returns the element type descriptor.
func (td *ListTypeDef) ElementType() TypeDef { return td.elem }

// Limit returns the declared element limit.
func (td *ListTypeDef) Limit() uint64 { return td.limit }

func (td *ListTypeDef) Name() string {
	return fmt.Sprintf("List[%s, %d]", td.elem.Name(), td.limit)
}

func (td *ListTypeDef) DefaultNode() tree.Node {
	return tree.NewPairNode(tree.ZeroNode(td.contentDepth), tree.ZeroNode(0))
}

func (td *ListTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *ListTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &ListView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *ListTypeDef) IsFixedByteLength() bool { return false }
func (td *ListTypeDef) TypeByteLength() uint64  { return 0 }
func (td *ListTypeDef) MinByteLength() uint64   { return 0 }

func (td *ListTypeDef) MaxByteLength() uint64 {
	if td.elem.IsFixedByteLength() {
		return td.limit * td.elem.TypeByteLength()
	}
	return td.limit * (ssz.BytesPerLengthOffset + td.elem.MaxByteLength())
}

// elemGindex returns the generalized index of the content position holding
// element i, relative to the list root (below the length mix-in).
func (td *ListTypeDef) elemGindex(i uint64) tree.Gindex {
	pos := i
	if td.basic != nil {
		pos = i / td.elemsPerChunk
	}
	g, _ := tree.ToGindex(pos, td.depth)
	return g
}

func (td *ListTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	scope := dr.Scope()
	var count uint64
	var contents tree.Node
	var err error
	switch {
	case td.basic != nil:
		size := td.basic.ByteLength()
		if scope%size != 0 {
			return nil, ssz.DecodeErrf(0, "scope %d is not a multiple of element size %d", scope, size)
		}
		count = scope / size
		if count > td.limit {
			return nil, ssz.DecodeErrf(0, "%d elements exceed list limit %d", count, td.limit)
		}
		nodes, rerr := readPackedChunks(dr, scope)
		if rerr != nil {
			return nil, rerr
		}
		contents, err = tree.SubtreeFillToContents(nodes, td.contentDepth)
	case td.elem.IsFixedByteLength():
		size := td.elem.TypeByteLength()
		if scope%size != 0 {
			return nil, ssz.DecodeErrf(0, "scope %d is not a multiple of element size %d", scope, size)
		}
		count = scope / size
		if count > td.limit {
			return nil, ssz.DecodeErrf(0, "%d elements exceed list limit %d", count, td.limit)
		}
		nodes := make([]tree.Node, count)
		for i := range nodes {
			sub, serr := dr.Sub(size)
			if serr != nil {
				return nil, serr
			}
			child, derr := td.elem.Deserialize(sub)
			if derr != nil {
				return nil, fmt.Errorf("element %d: %w", i, derr)
			}
			nodes[i] = child.Backing()
		}
		contents, err = tree.SubtreeFillToContents(nodes, td.contentDepth)
	default:
		if scope == 0 {
			count = 0
			contents = tree.ZeroNode(td.contentDepth)
			break
		}
		nodes, n, rerr := readOffsetList(dr, td.elem, td.limit)
		if rerr != nil {
			return nil, rerr
		}
		count = n
		contents, err = tree.SubtreeFillToContents(nodes, td.contentDepth)
	}
	if err != nil {
		return nil, err
	}
	backing := tree.NewPairNode(contents, tree.LeafFromUint64(count))
	return td.ViewFromBacking(backing, nil)
}

func (td *ListTypeDef) FromObj(raw any) (View, error) {
	seq, err := coerceSeq(raw)
	if err != nil {
		return nil, err
	}
	if uint64(len(seq)) > td.limit {
		return nil, fmt.Errorf("%w: %d elements exceed limit %d", ErrListLimit, len(seq), td.limit)
	}
	views := make([]View, len(seq))
	for i, rawElem := range seq {
		child, cerr := td.elem.FromObj(rawElem)
		if cerr != nil {
			return nil, fmt.Errorf("element %d: %w", i, cerr)
		}
		views[i] = child
	}
	var contents tree.Node
	if td.basic != nil {
		contents, err = packBasicViews(views, td.basic, td.contentDepth)
	} else {
		nodes := make([]tree.Node, len(views))
		for i, child := range views {
			nodes[i] = child.Backing()
		}
		contents, err = tree.SubtreeFillToContents(nodes, td.contentDepth)
	}
	if err != nil {
		return nil, err
	}
	backing := tree.NewPairNode(contents, tree.LeafFromUint64(uint64(len(seq))))
	return td.ViewFromBacking(backing, nil)
}

func (td *ListTypeDef) String() string { return td.Name() }

// readOffsetList decodes variable-size list elements. The element count is
// implied by the first offset (the offset table precedes all payloads), so
// the table is read and validated as it streams by.
func readOffsetList(dr *ssz.DecodingReader, elem TypeDef, limit uint64) ([]tree.Node, uint64, error) {
	scope := dr.Scope()
	at := dr.Index()
	first, err := dr.ReadOffset()
	if err != nil {
		return nil, 0, err
	}
	if first == 0 || uint64(first)%ssz.BytesPerLengthOffset != 0 {
		return nil, 0, ssz.DecodeErrf(at, "first offset %d is not a positive multiple of %d", first, ssz.BytesPerLengthOffset)
	}
	count := uint64(first) / ssz.BytesPerLengthOffset
	if count > limit {
		return nil, 0, ssz.DecodeErrf(at, "%d elements exceed list limit %d", count, limit)
	}
	if uint64(first) > scope {
		return nil, 0, ssz.DecodeErrf(at, "first offset %d exceeds scope %d", first, scope)
	}
	offsets := make([]uint64, count)
	offsets[0] = uint64(first)
	for i := uint64(1); i < count; i++ {
		at = dr.Index()
		off, rerr := dr.ReadOffset()
		if rerr != nil {
			return nil, 0, rerr
		}
		offsets[i] = uint64(off)
		if offsets[i] < offsets[i-1] {
			return nil, 0, ssz.DecodeErrf(at, "offset %d decreases below previous %d", offsets[i], offsets[i-1])
		}
		if offsets[i] > scope {
			return nil, 0, ssz.DecodeErrf(at, "offset %d exceeds scope %d", offsets[i], scope)
		}
	}
	nodes := make([]tree.Node, count)
	for i := uint64(0); i < count; i++ {
		end := scope
		if i+1 < count {
			end = offsets[i+1]
		}
		sub, serr := dr.Sub(end - offsets[i])
		if serr != nil {
			return nil, 0, serr
		}
		child, derr := elem.Deserialize(sub)
		if derr != nil {
			return nil, 0, fmt.Errorf("element %d: %w", i, derr)
		}
		nodes[i] = child.Backing()
	}
	return nodes, count, nil
}

// ListView is a typed view over a list backing.
type ListView struct {
	BackedView
	td *ListTypeDef
}

func (v *ListView) Type() TypeDef { return v.td }

// Length reads the current element count from the length leaf.
func (v *ListView) Length() (uint64, error) {
	return readLengthLeaf(v.BackingNode, v.td.limit)
}

// Get returns a view of element i. Fails with ErrOutOfRange at or past the
// current length.
func (v *ListView) Get(i uint64) (View, error) {
	ll, err := v.Length()
	if err != nil {
		return nil, err
	}
	if i >= ll {
		return nil, fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, ll)
	}
	g := v.td.elemGindex(i)
	node, err := tree.Getter(v.BackingNode, g)
	if err != nil {
		return nil, err
	}
	if v.td.basic != nil {
		return v.td.basic.SubViewFromBacking(node, i%v.td.elemsPerChunk)
	}
	return v.td.elem.ViewFromBacking(node, v.childHook(g))
}

// Set rebinds element i to the given value.
func (v *ListView) Set(i uint64, w View) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if i >= ll {
		return fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, ll)
	}
	if !sameType(v.td.elem, w.Type()) {
		return fmt.Errorf("%w: element type is %s, got %s", ErrTypeMismatch, v.td.elem.Name(), w.Type().Name())
	}
	g := v.td.elemGindex(i)
	var replacement tree.Node
	if v.td.basic != nil {
		bw, ok := w.(BasicView)
		if !ok {
			return fmt.Errorf("%w: %s is not a basic view", ErrTypeMismatch, w.Type().Name())
		}
		leaf, gerr := tree.Getter(v.BackingNode, g)
		if gerr != nil {
			return gerr
		}
		chunk, cerr := tree.LeafContent(leaf)
		if cerr != nil {
			return cerr
		}
		replacement = bw.BackingFromBase(chunk, i%v.td.elemsPerChunk)
	} else {
		replacement = w.Backing()
	}
	link, err := tree.Setter(v.BackingNode, g, false)
	if err != nil {
		return err
	}
	return v.SetBacking(link(replacement))
}

// Append adds a value at the end of the list, rebinding the content leaf
// and the length leaf. Fails with ErrListLimit at capacity.
func (v *ListView) Append(w View) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if ll >= v.td.limit {
		return fmt.Errorf("%w: limit %d", ErrListLimit, v.td.limit)
	}
	if !sameType(v.td.elem, w.Type()) {
		return fmt.Errorf("%w: element type is %s, got %s", ErrTypeMismatch, v.td.elem.Name(), w.Type().Name())
	}
	g := v.td.elemGindex(ll)
	var replacement tree.Node
	if v.td.basic != nil {
		bw, ok := w.(BasicView)
		if !ok {
			return fmt.Errorf("%w: %s is not a basic view", ErrTypeMismatch, w.Type().Name())
		}
		slot := ll % v.td.elemsPerChunk
		if slot == 0 {
			replacement = bw.BackingFromBase(tree.Root{}, 0)
		} else {
			leaf, gerr := tree.Getter(v.BackingNode, g)
			if gerr != nil {
				return gerr
			}
			chunk, cerr := tree.LeafContent(leaf)
			if cerr != nil {
				return cerr
			}
			replacement = bw.BackingFromBase(chunk, slot)
		}
	} else {
		replacement = w.Backing()
	}
	next, err := tree.ExpandInto(v.BackingNode, g, replacement)
	if err != nil {
		return err
	}
	next, err = tree.SetNode(next, tree.RightGindex, tree.LeafFromUint64(ll+1))
	if err != nil {
		return err
	}
	return v.SetBacking(next)
}

// Pop removes the last element, zero-filling the vacated position so the
// resulting root is canonical. Fails with ErrOutOfRange on an empty list.
func (v *ListView) Pop() error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if ll == 0 {
		return fmt.Errorf("%w: pop on empty list", ErrOutOfRange)
	}
	i := ll - 1
	g := v.td.elemGindex(i)
	var replacement tree.Node
	if v.td.basic != nil && i%v.td.elemsPerChunk != 0 {
		leaf, gerr := tree.Getter(v.BackingNode, g)
		if gerr != nil {
			return gerr
		}
		chunk, cerr := tree.LeafContent(leaf)
		if cerr != nil {
			return cerr
		}
		size := v.td.basic.ByteLength()
		slot := i % v.td.elemsPerChunk
		for j := uint64(0); j < size; j++ {
			chunk[slot*size+j] = 0
		}
		replacement = tree.NewLeafNode(chunk)
	} else {
		replacement = tree.ZeroNode(0)
	}
	next, err := tree.ExpandInto(v.BackingNode, g, replacement)
	if err != nil {
		return err
	}
	next, err = tree.SetNode(next, tree.RightGindex, tree.LeafFromUint64(ll-1))
	if err != nil {
		return err
	}
	return v.SetBacking(next)
}

func (v *ListView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

func (v *ListView) ValueByteLength() (uint64, error) {
	ll, err := v.Length()
	if err != nil {
		return 0, err
	}
	if v.td.elem.IsFixedByteLength() {
		return ll * v.td.elem.TypeByteLength(), nil
	}
	total := ll * ssz.BytesPerLengthOffset
	for i := uint64(0); i < ll; i++ {
		child, gerr := v.Get(i)
		if gerr != nil {
			return 0, gerr
		}
		n, nerr := child.ValueByteLength()
		if nerr != nil {
			return 0, nerr
		}
		total += n
	}
	return total, nil
}

func (v *ListView) Serialize(w *ssz.EncodingWriter) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if v.td.basic != nil {
		contents, cerr := v.BackingNode.Left()
		if cerr != nil {
			return cerr
		}
		return serializePackedChunks(w, contents, v.td.contentDepth, ll*v.td.basic.ByteLength())
	}
	if v.td.elem.IsFixedByteLength() {
		for i := uint64(0); i < ll; i++ {
			child, gerr := v.Get(i)
			if gerr != nil {
				return gerr
			}
			if err := child.Serialize(w); err != nil {
				return err
			}
		}
		return nil
	}
	return serializeOffsetElements(w, func(i uint64) (View, error) { return v.Get(i) }, ll)
}

func (v *ListView) ToObj() (any, error) {
	ll, err := v.Length()
	if err != nil {
		return nil, err
	}
	out := make([]any, ll)
	for i := uint64(0); i < ll; i++ {
		child, gerr := v.Get(i)
		if gerr != nil {
			return nil, gerr
		}
		obj, oerr := child.ToObj()
		if oerr != nil {
			return nil, oerr
		}
		out[i] = obj
	}
	return out, nil
}

// readLengthLeaf reads the u256_le length leaf at the right child of a
// length-mixed backing and sanity-checks it against the declared limit.
func readLengthLeaf(backing tree.Node, limit uint64) (uint64, error) {
	leaf, err := tree.Getter(backing, tree.RightGindex)
	if err != nil {
		return 0, err
	}
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return 0, err
	}
	var ll uint64
	for i := 0; i < 8; i++ {
		ll |= uint64(chunk[i]) << (8 * i)
	}
	for i := 8; i < 32; i++ {
		if chunk[i] != 0 {
			return 0, fmt.Errorf("view: corrupt length leaf %s", chunk)
		}
	}
	if ll > limit {
		return 0, fmt.Errorf("view: length %d exceeds limit %d", ll, limit)
	}
	return ll, nil
}
