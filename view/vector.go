package view

import (
	"fmt"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// VectorTypeDef describes Vector[T, N]: a fixed-length sequence. Basic
// elements are packed into 32-byte chunks; composite elements each occupy
// one bottom position of the content tree. The root is the merkleization
// of the content with limit equal to the chunk count (packed) or N
// (composite); no length is mixed in.
type VectorTypeDef struct {
	elem          TypeDef
	basic         BasicTypeDef // non-nil for packed basic elements
	length        uint64
	depth         uint8
	elemsPerChunk uint64 // packed only
	chunkCount    uint64 // bottom positions of the content tree
}

// VectorType builds a vector descriptor. Zero length is rejected.
func VectorType(elem TypeDef, length uint64) (*VectorTypeDef, error) {
	if elem == nil {
		return nil, fmt.Errorf("view: vector element type is nil")
	}
	if length == 0 {
		return nil, fmt.Errorf("view: vector length must be positive")
	}
	td := &VectorTypeDef{elem: elem, length: length}
	if b, ok := elem.(BasicTypeDef); ok {
		td.basic = b
		size := b.ByteLength()
		td.elemsPerChunk = 32 / size
		td.chunkCount = (length*size + 31) / 32
	} else {
		td.chunkCount = length
	}
	td.depth = tree.CoverDepth(td.chunkCount)
	return td, nil
}

// ElementType returns the element type descriptor.
func (td *VectorTypeDef) ElementType() TypeDef { return td.elem }

// Length returns the static element count.
func (td *VectorTypeDef) Length() uint64 { return td.length }

func (td *VectorTypeDef) Name() string {
	return fmt.Sprintf("Vector[%s, %d]", td.elem.Name(), td.length)
}

func (td *VectorTypeDef) DefaultNode() tree.Node {
	if td.basic != nil {
		return tree.ZeroNode(td.depth)
	}
	node, _ := tree.SubtreeFillToLength(td.elem.DefaultNode(), td.depth, td.length)
	return node
}

func (td *VectorTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *VectorTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &VectorView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *VectorTypeDef) IsFixedByteLength() bool { return td.elem.IsFixedByteLength() }

func (td *VectorTypeDef) TypeByteLength() uint64 {
	if !td.elem.IsFixedByteLength() {
		return 0
	}
	return td.length * td.elem.TypeByteLength()
}

func (td *VectorTypeDef) MinByteLength() uint64 {
	if td.elem.IsFixedByteLength() {
		return td.TypeByteLength()
	}
	return td.length * (ssz.BytesPerLengthOffset + td.elem.MinByteLength())
}

func (td *VectorTypeDef) MaxByteLength() uint64 {
	if td.elem.IsFixedByteLength() {
		return td.TypeByteLength()
	}
	return td.length * (ssz.BytesPerLengthOffset + td.elem.MaxByteLength())
}

// elemGindex returns the generalized index of the content position holding
// element i: its chunk for packed elements, its subtree otherwise.
func (td *VectorTypeDef) elemGindex(i uint64) tree.Gindex {
	pos := i
	if td.basic != nil {
		pos = i / td.elemsPerChunk
	}
	g, _ := tree.ToGindex(pos, td.depth)
	return g
}

func (td *VectorTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	if td.basic != nil {
		return td.deserializePacked(dr)
	}
	if td.elem.IsFixedByteLength() {
		return td.deserializeFixed(dr)
	}
	return td.deserializeVariable(dr)
}

func (td *VectorTypeDef) deserializePacked(dr *ssz.DecodingReader) (View, error) {
	if err := checkFixedScope(dr, td.TypeByteLength()); err != nil {
		return nil, err
	}
	nodes, err := readPackedChunks(dr, dr.Scope())
	if err != nil {
		return nil, err
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *VectorTypeDef) deserializeFixed(dr *ssz.DecodingReader) (View, error) {
	if err := checkFixedScope(dr, td.TypeByteLength()); err != nil {
		return nil, err
	}
	nodes := make([]tree.Node, td.length)
	elemSize := td.elem.TypeByteLength()
	for i := range nodes {
		sub, err := dr.Sub(elemSize)
		if err != nil {
			return nil, err
		}
		child, err := td.elem.Deserialize(sub)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		nodes[i] = child.Backing()
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *VectorTypeDef) deserializeVariable(dr *ssz.DecodingReader) (View, error) {
	nodes, err := readOffsetElements(dr, td.elem, td.length)
	if err != nil {
		return nil, err
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *VectorTypeDef) FromObj(raw any) (View, error) {
	seq, err := coerceSeq(raw)
	if err != nil {
		return nil, err
	}
	if uint64(len(seq)) != td.length {
		return nil, fmt.Errorf("%w: %s expects %d elements, got %d", ErrTypeMismatch, td.Name(), td.length, len(seq))
	}
	views := make([]View, len(seq))
	for i, rawElem := range seq {
		child, err := td.elem.FromObj(rawElem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		views[i] = child
	}
	var backing tree.Node
	if td.basic != nil {
		backing, err = packBasicViews(views, td.basic, td.depth)
	} else {
		nodes := make([]tree.Node, len(views))
		for i, child := range views {
			nodes[i] = child.Backing()
		}
		backing, err = tree.SubtreeFillToContents(nodes, td.depth)
	}
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *VectorTypeDef) String() string { return td.Name() }

// VectorView is a typed view over a vector backing.
type VectorView struct {
	BackedView
	td *VectorTypeDef
}

func (v *VectorView) Type() TypeDef { return v.td }

// Length returns the static element count.
func (v *VectorView) Length() uint64 { return v.td.length }

// Get returns a view of element i. Packed basic elements come back as
// detached basic views; composite elements are hooked to write back.
func (v *VectorView) Get(i uint64) (View, error) {
	if i >= v.td.length {
		return nil, fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, v.td.length)
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

// Set rebinds element i to the given value. For packed basic elements the
// element's slot in the chunk is patched and the chunk leaf rebound.
func (v *VectorView) Set(i uint64, w View) error {
	if i >= v.td.length {
		return fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, v.td.length)
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
		leaf, err := tree.Getter(v.BackingNode, g)
		if err != nil {
			return err
		}
		chunk, err := tree.LeafContent(leaf)
		if err != nil {
			return err
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

func (v *VectorView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

func (v *VectorView) ValueByteLength() (uint64, error) {
	if v.td.elem.IsFixedByteLength() {
		return v.td.TypeByteLength(), nil
	}
	total := v.td.length * ssz.BytesPerLengthOffset
	for i := uint64(0); i < v.td.length; i++ {
		child, err := v.Get(i)
		if err != nil {
			return 0, err
		}
		n, err := child.ValueByteLength()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (v *VectorView) Serialize(w *ssz.EncodingWriter) error {
	if v.td.basic != nil {
		return serializePackedChunks(w, v.BackingNode, v.td.depth, v.td.TypeByteLength())
	}
	if v.td.elem.IsFixedByteLength() {
		for i := uint64(0); i < v.td.length; i++ {
			child, err := v.Get(i)
			if err != nil {
				return err
			}
			if err := child.Serialize(w); err != nil {
				return err
			}
		}
		return nil
	}
	return serializeOffsetElements(w, func(i uint64) (View, error) { return v.Get(i) }, v.td.length)
}

func (v *VectorView) ToObj() (any, error) {
	out := make([]any, v.td.length)
	for i := uint64(0); i < v.td.length; i++ {
		child, err := v.Get(i)
		if err != nil {
			return nil, err
		}
		obj, err := child.ToObj()
		if err != nil {
			return nil, err
		}
		out[i] = obj
	}
	return out, nil
}

// --- shared sequence codec helpers ---

// readPackedChunks consumes byteLen bytes and returns them as zero-padded
// leaf chunks.
func readPackedChunks(dr *ssz.DecodingReader, byteLen uint64) ([]tree.Node, error) {
	if byteLen == 0 {
		return nil, nil
	}
	data := make([]byte, byteLen)
	if err := dr.Read(data); err != nil {
		return nil, err
	}
	chunks := tree.PackChunks(data)
	nodes := make([]tree.Node, len(chunks))
	for i, c := range chunks {
		nodes[i] = tree.NewLeafNode(c)
	}
	return nodes, nil
}

// serializePackedChunks emits byteLen bytes from the chunk leaves of the
// content tree anchored at node with the given depth.
func serializePackedChunks(w *ssz.EncodingWriter, node tree.Node, depth uint8, byteLen uint64) error {
	remaining := byteLen
	chunkCount := (byteLen + 31) / 32
	for i := uint64(0); i < chunkCount; i++ {
		g, err := tree.ToGindex(i, depth)
		if err != nil {
			return err
		}
		leaf, err := tree.Getter(node, g)
		if err != nil {
			return err
		}
		chunk, err := tree.LeafContent(leaf)
		if err != nil {
			return err
		}
		n := min(remaining, 32)
		if err := w.Write(chunk[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// packBasicViews packs basic views into chunk leaves and fills a content
// subtree of the given depth.
func packBasicViews(views []View, elem BasicTypeDef, depth uint8) (tree.Node, error) {
	size := elem.ByteLength()
	perChunk := 32 / size
	chunkCount := (uint64(len(views)) + perChunk - 1) / perChunk
	nodes := make([]tree.Node, chunkCount)
	for c := uint64(0); c < chunkCount; c++ {
		var chunk tree.Root
		for s := uint64(0); s < perChunk; s++ {
			i := c*perChunk + s
			if i >= uint64(len(views)) {
				break
			}
			bw, ok := views[i].(BasicView)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a basic view", ErrTypeMismatch, views[i].Type().Name())
			}
			chunk = bw.BackingFromBase(chunk, s).Root()
		}
		nodes[c] = tree.NewLeafNode(chunk)
	}
	return tree.SubtreeFillToContents(nodes, depth)
}

// readOffsetElements decodes count variable-size elements prefixed by their
// offset table, validating the table per the SSZ offset rules.
func readOffsetElements(dr *ssz.DecodingReader, elem TypeDef, count uint64) ([]tree.Node, error) {
	scope := dr.Scope()
	fixedSize := count * ssz.BytesPerLengthOffset
	if scope < fixedSize {
		return nil, ssz.DecodeErrf(0, "scope %d below offset table size %d", scope, fixedSize)
	}
	offsets := make([]uint64, count)
	for i := uint64(0); i < count; i++ {
		at := dr.Index()
		off, err := dr.ReadOffset()
		if err != nil {
			return nil, err
		}
		offsets[i] = uint64(off)
		if i == 0 && offsets[i] != fixedSize {
			return nil, ssz.DecodeErrf(at, "first offset %d does not match offset table size %d", offsets[i], fixedSize)
		}
		if i > 0 && offsets[i] < offsets[i-1] {
			return nil, ssz.DecodeErrf(at, "offset %d decreases below previous %d", offsets[i], offsets[i-1])
		}
		if offsets[i] > scope {
			return nil, ssz.DecodeErrf(at, "offset %d exceeds scope %d", offsets[i], scope)
		}
	}
	nodes := make([]tree.Node, count)
	for i := uint64(0); i < count; i++ {
		end := scope
		if i+1 < count {
			end = offsets[i+1]
		}
		sub, err := dr.Sub(end - offsets[i])
		if err != nil {
			return nil, err
		}
		child, err := elem.Deserialize(sub)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		nodes[i] = child.Backing()
	}
	return nodes, nil
}

// serializeOffsetElements emits count variable-size elements as an offset
// table followed by the payloads in order.
func serializeOffsetElements(w *ssz.EncodingWriter, get func(uint64) (View, error), count uint64) error {
	children := make([]View, count)
	running := count * ssz.BytesPerLengthOffset
	for i := uint64(0); i < count; i++ {
		child, err := get(i)
		if err != nil {
			return err
		}
		children[i] = child
		if err := w.WriteOffset(running); err != nil {
			return err
		}
		n, err := child.ValueByteLength()
		if err != nil {
			return err
		}
		running += n
	}
	for _, child := range children {
		if err := child.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}
