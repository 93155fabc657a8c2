package view

import (
	"fmt"
	"math/bits"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// Bits are little-endian within bytes: bit i of the field lives at bit
// position i%8 of byte i/8, and 256 bits fill one chunk.

// chunkWithBit returns a copy of chunk with bit i (0..255) set to v.
func chunkWithBit(chunk tree.Root, i uint64, v bool) tree.Root {
	if v {
		chunk[(i%256)/8] |= 1 << (i % 8)
	} else {
		chunk[(i%256)/8] &^= 1 << (i % 8)
	}
	return chunk
}

// chunkBit reads bit i (0..255) of a chunk.
func chunkBit(chunk tree.Root, i uint64) bool {
	return (chunk[(i%256)/8]>>(i%8))&1 == 1
}

// packBitsToChunks packs bits little-endian into zero-padded chunk leaves.
func packBitsToChunks(bitSeq []bool) []tree.Node {
	chunkCount := (uint64(len(bitSeq)) + 255) / 256
	nodes := make([]tree.Node, chunkCount)
	for c := uint64(0); c < chunkCount; c++ {
		var chunk tree.Root
		for i := c * 256; i < min(uint64(len(bitSeq)), (c+1)*256); i++ {
			if bitSeq[i] {
				chunk = chunkWithBit(chunk, i%256, true)
			}
		}
		nodes[c] = tree.NewLeafNode(chunk)
	}
	return nodes
}

// --- BitVector[N] ---

// BitVectorTypeDef describes BitVector[N]: a fixed-length bit sequence
// chunked 256 bits per leaf, merkleized with limit ceil(N/256). The wire
// encoding is ceil(N/8) bytes with zero padding above bit N-1.
type BitVectorTypeDef struct {
	length uint64
	depth  uint8
}

// BitVectorType builds a bitvector descriptor. Zero length is rejected.
func BitVectorType(length uint64) (*BitVectorTypeDef, error) {
	if length == 0 {
		return nil, fmt.Errorf("view: bitvector length must be positive")
	}
	return &BitVectorTypeDef{
		length: length,
		depth:  tree.CoverDepth((length + 255) / 256),
	}, nil
}

// Length returns the static bit count.
func (td *BitVectorTypeDef) Length() uint64 { return td.length }

func (td *BitVectorTypeDef) Name() string {
	return fmt.Sprintf("BitVector[%d]", td.length)
}

func (td *BitVectorTypeDef) DefaultNode() tree.Node { return tree.ZeroNode(td.depth) }

func (td *BitVectorTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *BitVectorTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &BitVectorView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *BitVectorTypeDef) IsFixedByteLength() bool { return true }
func (td *BitVectorTypeDef) TypeByteLength() uint64  { return (td.length + 7) / 8 }
func (td *BitVectorTypeDef) MinByteLength() uint64   { return td.TypeByteLength() }
func (td *BitVectorTypeDef) MaxByteLength() uint64   { return td.TypeByteLength() }

func (td *BitVectorTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	byteLen := td.TypeByteLength()
	if err := checkFixedScope(dr, byteLen); err != nil {
		return nil, err
	}
	data := make([]byte, byteLen)
	if err := dr.Read(data); err != nil {
		return nil, err
	}
	// Trailing bits above N-1 in the last byte must be zero.
	if td.length%8 != 0 && data[byteLen-1]>>(td.length%8) != 0 {
		return nil, fmt.Errorf("%w: bits set above bitvector length %d", ssz.ErrInvalidBitfield, td.length)
	}
	return td.fromWireBytes(data)
}

func (td *BitVectorTypeDef) fromWireBytes(data []byte) (View, error) {
	chunks := tree.PackChunks(data)
	nodes := make([]tree.Node, len(chunks))
	for i, c := range chunks {
		nodes[i] = tree.NewLeafNode(c)
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *BitVectorTypeDef) FromObj(raw any) (View, error) {
	bitSeq, err := coerceBools(raw)
	if err != nil {
		return nil, err
	}
	if uint64(len(bitSeq)) != td.length {
		return nil, fmt.Errorf("%w: %s expects %d bits, got %d", ErrTypeMismatch, td.Name(), td.length, len(bitSeq))
	}
	backing, err := tree.SubtreeFillToContents(packBitsToChunks(bitSeq), td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *BitVectorTypeDef) String() string { return td.Name() }

// BitVectorView is a typed view over a bitvector backing.
type BitVectorView struct {
	BackedView
	td *BitVectorTypeDef
}

func (v *BitVectorView) Type() TypeDef { return v.td }

// Length returns the static bit count.
func (v *BitVectorView) Length() uint64 { return v.td.length }

// Get returns bit i.
func (v *BitVectorView) Get(i uint64) (bool, error) {
	if i >= v.td.length {
		return false, fmt.Errorf("%w: bit %d of %d", ErrOutOfRange, i, v.td.length)
	}
	return getChunkedBit(v.BackingNode, v.td.depth, i)
}

// Set rebinds bit i.
func (v *BitVectorView) Set(i uint64, b bool) error {
	if i >= v.td.length {
		return fmt.Errorf("%w: bit %d of %d", ErrOutOfRange, i, v.td.length)
	}
	return setChunkedBit(&v.BackedView, v.td.depth, i, b)
}

func (v *BitVectorView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

func (v *BitVectorView) ValueByteLength() (uint64, error) {
	return v.td.TypeByteLength(), nil
}

func (v *BitVectorView) Serialize(w *ssz.EncodingWriter) error {
	return serializePackedChunks(w, v.BackingNode, v.td.depth, v.td.TypeByteLength())
}

// ToObj returns the bits as a []bool.
func (v *BitVectorView) ToObj() (any, error) {
	out := make([]bool, v.td.length)
	for i := range out {
		b, err := v.Get(uint64(i))
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// --- BitList[L] ---

// BitListTypeDef describes BitList[L]: a variable-length bit sequence with
// the list's length-mixed backing layout and chunk limit ceil(L/256). The
// chunked payload carries only the content bits; the wire encoding appends
// a delimiter bit at position length%8 of the last byte.
type BitListTypeDef struct {
	limit        uint64
	contentDepth uint8
	depth        uint8
}

// BitListType builds a bitlist descriptor. A zero limit is allowed.
func BitListType(limit uint64) (*BitListTypeDef, error) {
	td := &BitListTypeDef{
		limit:        limit,
		contentDepth: tree.CoverDepth((limit + 255) / 256),
	}
	td.depth = td.contentDepth + 1
	return td, nil
}

// Limit returns the declared bit limit.
func (td *BitListTypeDef) Limit() uint64 { return td.limit }

func (td *BitListTypeDef) Name() string {
	return fmt.Sprintf("BitList[%d]", td.limit)
}

func (td *BitListTypeDef) DefaultNode() tree.Node {
	return tree.NewPairNode(tree.ZeroNode(td.contentDepth), tree.ZeroNode(0))
}

func (td *BitListTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *BitListTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &BitListView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *BitListTypeDef) IsFixedByteLength() bool { return false }
func (td *BitListTypeDef) TypeByteLength() uint64  { return 0 }

// MinByteLength is 1: the delimiter bit always occupies a byte.
func (td *BitListTypeDef) MinByteLength() uint64 { return 1 }

// MaxByteLength covers the limit's bits plus the delimiter.
func (td *BitListTypeDef) MaxByteLength() uint64 { return (td.limit + 7 + 1) / 8 }

func (td *BitListTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	scope := dr.Scope()
	if scope == 0 {
		return nil, ssz.DecodeErrf(0, "bitlist needs at least the delimiter byte")
	}
	if scope > td.MaxByteLength() {
		return nil, ssz.DecodeErrf(0, "scope %d exceeds bitlist byte limit %d", scope, td.MaxByteLength())
	}
	data := make([]byte, scope)
	if err := dr.Read(data); err != nil {
		return nil, err
	}
	last := data[scope-1]
	if last == 0 {
		return nil, fmt.Errorf("%w: bitlist is missing its delimiter bit", ssz.ErrInvalidBitfield)
	}
	delim := uint64(bits.Len8(last) - 1)
	bitLen := (scope-1)*8 + delim
	if bitLen > td.limit {
		return nil, ssz.DecodeErrf(scope-1, "%d bits exceed bitlist limit %d", bitLen, td.limit)
	}
	// Strip the delimiter; the chunked payload carries content bits only.
	data[scope-1] = last ^ (1 << delim)
	contentBytes := (bitLen + 7) / 8
	var contents tree.Node
	var err error
	if bitLen == 0 {
		contents = tree.ZeroNode(td.contentDepth)
	} else {
		chunks := tree.PackChunks(data[:contentBytes])
		nodes := make([]tree.Node, len(chunks))
		for i, c := range chunks {
			nodes[i] = tree.NewLeafNode(c)
		}
		contents, err = tree.SubtreeFillToContents(nodes, td.contentDepth)
		if err != nil {
			return nil, err
		}
	}
	backing := tree.NewPairNode(contents, tree.LeafFromUint64(bitLen))
	return td.ViewFromBacking(backing, nil)
}

func (td *BitListTypeDef) FromObj(raw any) (View, error) {
	bitSeq, err := coerceBools(raw)
	if err != nil {
		return nil, err
	}
	if uint64(len(bitSeq)) > td.limit {
		return nil, fmt.Errorf("%w: %d bits exceed limit %d", ErrListLimit, len(bitSeq), td.limit)
	}
	var contents tree.Node
	if len(bitSeq) == 0 {
		contents = tree.ZeroNode(td.contentDepth)
	} else {
		contents, err = tree.SubtreeFillToContents(packBitsToChunks(bitSeq), td.contentDepth)
		if err != nil {
			return nil, err
		}
	}
	backing := tree.NewPairNode(contents, tree.LeafFromUint64(uint64(len(bitSeq))))
	return td.ViewFromBacking(backing, nil)
}

func (td *BitListTypeDef) String() string { return td.Name() }

// BitListView is a typed view over a bitlist backing.
type BitListView struct {
	BackedView
	td *BitListTypeDef
}

func (v *BitListView) Type() TypeDef { return v.td }

// Length reads the current bit count from the length leaf.
func (v *BitListView) Length() (uint64, error) {
	return readLengthLeaf(v.BackingNode, v.td.limit)
}

// Get returns bit i.
func (v *BitListView) Get(i uint64) (bool, error) {
	ll, err := v.Length()
	if err != nil {
		return false, err
	}
	if i >= ll {
		return false, fmt.Errorf("%w: bit %d of %d", ErrOutOfRange, i, ll)
	}
	return getChunkedBit(v.BackingNode, v.td.depth, i)
}

// Set rebinds bit i.
func (v *BitListView) Set(i uint64, b bool) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if i >= ll {
		return fmt.Errorf("%w: bit %d of %d", ErrOutOfRange, i, ll)
	}
	return setChunkedBit(&v.BackedView, v.td.depth, i, b)
}

// Append adds a bit at the end of the list.
func (v *BitListView) Append(b bool) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if ll >= v.td.limit {
		return fmt.Errorf("%w: limit %d", ErrListLimit, v.td.limit)
	}
	g, err := tree.ToGindex(ll/256, v.td.depth)
	if err != nil {
		return err
	}
	var chunk tree.Root
	if ll%256 != 0 {
		leaf, gerr := tree.Getter(v.BackingNode, g)
		if gerr != nil {
			return gerr
		}
		if chunk, err = tree.LeafContent(leaf); err != nil {
			return err
		}
	}
	chunk = chunkWithBit(chunk, ll%256, b)
	next, err := tree.ExpandInto(v.BackingNode, g, tree.NewLeafNode(chunk))
	if err != nil {
		return err
	}
	next, err = tree.SetNode(next, tree.RightGindex, tree.LeafFromUint64(ll+1))
	if err != nil {
		return err
	}
	return v.SetBacking(next)
}

// Pop removes the last bit, zero-filling the vacated position.
func (v *BitListView) Pop() error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if ll == 0 {
		return fmt.Errorf("%w: pop on empty bitlist", ErrOutOfRange)
	}
	i := ll - 1
	g, err := tree.ToGindex(i/256, v.td.depth)
	if err != nil {
		return err
	}
	var replacement tree.Node
	if i%256 == 0 {
		replacement = tree.ZeroNode(0)
	} else {
		leaf, gerr := tree.Getter(v.BackingNode, g)
		if gerr != nil {
			return gerr
		}
		chunk, cerr := tree.LeafContent(leaf)
		if cerr != nil {
			return cerr
		}
		replacement = tree.NewLeafNode(chunkWithBit(chunk, i%256, false))
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

func (v *BitListView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

// ValueByteLength covers the content bits plus the delimiter bit.
func (v *BitListView) ValueByteLength() (uint64, error) {
	ll, err := v.Length()
	if err != nil {
		return 0, err
	}
	return (ll + 7 + 1) / 8, nil
}

func (v *BitListView) Serialize(w *ssz.EncodingWriter) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	contents, err := v.BackingNode.Left()
	if err != nil {
		return err
	}
	data, err := chunkedBytes(contents, v.td.contentDepth, (ll+7)/8)
	if err != nil {
		return err
	}
	// Place the delimiter bit right after the last content bit.
	if ll%8 == 0 {
		data = append(data, 1)
	} else {
		data[len(data)-1] |= 1 << (ll % 8)
	}
	return w.Write(data)
}

// ToObj returns the bits as a []bool.
func (v *BitListView) ToObj() (any, error) {
	ll, err := v.Length()
	if err != nil {
		return nil, err
	}
	out := make([]bool, ll)
	for i := range out {
		b, gerr := v.Get(uint64(i))
		if gerr != nil {
			return nil, gerr
		}
		out[i] = b
	}
	return out, nil
}

// getChunkedBit reads bit i of the chunked content under node at the given
// tree depth.
func getChunkedBit(node tree.Node, depth uint8, i uint64) (bool, error) {
	g, err := tree.ToGindex(i/256, depth)
	if err != nil {
		return false, err
	}
	leaf, err := tree.Getter(node, g)
	if err != nil {
		return false, err
	}
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return false, err
	}
	return chunkBit(chunk, i%256), nil
}

// setChunkedBit patches bit i of the chunked content under the view's
// backing at the given tree depth and rebinds the chunk leaf.
func setChunkedBit(v *BackedView, depth uint8, i uint64, b bool) error {
	g, err := tree.ToGindex(i/256, depth)
	if err != nil {
		return err
	}
	leaf, err := tree.Getter(v.BackingNode, g)
	if err != nil {
		return err
	}
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return err
	}
	link, err := tree.Setter(v.BackingNode, g, false)
	if err != nil {
		return err
	}
	return v.SetBacking(link(tree.NewLeafNode(chunkWithBit(chunk, i%256, b))))
}
