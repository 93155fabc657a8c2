package view

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// ByteVectorTypeDef describes ByteVector[N]: a fixed-length byte sequence
// chunked 32 bytes per leaf, merkleized with limit ceil(N/32).
type ByteVectorTypeDef struct {
	length uint64
	depth  uint8
}

// ByteVectorType builds a byte-vector descriptor. Zero length is rejected.
func ByteVectorType(length uint64) (*ByteVectorTypeDef, error) {
	if length == 0 {
		return nil, fmt.Errorf("view: byte vector length must be positive")
	}
	return &ByteVectorTypeDef{
		length: length,
		depth:  tree.CoverDepth((length + 31) / 32),
	}, nil
}

// Length returns the static byte count.
func (td *ByteVectorTypeDef) Length() uint64 { return td.length }

func (td *ByteVectorTypeDef) Name() string {
	return fmt.Sprintf("ByteVector[%d]", td.length)
}

func (td *ByteVectorTypeDef) DefaultNode() tree.Node { return tree.ZeroNode(td.depth) }

func (td *ByteVectorTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *ByteVectorTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &ByteVectorView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *ByteVectorTypeDef) IsFixedByteLength() bool { return true }
func (td *ByteVectorTypeDef) TypeByteLength() uint64  { return td.length }
func (td *ByteVectorTypeDef) MinByteLength() uint64   { return td.length }
func (td *ByteVectorTypeDef) MaxByteLength() uint64   { return td.length }

func (td *ByteVectorTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	if err := checkFixedScope(dr, td.length); err != nil {
		return nil, err
	}
	nodes, err := readPackedChunks(dr, td.length)
	if err != nil {
		return nil, err
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *ByteVectorTypeDef) FromObj(raw any) (View, error) {
	data, err := coerceBytes(raw)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != td.length {
		return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrTypeMismatch, td.Name(), td.length, len(data))
	}
	return td.fromBytes(data)
}

// FromBytes constructs a byte-vector view over a copy of exactly length
// bytes.
func (td *ByteVectorTypeDef) FromBytes(data []byte) (*ByteVectorView, error) {
	if uint64(len(data)) != td.length {
		return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrTypeMismatch, td.Name(), td.length, len(data))
	}
	return td.fromBytes(data)
}

func (td *ByteVectorTypeDef) fromBytes(data []byte) (*ByteVectorView, error) {
	chunks := tree.PackChunks(data)
	nodes := make([]tree.Node, len(chunks))
	for i, c := range chunks {
		nodes[i] = tree.NewLeafNode(c)
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return &ByteVectorView{
		BackedView: BackedView{BackingNode: backing},
		td:         td,
	}, nil
}

func (td *ByteVectorTypeDef) String() string { return td.Name() }

// ByteVectorView is a typed view over a byte-vector backing.
type ByteVectorView struct {
	BackedView
	td *ByteVectorTypeDef
}

func (v *ByteVectorView) Type() TypeDef { return v.td }

// Length returns the static byte count.
func (v *ByteVectorView) Length() uint64 { return v.td.length }

// Bytes reads the whole byte sequence out of the chunk leaves.
func (v *ByteVectorView) Bytes() ([]byte, error) {
	return chunkedBytes(v.BackingNode, v.td.depth, v.td.length)
}

// Get returns byte i.
func (v *ByteVectorView) Get(i uint64) (byte, error) {
	if i >= v.td.length {
		return 0, fmt.Errorf("%w: byte %d of %d", ErrOutOfRange, i, v.td.length)
	}
	g, err := tree.ToGindex(i/32, v.td.depth)
	if err != nil {
		return 0, err
	}
	leaf, err := tree.Getter(v.BackingNode, g)
	if err != nil {
		return 0, err
	}
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return 0, err
	}
	return chunk[i%32], nil
}

// Set rebinds byte i.
func (v *ByteVectorView) Set(i uint64, b byte) error {
	if i >= v.td.length {
		return fmt.Errorf("%w: byte %d of %d", ErrOutOfRange, i, v.td.length)
	}
	return setChunkedByte(&v.BackedView, v.td.depth, i, b)
}

func (v *ByteVectorView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

func (v *ByteVectorView) ValueByteLength() (uint64, error) { return v.td.length, nil }

func (v *ByteVectorView) Serialize(w *ssz.EncodingWriter) error {
	return serializePackedChunks(w, v.BackingNode, v.td.depth, v.td.length)
}

// ToObj returns the bytes as hexutil.Bytes, which renders as a 0x-prefixed
// hex string.
func (v *ByteVectorView) ToObj() (any, error) {
	data, err := v.Bytes()
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(data), nil
}

// ByteListTypeDef describes ByteList[L]: a variable-length byte sequence
// with the list's length-mixed backing layout and chunk limit ceil(L/32).
type ByteListTypeDef struct {
	limit        uint64
	contentDepth uint8
	depth        uint8
}

// ByteListType builds a byte-list descriptor. A zero limit is allowed.
func ByteListType(limit uint64) (*ByteListTypeDef, error) {
	td := &ByteListTypeDef{
		limit:        limit,
		contentDepth: tree.CoverDepth((limit + 31) / 32),
	}
	td.depth = td.contentDepth + 1
	return td, nil
}

// Limit returns the declared byte limit.
func (td *ByteListTypeDef) Limit() uint64 { return td.limit }

func (td *ByteListTypeDef) Name() string {
	return fmt.Sprintf("ByteList[%d]", td.limit)
}

func (td *ByteListTypeDef) DefaultNode() tree.Node {
	return tree.NewPairNode(tree.ZeroNode(td.contentDepth), tree.ZeroNode(0))
}

func (td *ByteListTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *ByteListTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &ByteListView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *ByteListTypeDef) IsFixedByteLength() bool { return false }
func (td *ByteListTypeDef) TypeByteLength() uint64  { return 0 }
func (td *ByteListTypeDef) MinByteLength() uint64   { return 0 }
func (td *ByteListTypeDef) MaxByteLength() uint64   { return td.limit }

func (td *ByteListTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	scope := dr.Scope()
	if scope > td.limit {
		return nil, ssz.DecodeErrf(0, "%d bytes exceed byte list limit %d", scope, td.limit)
	}
	var contents tree.Node
	if scope == 0 {
		contents = tree.ZeroNode(td.contentDepth)
	} else {
		nodes, err := readPackedChunks(dr, scope)
		if err != nil {
			return nil, err
		}
		var ferr error
		contents, ferr = tree.SubtreeFillToContents(nodes, td.contentDepth)
		if ferr != nil {
			return nil, ferr
		}
	}
	backing := tree.NewPairNode(contents, tree.LeafFromUint64(scope))
	return td.ViewFromBacking(backing, nil)
}

func (td *ByteListTypeDef) FromObj(raw any) (View, error) {
	data, err := coerceBytes(raw)
	if err != nil {
		return nil, err
	}
	return td.FromBytes(data)
}

// FromBytes constructs a byte-list view over a copy of the given bytes.
func (td *ByteListTypeDef) FromBytes(data []byte) (View, error) {
	if uint64(len(data)) > td.limit {
		return nil, fmt.Errorf("%w: %d bytes exceed limit %d", ErrListLimit, len(data), td.limit)
	}
	var contents tree.Node
	var err error
	if len(data) == 0 {
		contents = tree.ZeroNode(td.contentDepth)
	} else {
		chunks := tree.PackChunks(data)
		nodes := make([]tree.Node, len(chunks))
		for i, c := range chunks {
			nodes[i] = tree.NewLeafNode(c)
		}
		contents, err = tree.SubtreeFillToContents(nodes, td.contentDepth)
		if err != nil {
			return nil, err
		}
	}
	backing := tree.NewPairNode(contents, tree.LeafFromUint64(uint64(len(data))))
	return td.ViewFromBacking(backing, nil)
}

func (td *ByteListTypeDef) String() string { return td.Name() }

// ByteListView is a typed view over a byte-list backing.
type ByteListView struct {
	BackedView
	td *ByteListTypeDef
}

func (v *ByteListView) Type() TypeDef { return v.td }

// Length reads the current byte count from the length leaf.
func (v *ByteListView) Length() (uint64, error) {
	return readLengthLeaf(v.BackingNode, v.td.limit)
}

// Bytes reads the whole byte sequence out of the chunk leaves.
func (v *ByteListView) Bytes() ([]byte, error) {
	ll, err := v.Length()
	if err != nil {
		return nil, err
	}
	contents, err := v.BackingNode.Left()
	if err != nil {
		return nil, err
	}
	return chunkedBytes(contents, v.td.contentDepth, ll)
}

// Get returns byte i.
func (v *ByteListView) Get(i uint64) (byte, error) {
	ll, err := v.Length()
	if err != nil {
		return 0, err
	}
	if i >= ll {
		return 0, fmt.Errorf("%w: byte %d of %d", ErrOutOfRange, i, ll)
	}
	g, err := tree.ToGindex(i/32, v.td.depth)
	if err != nil {
		return 0, err
	}
	leaf, err := tree.Getter(v.BackingNode, g)
	if err != nil {
		return 0, err
	}
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return 0, err
	}
	return chunk[i%32], nil
}

// Set rebinds byte i.
func (v *ByteListView) Set(i uint64, b byte) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if i >= ll {
		return fmt.Errorf("%w: byte %d of %d", ErrOutOfRange, i, ll)
	}
	return setChunkedByte(&v.BackedView, v.td.depth, i, b)
}

// Append adds a byte at the end of the list.
func (v *ByteListView) Append(b byte) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if ll >= v.td.limit {
		return fmt.Errorf("%w: limit %d", ErrListLimit, v.td.limit)
	}
	g, err := tree.ToGindex(ll/32, v.td.depth)
	if err != nil {
		return err
	}
	var chunk tree.Root
	if ll%32 != 0 {
		leaf, gerr := tree.Getter(v.BackingNode, g)
		if gerr != nil {
			return gerr
		}
		if chunk, err = tree.LeafContent(leaf); err != nil {
			return err
		}
	}
	chunk[ll%32] = b
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

// Pop removes the last byte, zero-filling the vacated position.
func (v *ByteListView) Pop() error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	if ll == 0 {
		return fmt.Errorf("%w: pop on empty byte list", ErrOutOfRange)
	}
	i := ll - 1
	g, err := tree.ToGindex(i/32, v.td.depth)
	if err != nil {
		return err
	}
	var replacement tree.Node
	if i%32 == 0 {
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
		chunk[i%32] = 0
		replacement = tree.NewLeafNode(chunk)
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

func (v *ByteListView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

func (v *ByteListView) ValueByteLength() (uint64, error) {
	return v.Length()
}

func (v *ByteListView) Serialize(w *ssz.EncodingWriter) error {
	ll, err := v.Length()
	if err != nil {
		return err
	}
	contents, err := v.BackingNode.Left()
	if err != nil {
		return err
	}
	return serializePackedChunks(w, contents, v.td.contentDepth, ll)
}

// ToObj returns the bytes as hexutil.Bytes.
func (v *ByteListView) ToObj() (any, error) {
	data, err := v.Bytes()
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(data), nil
}

// chunkedBytes reads byteLen bytes from the chunk leaves of a content tree.
func chunkedBytes(node tree.Node, depth uint8, byteLen uint64) ([]byte, error) {
	out := make([]byte, 0, byteLen)
	remaining := byteLen
	chunkCount := (byteLen + 31) / 32
	for i := uint64(0); i < chunkCount; i++ {
		g, err := tree.ToGindex(i, depth)
		if err != nil {
			return nil, err
		}
		leaf, err := tree.Getter(node, g)
		if err != nil {
			return nil, err
		}
		chunk, err := tree.LeafContent(leaf)
		if err != nil {
			return nil, err
		}
		n := min(remaining, 32)
		out = append(out, chunk[:n]...)
		remaining -= n
	}
	return out, nil
}

// setChunkedByte patches byte i of the chunked content under the view's
// backing at the given tree depth and rebinds the chunk leaf.
func setChunkedByte(v *BackedView, depth uint8, i uint64, b byte) error {
	g, err := tree.ToGindex(i/32, depth)
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
	chunk[i%32] = b
	link, err := tree.Setter(v.BackingNode, g, false)
	if err != nil {
		return err
	}
	return v.SetBacking(link(tree.NewLeafNode(chunk)))
}
