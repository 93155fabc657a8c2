package view

import (
	"encoding/binary"
	"fmt"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// --- boolean ---

// BoolMeta is the type descriptor of the SSZ boolean.
type BoolMeta struct{}

// BoolType is the boolean type descriptor.
var BoolType BoolMeta

func (BoolMeta) Name() string               { return "boolean" }
func (BoolMeta) DefaultNode() tree.Node     { return tree.ZeroNode(0) }
func (BoolMeta) Default(BackingHook) View   { return BoolView(false) }
func (BoolMeta) IsFixedByteLength() bool    { return true }
func (BoolMeta) TypeByteLength() uint64     { return 1 }
func (BoolMeta) MinByteLength() uint64      { return 1 }
func (BoolMeta) MaxByteLength() uint64      { return 1 }
func (BoolMeta) ByteLength() uint64         { return 1 }

func (BoolMeta) ViewFromBacking(node tree.Node, _ BackingHook) (View, error) {
	return BoolType.SubViewFromBacking(node, 0)
}

func (BoolMeta) SubViewFromBacking(leaf tree.Node, i uint64) (BasicView, error) {
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return nil, err
	}
	if i >= 32 {
		return nil, ErrOutOfRange
	}
	switch chunk[i] {
	case 0:
		return BoolView(false), nil
	case 1:
		return BoolView(true), nil
	default:
		return nil, ssz.ErrInvalidBool
	}
}

func (BoolMeta) Deserialize(dr *ssz.DecodingReader) (View, error) {
	if err := checkFixedScope(dr, 1); err != nil {
		return nil, err
	}
	b, err := dr.ReadByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		return BoolView(false), nil
	case 1:
		return BoolView(true), nil
	default:
		return nil, ssz.ErrInvalidBool
	}
}

func (BoolMeta) FromObj(raw any) (View, error) {
	b, err := coerceBool(raw)
	if err != nil {
		return nil, err
	}
	return BoolView(b), nil
}

// BoolView is an SSZ boolean value. Basic views are immutable and
// detached: they serialize, hash and patch packed chunks, but carry no
// rebindable backing of their own.
type BoolView bool

func (v BoolView) Type() TypeDef { return BoolType }

func (v BoolView) Backing() tree.Node {
	var chunk tree.Root
	if v {
		chunk[0] = 1
	}
	return tree.NewLeafNode(chunk)
}

func (v BoolView) SetBacking(tree.Node) error {
	return fmt.Errorf("%w: basic views have no rebindable backing", ErrTypeMismatch)
}

func (v BoolView) Copy() (View, error)                { return v, nil }
func (v BoolView) ValueByteLength() (uint64, error)   { return 1, nil }
func (v BoolView) HashTreeRoot() tree.Root            { return v.Backing().Root() }
func (v BoolView) ToObj() (any, error)                { return bool(v), nil }

func (v BoolView) Serialize(w *ssz.EncodingWriter) error {
	if v {
		return w.WriteByte(1)
	}
	return w.WriteByte(0)
}

func (v BoolView) BackingFromBase(base tree.Root, i uint64) *tree.LeafNode {
	if v {
		base[i] = 1
	} else {
		base[i] = 0
	}
	return tree.NewLeafNode(base)
}

// --- unsigned integers ---

// UintMeta is the type descriptor of a little-endian unsigned integer,
// identified by its byte size.
type UintMeta uint64

// Fixed-width unsigned integer type descriptors.
const (
	Uint8Type  UintMeta = 1
	Uint16Type UintMeta = 2
	Uint32Type UintMeta = 4
	Uint64Type UintMeta = 8
)

func (m UintMeta) Name() string {
	return fmt.Sprintf("uint%d", uint64(m)*8)
}

func (m UintMeta) DefaultNode() tree.Node   { return tree.ZeroNode(0) }
func (m UintMeta) IsFixedByteLength() bool  { return true }
func (m UintMeta) TypeByteLength() uint64   { return uint64(m) }
func (m UintMeta) MinByteLength() uint64    { return uint64(m) }
func (m UintMeta) MaxByteLength() uint64    { return uint64(m) }
func (m UintMeta) ByteLength() uint64       { return uint64(m) }

func (m UintMeta) Default(BackingHook) View {
	v, _ := m.fromUint64(0)
	return v
}

// fromUint64 wraps a value in the view of the meta's width.
func (m UintMeta) fromUint64(v uint64) (BasicView, error) {
	switch m {
	case Uint8Type:
		return Uint8View(v), nil
	case Uint16Type:
		return Uint16View(v), nil
	case Uint32Type:
		return Uint32View(v), nil
	case Uint64Type:
		return Uint64View(v), nil
	default:
		return nil, fmt.Errorf("%w: unsupported uint byte size %d", ErrTypeMismatch, uint64(m))
	}
}

func (m UintMeta) ViewFromBacking(node tree.Node, _ BackingHook) (View, error) {
	return m.SubViewFromBacking(node, 0)
}

func (m UintMeta) SubViewFromBacking(leaf tree.Node, i uint64) (BasicView, error) {
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return nil, err
	}
	size := uint64(m)
	if (i+1)*size > 32 {
		return nil, ErrOutOfRange
	}
	var v uint64
	for j := uint64(0); j < size; j++ {
		v |= uint64(chunk[i*size+j]) << (8 * j)
	}
	return m.fromUint64(v)
}

func (m UintMeta) Deserialize(dr *ssz.DecodingReader) (View, error) {
	if err := checkFixedScope(dr, uint64(m)); err != nil {
		return nil, err
	}
	switch m {
	case Uint8Type:
		b, err := dr.ReadByte()
		if err != nil {
			return nil, err
		}
		return Uint8View(b), nil
	case Uint16Type:
		v, err := dr.ReadUint16()
		if err != nil {
			return nil, err
		}
		return Uint16View(v), nil
	case Uint32Type:
		v, err := dr.ReadUint32()
		if err != nil {
			return nil, err
		}
		return Uint32View(v), nil
	case Uint64Type:
		v, err := dr.ReadUint64()
		if err != nil {
			return nil, err
		}
		return Uint64View(v), nil
	default:
		return nil, fmt.Errorf("%w: unsupported uint byte size %d", ErrTypeMismatch, uint64(m))
	}
}

func (m UintMeta) FromObj(raw any) (View, error) {
	v, err := coerceUint64(raw)
	if err != nil {
		return nil, err
	}
	if uint64(m) < 8 && v >= uint64(1)<<(uint64(m)*8) {
		return nil, fmt.Errorf("%w: value %d exceeds uint%d", ErrTypeMismatch, v, uint64(m)*8)
	}
	view, err := m.fromUint64(v)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// uintChunk returns the little-endian value zero-padded to a chunk.
func uintChunk(v uint64) tree.Root {
	var chunk tree.Root
	binary.LittleEndian.PutUint64(chunk[:8], v)
	return chunk
}

// patchUintChunk writes size little-endian bytes of v at packed slot i.
func patchUintChunk(base tree.Root, i, size, v uint64) *tree.LeafNode {
	for j := uint64(0); j < size; j++ {
		base[i*size+j] = byte(v >> (8 * j))
	}
	return tree.NewLeafNode(base)
}

// Uint8View is an SSZ uint8 value.
type Uint8View uint8

func (v Uint8View) Type() TypeDef                   { return Uint8Type }
func (v Uint8View) Backing() tree.Node              { return tree.NewLeafNode(uintChunk(uint64(v))) }
func (v Uint8View) SetBacking(tree.Node) error      { return errBasicRebind() }
func (v Uint8View) Copy() (View, error)             { return v, nil }
func (v Uint8View) ValueByteLength() (uint64, error) { return 1, nil }
func (v Uint8View) HashTreeRoot() tree.Root         { return uintChunk(uint64(v)) }
func (v Uint8View) ToObj() (any, error)             { return uint8(v), nil }

func (v Uint8View) Serialize(w *ssz.EncodingWriter) error { return w.WriteByte(byte(v)) }

func (v Uint8View) BackingFromBase(base tree.Root, i uint64) *tree.LeafNode {
	return patchUintChunk(base, i, 1, uint64(v))
}

// Uint16View is an SSZ uint16 value.
type Uint16View uint16

func (v Uint16View) Type() TypeDef                   { return Uint16Type }
func (v Uint16View) Backing() tree.Node              { return tree.NewLeafNode(uintChunk(uint64(v))) }
func (v Uint16View) SetBacking(tree.Node) error      { return errBasicRebind() }
func (v Uint16View) Copy() (View, error)             { return v, nil }
func (v Uint16View) ValueByteLength() (uint64, error) { return 2, nil }
func (v Uint16View) HashTreeRoot() tree.Root         { return uintChunk(uint64(v)) }
func (v Uint16View) ToObj() (any, error)             { return uint16(v), nil }

func (v Uint16View) Serialize(w *ssz.EncodingWriter) error { return w.WriteUint16(uint16(v)) }

func (v Uint16View) BackingFromBase(base tree.Root, i uint64) *tree.LeafNode {
	return patchUintChunk(base, i, 2, uint64(v))
}

// Uint32View is an SSZ uint32 value.
type Uint32View uint32

func (v Uint32View) Type() TypeDef                   { return Uint32Type }
func (v Uint32View) Backing() tree.Node              { return tree.NewLeafNode(uintChunk(uint64(v))) }
func (v Uint32View) SetBacking(tree.Node) error      { return errBasicRebind() }
func (v Uint32View) Copy() (View, error)             { return v, nil }
func (v Uint32View) ValueByteLength() (uint64, error) { return 4, nil }
func (v Uint32View) HashTreeRoot() tree.Root         { return uintChunk(uint64(v)) }
func (v Uint32View) ToObj() (any, error)             { return uint32(v), nil }

func (v Uint32View) Serialize(w *ssz.EncodingWriter) error { return w.WriteUint32(uint32(v)) }

func (v Uint32View) BackingFromBase(base tree.Root, i uint64) *tree.LeafNode {
	return patchUintChunk(base, i, 4, uint64(v))
}

// Uint64View is an SSZ uint64 value.
type Uint64View uint64

func (v Uint64View) Type() TypeDef                   { return Uint64Type }
func (v Uint64View) Backing() tree.Node              { return tree.NewLeafNode(uintChunk(uint64(v))) }
func (v Uint64View) SetBacking(tree.Node) error      { return errBasicRebind() }
func (v Uint64View) Copy() (View, error)             { return v, nil }
func (v Uint64View) ValueByteLength() (uint64, error) { return 8, nil }
func (v Uint64View) HashTreeRoot() tree.Root         { return uintChunk(uint64(v)) }
func (v Uint64View) ToObj() (any, error)             { return uint64(v), nil }

func (v Uint64View) Serialize(w *ssz.EncodingWriter) error { return w.WriteUint64(uint64(v)) }

func (v Uint64View) BackingFromBase(base tree.Root, i uint64) *tree.LeafNode {
	return patchUintChunk(base, i, 8, uint64(v))
}

func errBasicRebind() error {
	return fmt.Errorf("%w: basic views have no rebindable backing", ErrTypeMismatch)
}
