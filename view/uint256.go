package view

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// --- uint128 ---

// Uint128Meta is the type descriptor of the 128-bit unsigned integer.
type Uint128Meta struct{}

// Uint128Type is the uint128 type descriptor.
var Uint128Type Uint128Meta

func (Uint128Meta) Name() string             { return "uint128" }
func (Uint128Meta) DefaultNode() tree.Node   { return tree.ZeroNode(0) }
func (Uint128Meta) Default(BackingHook) View { return Uint128View{} }
func (Uint128Meta) IsFixedByteLength() bool  { return true }
func (Uint128Meta) TypeByteLength() uint64   { return 16 }
func (Uint128Meta) MinByteLength() uint64    { return 16 }
func (Uint128Meta) MaxByteLength() uint64    { return 16 }
func (Uint128Meta) ByteLength() uint64       { return 16 }

func (Uint128Meta) ViewFromBacking(node tree.Node, _ BackingHook) (View, error) {
	return Uint128Type.SubViewFromBacking(node, 0)
}

func (Uint128Meta) SubViewFromBacking(leaf tree.Node, i uint64) (BasicView, error) {
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return nil, err
	}
	if i >= 2 {
		return nil, ErrOutOfRange
	}
	return Uint128View{
		Lo: binary.LittleEndian.Uint64(chunk[i*16 : i*16+8]),
		Hi: binary.LittleEndian.Uint64(chunk[i*16+8 : i*16+16]),
	}, nil
}

func (Uint128Meta) Deserialize(dr *ssz.DecodingReader) (View, error) {
	if err := checkFixedScope(dr, 16); err != nil {
		return nil, err
	}
	var b [16]byte
	if err := dr.Read(b[:]); err != nil {
		return nil, err
	}
	return Uint128View{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}, nil
}

func (Uint128Meta) FromObj(raw any) (View, error) {
	switch x := raw.(type) {
	case Uint128View:
		return x, nil
	default:
		v, err := coerceUint64(raw)
		if err != nil {
			return nil, err
		}
		return Uint128View{Lo: v}, nil
	}
}

// Uint128View is an SSZ uint128 value, held as little-endian 64-bit limbs.
type Uint128View struct {
	Lo, Hi uint64
}

func (v Uint128View) Type() TypeDef { return Uint128Type }

func (v Uint128View) Backing() tree.Node {
	var chunk tree.Root
	binary.LittleEndian.PutUint64(chunk[0:8], v.Lo)
	binary.LittleEndian.PutUint64(chunk[8:16], v.Hi)
	return tree.NewLeafNode(chunk)
}

func (v Uint128View) SetBacking(tree.Node) error       { return errBasicRebind() }
func (v Uint128View) Copy() (View, error)              { return v, nil }
func (v Uint128View) ValueByteLength() (uint64, error) { return 16, nil }
func (v Uint128View) HashTreeRoot() tree.Root          { return v.Backing().Root() }
func (v Uint128View) ToObj() (any, error)              { return v, nil }

func (v Uint128View) Serialize(w *ssz.EncodingWriter) error {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], v.Lo)
	binary.LittleEndian.PutUint64(b[8:16], v.Hi)
	return w.Write(b[:])
}

func (v Uint128View) BackingFromBase(base tree.Root, i uint64) *tree.LeafNode {
	binary.LittleEndian.PutUint64(base[i*16:i*16+8], v.Lo)
	binary.LittleEndian.PutUint64(base[i*16+8:i*16+16], v.Hi)
	return tree.NewLeafNode(base)
}

// --- uint256 ---

// Uint256Meta is the type descriptor of the 256-bit unsigned integer.
type Uint256Meta struct{}

// Uint256Type is the uint256 type descriptor.
var Uint256Type Uint256Meta

func (Uint256Meta) Name() string             { return "uint256" }
func (Uint256Meta) DefaultNode() tree.Node   { return tree.ZeroNode(0) }
func (Uint256Meta) Default(BackingHook) View { return Uint256View{} }
func (Uint256Meta) IsFixedByteLength() bool  { return true }
func (Uint256Meta) TypeByteLength() uint64   { return 32 }
func (Uint256Meta) MinByteLength() uint64    { return 32 }
func (Uint256Meta) MaxByteLength() uint64    { return 32 }
func (Uint256Meta) ByteLength() uint64       { return 32 }

func (Uint256Meta) ViewFromBacking(node tree.Node, _ BackingHook) (View, error) {
	return Uint256Type.SubViewFromBacking(node, 0)
}

func (Uint256Meta) SubViewFromBacking(leaf tree.Node, i uint64) (BasicView, error) {
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return nil, err
	}
	if i != 0 {
		return nil, ErrOutOfRange
	}
	var v Uint256View
	for limb := 0; limb < 4; limb++ {
		v.Int[limb] = binary.LittleEndian.Uint64(chunk[limb*8 : limb*8+8])
	}
	return v, nil
}

func (Uint256Meta) Deserialize(dr *ssz.DecodingReader) (View, error) {
	if err := checkFixedScope(dr, 32); err != nil {
		return nil, err
	}
	var b [32]byte
	if err := dr.Read(b[:]); err != nil {
		return nil, err
	}
	var v Uint256View
	for limb := 0; limb < 4; limb++ {
		v.Int[limb] = binary.LittleEndian.Uint64(b[limb*8 : limb*8+8])
	}
	return v, nil
}

func (Uint256Meta) FromObj(raw any) (View, error) {
	switch x := raw.(type) {
	case Uint256View:
		return x, nil
	case *uint256.Int:
		return Uint256View{Int: *x}, nil
	case uint256.Int:
		return Uint256View{Int: x}, nil
	case string:
		var z *uint256.Int
		var err error
		if strings.HasPrefix(x, "0x") || strings.HasPrefix(x, "0X") {
			z, err = uint256.FromHex(x)
		} else {
			z, err = uint256.FromDecimal(x)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return Uint256View{Int: *z}, nil
	default:
		v, err := coerceUint64(raw)
		if err != nil {
			return nil, err
		}
		var z uint256.Int
		z.SetUint64(v)
		return Uint256View{Int: z}, nil
	}
}

// Uint256View is an SSZ uint256 value, stored as a uint256.Int (four
// little-endian 64-bit limbs, matching the SSZ byte order directly).
type Uint256View struct {
	Int uint256.Int
}

func (v Uint256View) Type() TypeDef { return Uint256Type }

// chunk returns the 32-byte little-endian encoding.
func (v Uint256View) chunk() tree.Root {
	var chunk tree.Root
	for limb := 0; limb < 4; limb++ {
		binary.LittleEndian.PutUint64(chunk[limb*8:limb*8+8], v.Int[limb])
	}
	return chunk
}

func (v Uint256View) Backing() tree.Node             { return tree.NewLeafNode(v.chunk()) }
func (v Uint256View) SetBacking(tree.Node) error     { return errBasicRebind() }
func (v Uint256View) Copy() (View, error)            { return v, nil }
func (v Uint256View) ValueByteLength() (uint64, error) { return 32, nil }
func (v Uint256View) HashTreeRoot() tree.Root        { return v.chunk() }

// ToObj returns the value as a *uint256.Int.
func (v Uint256View) ToObj() (any, error) {
	z := v.Int
	return &z, nil
}

func (v Uint256View) Serialize(w *ssz.EncodingWriter) error {
	chunk := v.chunk()
	return w.Write(chunk[:])
}

func (v Uint256View) BackingFromBase(base tree.Root, i uint64) *tree.LeafNode {
	_ = i
	return tree.NewLeafNode(v.chunk())
}
