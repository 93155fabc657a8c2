// Package view implements the SSZ type layer: declarative type descriptors
// and typed mutable views over immutable Merkle tree backings.
//
// A view is a thin typed façade over a backing node. Mutation never changes
// a node in place: the view computes a new backing, invokes its hook so a
// parent view can rebind the change at the child's generalized index, and
// replaces its own backing pointer. Unchanged subtrees are shared between
// the old and new backing.
//
// Type descriptors are plain values (no reflection, no code generation)
// carrying the default backing, the serialization bounds, the chunk layout
// and the view factory for each SSZ type: basic integers and booleans,
// containers, vectors, lists, byte-vectors, byte-lists, bitvectors,
// bitlists and unions.
package view

import (
	"bytes"
	"errors"
	"io"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// Common errors.
var (
	// ErrOutOfRange is returned for element access past a value's length,
	// including pop on an empty list.
	ErrOutOfRange = errors.New("view: index out of range")
	// ErrListLimit is returned when an append would exceed a list's declared
	// limit.
	ErrListLimit = errors.New("view: list at capacity limit")
	// ErrUnknownField is returned by object conversion for a key that is not
	// in the container's field set.
	ErrUnknownField = errors.New("view: unknown field")
	// ErrTypeMismatch is returned when a setter receives a view of the wrong
	// type, or a union selector is out of range.
	ErrTypeMismatch = errors.New("view: type mismatch")
)

// BackingHook propagates a view's new backing upward. A composite parent
// installs a hook on each child view; the hook rebinds the parent's backing
// at the child's generalized index (carried by closure) and then triggers
// the parent's own hook in turn.
type BackingHook func(b tree.Node) error

// TypeDef describes an SSZ type: its default backing, serialization bounds
// and view factory. Descriptors are immutable values; composite descriptors
// are built declaratively (ContainerType, VectorType, ListType, ...).
type TypeDef interface {
	// Name returns the canonical type name, e.g. "uint64" or
	// "List[uint8, 32]". Two descriptors describe the same type iff their
	// names are equal.
	Name() string
	// DefaultNode returns the backing of the type's default value.
	DefaultNode() tree.Node
	// Default returns a view of the default value.
	Default(hook BackingHook) View
	// ViewFromBacking constructs a view over an existing backing.
	ViewFromBacking(node tree.Node, hook BackingHook) (View, error)
	// IsFixedByteLength reports whether every value of the type serializes
	// to the same byte length.
	IsFixedByteLength() bool
	// TypeByteLength returns the fixed serialized byte length, or 0 for
	// variable-size types.
	TypeByteLength() uint64
	// MinByteLength returns the smallest legal serialized byte length.
	MinByteLength() uint64
	// MaxByteLength returns the largest legal serialized byte length.
	MaxByteLength() uint64
	// Deserialize decodes a value from the reader's full scope, building
	// the backing bottom-up.
	Deserialize(dr *ssz.DecodingReader) (View, error)
	// FromObj constructs a value from a language-neutral representation.
	FromObj(raw any) (View, error)
}

// View is a typed value backed by a Merkle tree node.
type View interface {
	// Type returns the value's type descriptor.
	Type() TypeDef
	// Backing returns the root node backing the value.
	Backing() tree.Node
	// SetBacking rebinds the view to a new backing and propagates through
	// the hook, if any.
	SetBacking(b tree.Node) error
	// Copy returns an unhooked view of the same backing. Structural
	// sharing makes this O(1); subsequent mutations of either view do not
	// affect the other.
	Copy() (View, error)
	// ValueByteLength returns the exact serialized byte length without
	// serializing.
	ValueByteLength() (uint64, error)
	// Serialize writes the canonical SSZ encoding.
	Serialize(w *ssz.EncodingWriter) error
	// HashTreeRoot returns the 32-byte root of the value's backing.
	HashTreeRoot() tree.Root
	// ToObj returns the language-neutral representation of the value.
	ToObj() (any, error)
}

// BasicTypeDef is implemented by the basic types (boolean, uintN), which
// pack multiple values per 32-byte chunk.
type BasicTypeDef interface {
	TypeDef
	// ByteLength returns the packed byte size of one value.
	ByteLength() uint64
	// SubViewFromBacking decodes element i of a packed leaf chunk.
	SubViewFromBacking(leaf tree.Node, i uint64) (BasicView, error)
}

// BasicView is a basic value: an immutable, detached view. It cannot
// rebind a backing of its own; mutation of a packed element goes through
// the parent composite, which patches the element's slot in the leaf chunk
// with BackingFromBase and rebinds the leaf.
type BasicView interface {
	View
	// BackingFromBase returns a new leaf equal to base with this value
	// written at packed slot i.
	BackingFromBase(base tree.Root, i uint64) *tree.LeafNode
}

// BackedView is the embedded core of every composite view: the backing
// pointer and the optional upward hook.
type BackedView struct {
	Hook        BackingHook
	BackingNode tree.Node
}

// Backing returns the current backing node.
func (v *BackedView) Backing() tree.Node { return v.BackingNode }

// SetBacking replaces the backing and propagates the change upward through
// the hook. The backing pointer is updated before the hook runs, so the
// view observes the new state even if the hook fails.
func (v *BackedView) SetBacking(b tree.Node) error {
	v.BackingNode = b
	if v.Hook != nil {
		return v.Hook(b)
	}
	return nil
}

// HashTreeRoot returns the root of the backing.
func (v *BackedView) HashTreeRoot() tree.Root { return v.BackingNode.Root() }

// childHook returns the hook to install on a child view at the given
// generalized index: it rebinds this view's backing at that position and
// propagates through this view's own hook.
func (v *BackedView) childHook(g tree.Gindex) BackingHook {
	return func(b tree.Node) error {
		link, err := tree.Setter(v.BackingNode, g, false)
		if err != nil {
			return err
		}
		return v.SetBacking(link(b))
	}
}

// EncodeBytes serializes v into a fresh byte slice.
func EncodeBytes(v View) ([]byte, error) {
	var buf bytes.Buffer
	w := ssz.NewEncodingWriter(&buf)
	if err := v.Serialize(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBytes deserializes a value of type t from exactly the given bytes.
func DecodeBytes(t TypeDef, data []byte) (View, error) {
	dr := ssz.NewDecodingReader(bytes.NewReader(data), uint64(len(data)))
	v, err := t.Deserialize(dr)
	if err != nil {
		return nil, err
	}
	if dr.Index() != dr.Scope() {
		return nil, ssz.DecodeErrf(dr.Index(), "%d unconsumed bytes after value", dr.Scope()-dr.Index())
	}
	return v, nil
}

// Serialize writes v's canonical encoding to w and returns the byte count.
func Serialize(v View, w io.Writer) (uint64, error) {
	ew := ssz.NewEncodingWriter(w)
	if err := v.Serialize(ew); err != nil {
		return ew.Written(), err
	}
	return ew.Written(), nil
}

// Deserialize decodes a value of type t from exactly scope bytes of r.
func Deserialize(t TypeDef, r io.Reader, scope uint64) (View, error) {
	return t.Deserialize(ssz.NewDecodingReader(r, scope))
}

// sameType reports whether two descriptors describe the same SSZ type.
func sameType(a, b TypeDef) bool {
	return a.Name() == b.Name()
}

// checkFixedScope validates the reader scope of a fixed-size type.
func checkFixedScope(dr *ssz.DecodingReader, byteLen uint64) error {
	if dr.Scope() != byteLen {
		return ssz.ErrLengthMismatch
	}
	return nil
}
