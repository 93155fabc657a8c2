package view

import (
	"fmt"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// FieldDef is one named field of a container type.
type FieldDef struct {
	Name string
	Type TypeDef
}

// ContainerTypeDef describes a container: an ordered set of named, typed
// fields laid out as the leaves of a tree of depth ceil(log2(N)). The root
// is the merkleization of the field roots with limit N; no length is mixed
// in.
type ContainerTypeDef struct {
	name      string
	fields    []FieldDef
	indices   map[string]uint64
	depth     uint8
	fixedSize uint64 // byte size of the fixed prefix, offsets counted as 4
	isFixed   bool
	minSize   uint64
	maxSize   uint64
}

// ContainerType builds a container descriptor from an ordered field list.
// Field names must be unique and at least one field is required.
func ContainerType(name string, fields []FieldDef) (*ContainerTypeDef, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("view: container %s has no fields", name)
	}
	td := &ContainerTypeDef{
		name:    name,
		fields:  make([]FieldDef, len(fields)),
		indices: make(map[string]uint64, len(fields)),
		depth:   tree.CoverDepth(uint64(len(fields))),
		isFixed: true,
	}
	copy(td.fields, fields)
	for i, f := range td.fields {
		if f.Type == nil {
			return nil, fmt.Errorf("view: container %s field %q has no type", name, f.Name)
		}
		if _, ok := td.indices[f.Name]; ok {
			return nil, fmt.Errorf("view: container %s re-declares field %q", name, f.Name)
		}
		td.indices[f.Name] = uint64(i)
		if f.Type.IsFixedByteLength() {
			n := f.Type.TypeByteLength()
			td.fixedSize += n
			td.minSize += n
			td.maxSize += n
		} else {
			td.isFixed = false
			td.fixedSize += ssz.BytesPerLengthOffset
			td.minSize += ssz.BytesPerLengthOffset + f.Type.MinByteLength()
			td.maxSize += ssz.BytesPerLengthOffset + f.Type.MaxByteLength()
		}
	}
	return td, nil
}

// Extend derives a new container that appends extra fields to the
// receiver's, single-level inheritance style. Re-declaring an inherited
// field name is rejected.
func (td *ContainerTypeDef) Extend(name string, extra []FieldDef) (*ContainerTypeDef, error) {
	combined := make([]FieldDef, 0, len(td.fields)+len(extra))
	combined = append(combined, td.fields...)
	combined = append(combined, extra...)
	return ContainerType(name, combined)
}

// FieldCount returns the number of fields.
func (td *ContainerTypeDef) FieldCount() uint64 { return uint64(len(td.fields)) }

// Field returns the i'th field definition.
func (td *ContainerTypeDef) Field(i uint64) FieldDef { return td.fields[i] }

// FieldIndex returns the index of the named field.
func (td *ContainerTypeDef) FieldIndex(name string) (uint64, bool) {
	i, ok := td.indices[name]
	return i, ok
}

// FieldGindex returns the generalized index of field i relative to the
// container root.
func (td *ContainerTypeDef) FieldGindex(i uint64) tree.Gindex {
	g, _ := tree.ToGindex(i, td.depth)
	return g
}

func (td *ContainerTypeDef) Name() string { return td.name }

func (td *ContainerTypeDef) DefaultNode() tree.Node {
	nodes := make([]tree.Node, len(td.fields))
	for i, f := range td.fields {
		nodes[i] = f.Type.DefaultNode()
	}
	node, _ := tree.SubtreeFillToContents(nodes, td.depth)
	return node
}

func (td *ContainerTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *ContainerTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &ContainerView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *ContainerTypeDef) IsFixedByteLength() bool { return td.isFixed }

func (td *ContainerTypeDef) TypeByteLength() uint64 {
	if td.isFixed {
		return td.fixedSize
	}
	return 0
}

func (td *ContainerTypeDef) MinByteLength() uint64 { return td.minSize }
func (td *ContainerTypeDef) MaxByteLength() uint64 { return td.maxSize }

func (td *ContainerTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	scope := dr.Scope()
	if td.isFixed {
		if scope != td.fixedSize {
			return nil, ssz.ErrLengthMismatch
		}
	} else if scope < td.fixedSize {
		return nil, ssz.DecodeErrf(0, "scope %d below fixed prefix size %d", scope, td.fixedSize)
	}
	nodes := make([]tree.Node, len(td.fields))
	type pending struct {
		field  uint64
		offset uint64
		at     uint64 // stream position of the offset bytes
	}
	var offsets []pending
	for i, f := range td.fields {
		if f.Type.IsFixedByteLength() {
			sub, err := dr.Sub(f.Type.TypeByteLength())
			if err != nil {
				return nil, err
			}
			child, err := f.Type.Deserialize(sub)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			nodes[i] = child.Backing()
		} else {
			at := dr.Index()
			off, err := dr.ReadOffset()
			if err != nil {
				return nil, err
			}
			offsets = append(offsets, pending{field: uint64(i), offset: uint64(off), at: at})
		}
	}
	// Validate the offset table: the first offset lands exactly after the
	// fixed prefix, offsets never decrease, and all stay within scope.
	for k, p := range offsets {
		if k == 0 && p.offset != td.fixedSize {
			return nil, ssz.DecodeErrf(p.at, "first offset %d does not match fixed prefix size %d", p.offset, td.fixedSize)
		}
		if k > 0 && p.offset < offsets[k-1].offset {
			return nil, ssz.DecodeErrf(p.at, "offset %d decreases below previous %d", p.offset, offsets[k-1].offset)
		}
		if p.offset > scope {
			return nil, ssz.DecodeErrf(p.at, "offset %d exceeds scope %d", p.offset, scope)
		}
	}
	for k, p := range offsets {
		end := scope
		if k+1 < len(offsets) {
			end = offsets[k+1].offset
		}
		f := td.fields[p.field]
		sub, err := dr.Sub(end - p.offset)
		if err != nil {
			return nil, err
		}
		child, err := f.Type.Deserialize(sub)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		nodes[p.field] = child.Backing()
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *ContainerTypeDef) FromObj(raw any) (View, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: container %s expects a field map, got %T", ErrTypeMismatch, td.name, raw)
	}
	for key := range m {
		if _, ok := td.indices[key]; !ok {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, td.name, key)
		}
	}
	nodes := make([]tree.Node, len(td.fields))
	for i, f := range td.fields {
		rawField, ok := m[f.Name]
		if !ok {
			nodes[i] = f.Type.DefaultNode()
			continue
		}
		child, err := f.Type.FromObj(rawField)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		nodes[i] = child.Backing()
	}
	backing, err := tree.SubtreeFillToContents(nodes, td.depth)
	if err != nil {
		return nil, err
	}
	return td.ViewFromBacking(backing, nil)
}

func (td *ContainerTypeDef) String() string { return td.name }

// ContainerView is a typed view over a container backing.
type ContainerView struct {
	BackedView
	td *ContainerTypeDef
}

func (v *ContainerView) Type() TypeDef { return v.td }

// Get returns a view of field i, hooked to write back through this
// container.
func (v *ContainerView) Get(i uint64) (View, error) {
	if i >= v.td.FieldCount() {
		return nil, fmt.Errorf("%w: field %d of %d", ErrOutOfRange, i, v.td.FieldCount())
	}
	g := v.td.FieldGindex(i)
	node, err := tree.Getter(v.BackingNode, g)
	if err != nil {
		return nil, err
	}
	return v.td.fields[i].Type.ViewFromBacking(node, v.childHook(g))
}

// Set rebinds field i to the given value.
func (v *ContainerView) Set(i uint64, w View) error {
	if i >= v.td.FieldCount() {
		return fmt.Errorf("%w: field %d of %d", ErrOutOfRange, i, v.td.FieldCount())
	}
	f := v.td.fields[i]
	if !sameType(f.Type, w.Type()) {
		return fmt.Errorf("%w: field %q is %s, got %s", ErrTypeMismatch, f.Name, f.Type.Name(), w.Type().Name())
	}
	g := v.td.FieldGindex(i)
	link, err := tree.Setter(v.BackingNode, g, false)
	if err != nil {
		return err
	}
	return v.SetBacking(link(w.Backing()))
}

// Field returns a view of the named field.
func (v *ContainerView) Field(name string) (View, error) {
	i, ok := v.td.FieldIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, v.td.name, name)
	}
	return v.Get(i)
}

// SetField rebinds the named field to the given value.
func (v *ContainerView) SetField(name string, w View) error {
	i, ok := v.td.FieldIndex(name)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, v.td.name, name)
	}
	return v.Set(i, w)
}

func (v *ContainerView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

func (v *ContainerView) ValueByteLength() (uint64, error) {
	if v.td.isFixed {
		return v.td.fixedSize, nil
	}
	total := v.td.fixedSize
	for i, f := range v.td.fields {
		if f.Type.IsFixedByteLength() {
			continue
		}
		child, err := v.Get(uint64(i))
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

func (v *ContainerView) Serialize(w *ssz.EncodingWriter) error {
	count := v.td.FieldCount()
	children := make([]View, count)
	for i := uint64(0); i < count; i++ {
		child, err := v.Get(i)
		if err != nil {
			return err
		}
		children[i] = child
	}
	// First pass: fixed fields inline, variable fields as offsets.
	running := v.td.fixedSize
	for i, f := range v.td.fields {
		if f.Type.IsFixedByteLength() {
			if err := children[i].Serialize(w); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteOffset(running); err != nil {
			return err
		}
		n, err := children[i].ValueByteLength()
		if err != nil {
			return err
		}
		running += n
	}
	// Second pass: variable payloads in field order.
	for i, f := range v.td.fields {
		if f.Type.IsFixedByteLength() {
			continue
		}
		if err := children[i].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (v *ContainerView) ToObj() (any, error) {
	out := make(map[string]any, len(v.td.fields))
	for i, f := range v.td.fields {
		child, err := v.Get(uint64(i))
		if err != nil {
			return nil, err
		}
		obj, err := child.ToObj()
		if err != nil {
			return nil, err
		}
		out[f.Name] = obj
	}
	return out, nil
}
