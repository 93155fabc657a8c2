package view

import (
	"fmt"

	"github.com/eth2030/sszview/tree"
)

// StepKind identifies one navigation step of a typed path.
type StepKind uint8

const (
	// StepField addresses a container field by name.
	StepField StepKind = iota
	// StepIndex addresses a sequence element or union variant by position.
	StepIndex
	// StepLength addresses the length leaf of a list, byte-list or bitlist.
	StepLength
	// StepSelector addresses the selector leaf of a union.
	StepSelector
)

// Step is one element of a Path.
type Step struct {
	Kind  StepKind
	Name  string // StepField only
	Index uint64 // StepIndex only
}

func (s Step) String() string {
	switch s.Kind {
	case StepField:
		return s.Name
	case StepIndex:
		return fmt.Sprintf("%d", s.Index)
	case StepLength:
		return "__len__"
	case StepSelector:
		return "__selector__"
	default:
		return "?"
	}
}

// Path is a typed navigation path anchored at a type descriptor. Paths are
// built step by step with the same accessors the type exposes; each step is
// validated against the type, and a completed path resolves to a
// generalized index.
//
// Paths are immutable: every builder call returns a new path. A failed step
// poisons the path; the error surfaces when the path is resolved.
type Path struct {
	anchor TypeDef
	steps  []Step
	err    error
}

// NewPath starts a path at the given type.
func NewPath(t TypeDef) *Path {
	return &Path{anchor: t}
}

// append validates the step against the current tip type and extends the
// path.
func (p *Path) append(s Step) *Path {
	if p.err != nil {
		return p
	}
	tip, err := p.Type()
	if err != nil {
		return &Path{anchor: p.anchor, err: err}
	}
	if _, _, err := stepInfo(tip, s); err != nil {
		return &Path{anchor: p.anchor, err: err}
	}
	steps := make([]Step, len(p.steps)+1)
	copy(steps, p.steps)
	steps[len(p.steps)] = s
	return &Path{anchor: p.anchor, steps: steps}
}

// Field steps into a container field by name.
func (p *Path) Field(name string) *Path {
	return p.append(Step{Kind: StepField, Name: name})
}

// Index steps into a sequence element, a container field by position, or a
// union variant.
func (p *Path) Index(i uint64) *Path {
	return p.append(Step{Kind: StepIndex, Index: i})
}

// Length steps to the length leaf of a list, byte-list or bitlist.
func (p *Path) Length() *Path {
	return p.append(Step{Kind: StepLength})
}

// Selector steps to the selector leaf of a union.
func (p *Path) Selector() *Path {
	return p.append(Step{Kind: StepSelector})
}

// Anchor returns the type the path starts at.
func (p *Path) Anchor() TypeDef { return p.anchor }

// Steps returns the validated steps of the path.
func (p *Path) Steps() ([]Step, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.steps, nil
}

// Type resolves the type the completed path points at.
func (p *Path) Type() (TypeDef, error) {
	if p.err != nil {
		return nil, p.err
	}
	t := p.anchor
	for _, s := range p.steps {
		child, _, err := stepInfo(t, s)
		if err != nil {
			return nil, err
		}
		t = child
	}
	return t, nil
}

// Gindex resolves the path to a generalized index by folding the per-step
// local indices: g starts at 1 and every step shifts it by the step's
// subtree depth and adds the local offset.
func (p *Path) Gindex() (tree.Gindex, error) {
	if p.err != nil {
		return 0, p.err
	}
	t := p.anchor
	g := tree.RootGindex
	for _, s := range p.steps {
		child, local, err := stepInfo(t, s)
		if err != nil {
			return 0, err
		}
		g = concatGindex(g, local)
		t = child
	}
	return g, nil
}

// concatGindex appends a local gindex below g.
func concatGindex(g, local tree.Gindex) tree.Gindex {
	depth := local.Depth()
	return g<<depth | tree.Gindex(local.IndexAtDepth())
}

// stepInfo resolves one step against a type: the child type and the local
// generalized index of the child relative to the type's root. For packed
// basic sequences the local index addresses the element's chunk.
func stepInfo(t TypeDef, s Step) (TypeDef, tree.Gindex, error) {
	switch td := t.(type) {
	case *ContainerTypeDef:
		var i uint64
		switch s.Kind {
		case StepField:
			idx, ok := td.FieldIndex(s.Name)
			if !ok {
				return nil, 0, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, td.Name(), s.Name)
			}
			i = idx
		case StepIndex:
			if s.Index >= td.FieldCount() {
				return nil, 0, fmt.Errorf("%w: field %d of %d", ErrOutOfRange, s.Index, td.FieldCount())
			}
			i = s.Index
		default:
			return nil, 0, fmt.Errorf("%w: container has no %s step", tree.ErrNavigation, s)
		}
		return td.Field(i).Type, td.FieldGindex(i), nil
	case *VectorTypeDef:
		if s.Kind != StepIndex {
			return nil, 0, fmt.Errorf("%w: vector has no %s step", tree.ErrNavigation, s)
		}
		if s.Index >= td.length {
			return nil, 0, fmt.Errorf("%w: element %d of %d", ErrOutOfRange, s.Index, td.length)
		}
		return td.elem, td.elemGindex(s.Index), nil
	case *ListTypeDef:
		switch s.Kind {
		case StepIndex:
			if s.Index >= td.limit {
				return nil, 0, fmt.Errorf("%w: element %d past limit %d", ErrOutOfRange, s.Index, td.limit)
			}
			return td.elem, td.elemGindex(s.Index), nil
		case StepLength:
			return Uint64Type, tree.RightGindex, nil
		default:
			return nil, 0, fmt.Errorf("%w: list has no %s step", tree.ErrNavigation, s)
		}
	case *ByteVectorTypeDef:
		if s.Kind != StepIndex {
			return nil, 0, fmt.Errorf("%w: byte vector has no %s step", tree.ErrNavigation, s)
		}
		if s.Index >= td.length {
			return nil, 0, fmt.Errorf("%w: byte %d of %d", ErrOutOfRange, s.Index, td.length)
		}
		g, err := tree.ToGindex(s.Index/32, td.depth)
		if err != nil {
			return nil, 0, err
		}
		return Uint8Type, g, nil
	case *ByteListTypeDef:
		switch s.Kind {
		case StepIndex:
			if s.Index >= td.limit {
				return nil, 0, fmt.Errorf("%w: byte %d past limit %d", ErrOutOfRange, s.Index, td.limit)
			}
			g, err := tree.ToGindex(s.Index/32, td.depth)
			if err != nil {
				return nil, 0, err
			}
			return Uint8Type, g, nil
		case StepLength:
			return Uint64Type, tree.RightGindex, nil
		default:
			return nil, 0, fmt.Errorf("%w: byte list has no %s step", tree.ErrNavigation, s)
		}
	case *BitVectorTypeDef:
		if s.Kind != StepIndex {
			return nil, 0, fmt.Errorf("%w: bitvector has no %s step", tree.ErrNavigation, s)
		}
		if s.Index >= td.length {
			return nil, 0, fmt.Errorf("%w: bit %d of %d", ErrOutOfRange, s.Index, td.length)
		}
		g, err := tree.ToGindex(s.Index/256, td.depth)
		if err != nil {
			return nil, 0, err
		}
		return BoolType, g, nil
	case *BitListTypeDef:
		switch s.Kind {
		case StepIndex:
			if s.Index >= td.limit {
				return nil, 0, fmt.Errorf("%w: bit %d past limit %d", ErrOutOfRange, s.Index, td.limit)
			}
			g, err := tree.ToGindex(s.Index/256, td.depth)
			if err != nil {
				return nil, 0, err
			}
			return BoolType, g, nil
		case StepLength:
			return Uint64Type, tree.RightGindex, nil
		default:
			return nil, 0, fmt.Errorf("%w: bitlist has no %s step", tree.ErrNavigation, s)
		}
	case *UnionTypeDef:
		switch s.Kind {
		case StepIndex:
			if s.Index == 0 || s.Index >= td.OptionCount() {
				return nil, 0, fmt.Errorf("%w: union variant %d of %d", ErrTypeMismatch, s.Index, td.OptionCount())
			}
			return td.options[s.Index], tree.LeftGindex, nil
		case StepSelector:
			return Uint256Type, tree.RightGindex, nil
		default:
			return nil, 0, fmt.Errorf("%w: union has no %s step", tree.ErrNavigation, s)
		}
	default:
		return nil, 0, fmt.Errorf("%w: cannot step into %s", tree.ErrNavigation, t.Name())
	}
}

// PathFromGindex converts a generalized index back into a path, which is
// unique given the anchor type: at each composite the index's leading bits
// select the child position. Two positions cannot be named statically and
// are rejected: a union's value slot (the variant is dynamic) and an index
// that stops in the middle of a composite's index bits. For packed basic
// sequences the returned step names the first element of the addressed
// chunk.
func PathFromGindex(anchor TypeDef, g tree.Gindex) (*Path, error) {
	if !g.Valid() {
		return nil, tree.ErrNavigation
	}
	p := NewPath(anchor)
	t := anchor
	for g != tree.RootGindex {
		var s Step
		var sub tree.Gindex
		var err error
		s, sub, err = reverseStep(t, g)
		if err != nil {
			return nil, err
		}
		p = p.append(s)
		t, _, err = stepInfo(t, s)
		if err != nil {
			return nil, err
		}
		g = sub
	}
	if p.err != nil {
		return nil, p.err
	}
	return p, nil
}

// reverseStep peels one navigation step off the front of g for the given
// type, returning the step and the remaining gindex re-anchored at the
// child.
func reverseStep(t TypeDef, g tree.Gindex) (Step, tree.Gindex, error) {
	takeIndex := func(depth uint8) (uint64, tree.Gindex, error) {
		gDepth := g.Depth()
		if gDepth < depth {
			return 0, 0, fmt.Errorf("%w: gindex %d stops inside the index bits of %s", tree.ErrNavigation, g, t.Name())
		}
		rest := gDepth - depth
		index := uint64(g>>rest) ^ (uint64(1) << depth)
		sub := g&(tree.Gindex(1)<<rest-1) | tree.Gindex(1)<<rest
		return index, sub, nil
	}
	switch td := t.(type) {
	case *ContainerTypeDef:
		i, sub, err := takeIndex(td.depth)
		if err != nil {
			return Step{}, 0, err
		}
		if i >= td.FieldCount() {
			return Step{}, 0, fmt.Errorf("%w: field %d of %d", ErrOutOfRange, i, td.FieldCount())
		}
		return Step{Kind: StepField, Name: td.Field(i).Name}, sub, nil
	case *VectorTypeDef:
		i, sub, err := takeIndex(td.depth)
		if err != nil {
			return Step{}, 0, err
		}
		if td.basic != nil {
			i *= td.elemsPerChunk
		}
		if i >= td.length {
			return Step{}, 0, fmt.Errorf("%w: element %d of %d", ErrOutOfRange, i, td.length)
		}
		return Step{Kind: StepIndex, Index: i}, sub, nil
	case *ListTypeDef:
		if g == tree.RightGindex {
			return Step{Kind: StepLength}, tree.RootGindex, nil
		}
		i, sub, err := takeIndex(td.depth)
		if err != nil {
			return Step{}, 0, err
		}
		if td.basic != nil {
			i *= td.elemsPerChunk
		}
		if i >= td.limit {
			return Step{}, 0, fmt.Errorf("%w: element %d past limit %d", ErrOutOfRange, i, td.limit)
		}
		return Step{Kind: StepIndex, Index: i}, sub, nil
	case *ByteVectorTypeDef:
		i, sub, err := takeIndex(td.depth)
		if err != nil {
			return Step{}, 0, err
		}
		i *= 32
		if i >= td.length {
			return Step{}, 0, fmt.Errorf("%w: byte %d of %d", ErrOutOfRange, i, td.length)
		}
		return Step{Kind: StepIndex, Index: i}, sub, nil
	case *ByteListTypeDef:
		if g == tree.RightGindex {
			return Step{Kind: StepLength}, tree.RootGindex, nil
		}
		i, sub, err := takeIndex(td.depth)
		if err != nil {
			return Step{}, 0, err
		}
		i *= 32
		if i >= td.limit {
			return Step{}, 0, fmt.Errorf("%w: byte %d past limit %d", ErrOutOfRange, i, td.limit)
		}
		return Step{Kind: StepIndex, Index: i}, sub, nil
	case *BitVectorTypeDef:
		i, sub, err := takeIndex(td.depth)
		if err != nil {
			return Step{}, 0, err
		}
		i *= 256
		if i >= td.length {
			return Step{}, 0, fmt.Errorf("%w: bit %d of %d", ErrOutOfRange, i, td.length)
		}
		return Step{Kind: StepIndex, Index: i}, sub, nil
	case *BitListTypeDef:
		if g == tree.RightGindex {
			return Step{Kind: StepLength}, tree.RootGindex, nil
		}
		i, sub, err := takeIndex(td.depth)
		if err != nil {
			return Step{}, 0, err
		}
		i *= 256
		if i >= td.limit {
			return Step{}, 0, fmt.Errorf("%w: bit %d past limit %d", ErrOutOfRange, i, td.limit)
		}
		return Step{Kind: StepIndex, Index: i}, sub, nil
	case *UnionTypeDef:
		if g == tree.RightGindex {
			return Step{Kind: StepSelector}, tree.RootGindex, nil
		}
		return Step{}, 0, fmt.Errorf("%w: union value slot has no static type", tree.ErrNavigation)
	default:
		return Step{}, 0, fmt.Errorf("%w: cannot step into %s", tree.ErrNavigation, t.Name())
	}
}

// ApplyPath resolves a path against a backing node, partial-backing-aware:
// entering a summarized or unresolved branch fails with
// tree.ErrPartialBacking.
func ApplyPath(n tree.Node, p *Path) (tree.Node, error) {
	g, err := p.Gindex()
	if err != nil {
		return nil, err
	}
	return tree.Getter(n, g)
}

// Navigate resolves a path against a view, returning a sub-view hooked to
// write back through the root view. Packed basic elements come back as
// detached basic views of the addressed slot.
func Navigate(v View, p *Path) (View, error) {
	if !sameType(v.Type(), p.anchor) {
		return nil, fmt.Errorf("%w: path anchored at %s, view is %s", ErrTypeMismatch, p.anchor.Name(), v.Type().Name())
	}
	steps, err := p.Steps()
	if err != nil {
		return nil, err
	}
	t := p.anchor
	g := tree.RootGindex
	var packed BasicTypeDef
	var slot uint64
	var bitSlot bool
	for i, s := range steps {
		child, local, serr := stepInfo(t, s)
		if serr != nil {
			return nil, serr
		}
		g = concatGindex(g, local)
		if i == len(steps)-1 && s.Kind == StepIndex {
			if b, ok := child.(BasicTypeDef); ok {
				packed = b
				slot, bitSlot = packedSlot(t, s.Index)
			}
		}
		t = child
	}
	node, err := tree.Getter(v.Backing(), g)
	if err != nil {
		return nil, err
	}
	if packed != nil {
		if bitSlot {
			chunk, cerr := tree.LeafContent(node)
			if cerr != nil {
				return nil, cerr
			}
			return BoolView(chunkBit(chunk, slot)), nil
		}
		return packed.SubViewFromBacking(node, slot)
	}
	hook := func(b tree.Node) error {
		link, lerr := tree.Setter(v.Backing(), g, false)
		if lerr != nil {
			return lerr
		}
		return v.SetBacking(link(b))
	}
	return t.ViewFromBacking(node, hook)
}

// packedSlot returns the within-chunk slot of element i of a packed
// sequence, and whether the slot addresses a single bit rather than a byte
// span.
func packedSlot(parent TypeDef, i uint64) (uint64, bool) {
	switch td := parent.(type) {
	case *VectorTypeDef:
		if td.basic != nil {
			return i % td.elemsPerChunk, false
		}
	case *ListTypeDef:
		if td.basic != nil {
			return i % td.elemsPerChunk, false
		}
	case *ByteVectorTypeDef, *ByteListTypeDef:
		return i % 32, false
	case *BitVectorTypeDef, *BitListTypeDef:
		return i % 256, true
	}
	return 0, false
}
