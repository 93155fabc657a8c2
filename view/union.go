package view

import (
	"fmt"
	"strings"

	"github.com/eth2030/sszview/ssz"
	"github.com/eth2030/sszview/tree"
)

// MaxUnionOptions caps the number of union variants per the SSZ spec.
const MaxUnionOptions = 128

// UnionTypeDef describes Union[None, T1, ...]: a selector in [0, K) and an
// optional value of the selected variant. The backing is a pair whose left
// child is the value backing (the zero chunk for None) and whose right
// child is a leaf holding u256_le(selector); the pair root therefore
// equals mix_in_selector(value_root, selector) by construction. On the
// wire the selector is a single byte followed by the variant's encoding.
type UnionTypeDef struct {
	options []TypeDef // options[0] is nil: the None variant
	name    string
	minSize uint64
	maxSize uint64
}

// UnionType builds a union descriptor. At least two options are required,
// option 0 must be nil (the None variant) and every other option must be a
// real type.
func UnionType(options []TypeDef) (*UnionTypeDef, error) {
	if len(options) < 2 {
		return nil, fmt.Errorf("view: union needs at least 2 options, got %d", len(options))
	}
	if len(options) > MaxUnionOptions {
		return nil, fmt.Errorf("view: union has %d options, maximum is %d", len(options), MaxUnionOptions)
	}
	if options[0] != nil {
		return nil, fmt.Errorf("view: union option 0 must be the None variant")
	}
	names := make([]string, len(options))
	names[0] = "None"
	maxValue := uint64(0)
	for i, opt := range options[1:] {
		if opt == nil {
			return nil, fmt.Errorf("view: union option %d is nil, only option 0 may be None", i+1)
		}
		names[i+1] = opt.Name()
		if opt.MaxByteLength() > maxValue {
			maxValue = opt.MaxByteLength()
		}
	}
	td := &UnionTypeDef{
		options: append([]TypeDef(nil), options...),
		name:    fmt.Sprintf("Union[%s]", strings.Join(names, ", ")),
		// The None variant has no payload, so 1 byte is the floor.
		minSize: 1,
		maxSize: 1 + maxValue,
	}
	return td, nil
}

// OptionCount returns the number of variants, the None variant included.
func (td *UnionTypeDef) OptionCount() uint64 { return uint64(len(td.options)) }

// Option returns the type of variant i, nil for the None variant.
func (td *UnionTypeDef) Option(i uint64) TypeDef { return td.options[i] }

func (td *UnionTypeDef) Name() string { return td.name }

func (td *UnionTypeDef) DefaultNode() tree.Node {
	return tree.NewPairNode(tree.ZeroNode(0), tree.ZeroNode(0))
}

func (td *UnionTypeDef) Default(hook BackingHook) View {
	v, _ := td.ViewFromBacking(td.DefaultNode(), hook)
	return v
}

func (td *UnionTypeDef) ViewFromBacking(node tree.Node, hook BackingHook) (View, error) {
	return &UnionView{
		BackedView: BackedView{Hook: hook, BackingNode: node},
		td:         td,
	}, nil
}

func (td *UnionTypeDef) IsFixedByteLength() bool { return false }
func (td *UnionTypeDef) TypeByteLength() uint64  { return 0 }
func (td *UnionTypeDef) MinByteLength() uint64   { return td.minSize }
func (td *UnionTypeDef) MaxByteLength() uint64   { return td.maxSize }

func (td *UnionTypeDef) Deserialize(dr *ssz.DecodingReader) (View, error) {
	scope := dr.Scope()
	if scope < 1 {
		return nil, ssz.DecodeErrf(0, "union needs at least the selector byte")
	}
	selector, err := dr.ReadByte()
	if err != nil {
		return nil, err
	}
	if uint64(selector) >= td.OptionCount() {
		return nil, ssz.DecodeErrf(0, "union selector %d out of range %d", selector, td.OptionCount())
	}
	if selector == 0 {
		if scope != 1 {
			return nil, ssz.DecodeErrf(1, "None variant carries %d payload bytes", scope-1)
		}
		return td.ViewFromBacking(td.DefaultNode(), nil)
	}
	sub, err := dr.Sub(scope - 1)
	if err != nil {
		return nil, err
	}
	value, err := td.options[selector].Deserialize(sub)
	if err != nil {
		return nil, fmt.Errorf("union variant %d: %w", selector, err)
	}
	backing := tree.NewPairNode(value.Backing(), tree.LeafFromUint64(uint64(selector)))
	return td.ViewFromBacking(backing, nil)
}

func (td *UnionTypeDef) FromObj(raw any) (View, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: union expects a {selector, value} map, got %T", ErrTypeMismatch, raw)
	}
	rawSelector, ok := m["selector"]
	if !ok {
		return nil, fmt.Errorf("%w: union object is missing \"selector\"", ErrTypeMismatch)
	}
	selector, err := coerceUint64(rawSelector)
	if err != nil {
		return nil, err
	}
	if selector >= td.OptionCount() {
		return nil, fmt.Errorf("%w: union selector %d out of range %d", ErrTypeMismatch, selector, td.OptionCount())
	}
	if selector == 0 {
		if value, ok := m["value"]; ok && value != nil {
			return nil, fmt.Errorf("%w: None variant takes no value", ErrTypeMismatch)
		}
		return td.ViewFromBacking(td.DefaultNode(), nil)
	}
	value, err := td.options[selector].FromObj(m["value"])
	if err != nil {
		return nil, fmt.Errorf("union variant %d: %w", selector, err)
	}
	backing := tree.NewPairNode(value.Backing(), tree.LeafFromUint64(selector))
	return td.ViewFromBacking(backing, nil)
}

func (td *UnionTypeDef) String() string { return td.name }

// UnionView is a typed view over a union backing.
type UnionView struct {
	BackedView
	td *UnionTypeDef
}

func (v *UnionView) Type() TypeDef { return v.td }

// Selector reads the active variant index from the selector leaf.
func (v *UnionView) Selector() (uint64, error) {
	leaf, err := tree.Getter(v.BackingNode, tree.RightGindex)
	if err != nil {
		return 0, err
	}
	chunk, err := tree.LeafContent(leaf)
	if err != nil {
		return 0, err
	}
	var selector uint64
	for i := 0; i < 8; i++ {
		selector |= uint64(chunk[i]) << (8 * i)
	}
	for i := 8; i < 32; i++ {
		if chunk[i] != 0 {
			return 0, fmt.Errorf("view: corrupt union selector leaf %s", chunk)
		}
	}
	if selector >= v.td.OptionCount() {
		return 0, fmt.Errorf("%w: union selector %d out of range %d", ErrTypeMismatch, selector, v.td.OptionCount())
	}
	return selector, nil
}

// Value returns a view of the selected variant's value, hooked to write
// back, or nil for the None variant.
func (v *UnionView) Value() (View, error) {
	selector, err := v.Selector()
	if err != nil {
		return nil, err
	}
	if selector == 0 {
		return nil, nil
	}
	node, err := tree.Getter(v.BackingNode, tree.LeftGindex)
	if err != nil {
		return nil, err
	}
	return v.td.options[selector].ViewFromBacking(node, v.childHook(tree.LeftGindex))
}

// Change switches the union to the given variant, replacing the value and
// selector leaves atomically in a single pair rebind. A nil value selects
// None (selector 0 only).
func (v *UnionView) Change(selector uint64, w View) error {
	if selector >= v.td.OptionCount() {
		return fmt.Errorf("%w: union selector %d out of range %d", ErrTypeMismatch, selector, v.td.OptionCount())
	}
	if selector == 0 {
		if w != nil {
			return fmt.Errorf("%w: None variant takes no value", ErrTypeMismatch)
		}
		return v.SetBacking(v.td.DefaultNode())
	}
	if w == nil {
		return fmt.Errorf("%w: variant %d needs a value", ErrTypeMismatch, selector)
	}
	if !sameType(v.td.options[selector], w.Type()) {
		return fmt.Errorf("%w: variant %d is %s, got %s",
			ErrTypeMismatch, selector, v.td.options[selector].Name(), w.Type().Name())
	}
	return v.SetBacking(tree.NewPairNode(w.Backing(), tree.LeafFromUint64(selector)))
}

func (v *UnionView) Copy() (View, error) {
	return v.td.ViewFromBacking(v.BackingNode, nil)
}

func (v *UnionView) ValueByteLength() (uint64, error) {
	value, err := v.Value()
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 1, nil
	}
	n, err := value.ValueByteLength()
	if err != nil {
		return 0, err
	}
	return 1 + n, nil
}

func (v *UnionView) Serialize(w *ssz.EncodingWriter) error {
	selector, err := v.Selector()
	if err != nil {
		return err
	}
	if err := w.WriteByte(byte(selector)); err != nil {
		return err
	}
	if selector == 0 {
		return nil
	}
	value, err := v.Value()
	if err != nil {
		return err
	}
	return value.Serialize(w)
}

// ToObj returns a {selector, value} map; the value is nil for None.
func (v *UnionView) ToObj() (any, error) {
	selector, err := v.Selector()
	if err != nil {
		return nil, err
	}
	out := map[string]any{"selector": selector, "value": nil}
	if selector != 0 {
		value, verr := v.Value()
		if verr != nil {
			return nil, verr
		}
		obj, oerr := value.ToObj()
		if oerr != nil {
			return nil, oerr
		}
		out["value"] = obj
	}
	return out, nil
}
