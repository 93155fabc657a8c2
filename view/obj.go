package view

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Coercion helpers for the language-neutral object representation: plain
// integers and booleans for basic types, byte sequences (or 0x-hex
// strings) for byte types, bool sequences for bitfields, []any for
// sequences and map[string]any for containers and unions.

// coerceUint64 accepts the integer shapes an object representation may
// carry.
func coerceUint64(raw any) (uint64, error) {
	switch x := raw.(type) {
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case int64:
		if x < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrTypeMismatch, x)
		}
		return uint64(x), nil
	case int:
		if x < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrTypeMismatch, x)
		}
		return uint64(x), nil
	case Uint64View:
		return uint64(x), nil
	case Uint32View:
		return uint64(x), nil
	case Uint16View:
		return uint64(x), nil
	case Uint8View:
		return uint64(x), nil
	default:
		return 0, fmt.Errorf("%w: cannot read %T as unsigned integer", ErrTypeMismatch, raw)
	}
}

// coerceBool accepts booleans and boolean views.
func coerceBool(raw any) (bool, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case BoolView:
		return bool(x), nil
	default:
		return false, fmt.Errorf("%w: cannot read %T as boolean", ErrTypeMismatch, raw)
	}
}

// coerceBytes accepts byte slices and 0x-prefixed hex strings.
func coerceBytes(raw any) ([]byte, error) {
	switch x := raw.(type) {
	case []byte:
		return x, nil
	case hexutil.Bytes:
		return x, nil
	case string:
		data, err := hexutil.Decode(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %T as bytes", ErrTypeMismatch, raw)
	}
}

// coerceBools accepts bool sequences for bitfields.
func coerceBools(raw any) ([]bool, error) {
	switch x := raw.(type) {
	case []bool:
		return x, nil
	case []any:
		out := make([]bool, len(x))
		for i, elem := range x {
			b, err := coerceBool(elem)
			if err != nil {
				return nil, fmt.Errorf("bit %d: %w", i, err)
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %T as bit sequence", ErrTypeMismatch, raw)
	}
}

// coerceSeq accepts ordered sequences for vectors and lists.
func coerceSeq(raw any) ([]any, error) {
	switch x := raw.(type) {
	case []any:
		return x, nil
	case []uint64:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = v
		}
		return out, nil
	case []bool:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = v
		}
		return out, nil
	case []View:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %T as sequence", ErrTypeMismatch, raw)
	}
}
