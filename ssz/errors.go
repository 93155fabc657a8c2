package ssz

import "fmt"

// DecodeError reports an offset-table or length violation during
// deserialization. Offset is the byte position within the value being
// decoded at which the violation was detected.
type DecodeError struct {
	Offset uint64
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ssz: decode error at offset %d: %s", e.Offset, e.Reason)
}

// DecodeErrf constructs a DecodeError at the given stream offset.
func DecodeErrf(offset uint64, format string, args ...any) *DecodeError {
	return &DecodeError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
