package lvq

import "errors"

// Error kinds surfaced by the engine. Every failure returned from a
// public operation wraps exactly one of these, so callers discriminate
// with errors.Is and still get a contextual message.
var (
	// ErrShape indicates a dimension mismatch or an index out of range.
	ErrShape = errors.New("lvq: shape error")
	// ErrValue indicates a non-finite component, an invalid label, or
	// an invalid parameter (dimension, size, beta).
	ErrValue = errors.New("lvq: value error")
	// ErrFormat indicates a rejected persistence blob.
	ErrFormat = errors.New("lvq: format error")
	// ErrIO indicates an underlying read/write failure during Store/Load.
	ErrIO = errors.New("lvq: i/o error")
)
