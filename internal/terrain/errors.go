package terrain

import (
	"errors"
	"fmt"
)

// Build errors.
var (
	ErrNilHeightField  = errors.New("terrain: nil height-field")
	ErrInvalidTileGrid = errors.New("terrain: invalid tile grid")
	ErrIndexOverflow   = errors.New("terrain: vertex count exceeds 16-bit index range")
	ErrInvariant       = errors.New("terrain: tree invariant violated")
)

// invariantError is panicked on broken internal contracts and converted to
// ErrInvariant at the Init boundary.
type invariantError struct {
	msg string
}

func (e invariantError) Error() string {
	return e.msg
}

func invariantf(format string, args ...any) invariantError {
	return invariantError{msg: fmt.Sprintf(format, args...)}
}
