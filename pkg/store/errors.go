package store

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange indicates an access beyond the store or slice.
	ErrOutOfRange = errors.New("address out of range")
	// ErrSliceOverrun indicates the slice allocator ran out of space.
	ErrSliceOverrun = errors.New("slice allocator overrun")
	// ErrUnknownBackend indicates an unsupported flash URL scheme.
	ErrUnknownBackend = errors.New("unknown flash backend")
)

// FlashError is a failed flash operation.
type FlashError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *FlashError) Error() string {
	return fmt.Sprintf("flash %s: %v", e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *FlashError) Unwrap() error {
	return e.Err
}
