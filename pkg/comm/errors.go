package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTransport indicates a transport with the same name is attached.
	ErrDuplicateTransport = errors.New("duplicate transport")
	// ErrShortBuffer indicates a buffer can't hold a full packet.
	ErrShortBuffer = errors.New("buffer shorter than packet")
)

// CRCError reports a packet whose checksum doesn't match.
type CRCError struct {
	Expected byte
	Actual   byte
}

// Error implements error.
func (e *CRCError) Error() string {
	return fmt.Sprintf("crc mismatch: expected %02x, got %02x", e.Expected, e.Actual)
}
