package store

import "encoding/binary"

// Slice is a byte range of a Store owned by one subsystem.
type Slice struct {
	store  *Store
	offset int
	size   int
}

// Offset returns the base address.
func (s *Slice) Offset() int { return s.offset }

// Size returns the slice length.
func (s *Slice) Size() int { return s.size }

// Store returns the owning store.
func (s *Slice) Store() *Store { return s.store }

func (s *Slice) check(off, n int) error {
	if off < 0 || n < 0 || off+n > s.size {
		return ErrOutOfRange
	}
	return nil
}

// Get decodes v at off within the slice.
func (s *Slice) Get(off int, v interface{}) error {
	if err := s.check(off, binary.Size(v)); err != nil {
		return err
	}
	return s.store.Get(s.offset+off, v)
}

// Put encodes v at off within the slice.
func (s *Slice) Put(off int, v interface{}) error {
	if err := s.check(off, binary.Size(v)); err != nil {
		return err
	}
	return s.store.Put(s.offset+off, v)
}

// Read returns one byte.
func (s *Slice) Read(off int) byte {
	if s.check(off, 1) != nil {
		return 0
	}
	return s.store.Read(s.offset + off)
}

// Write sets one byte.
func (s *Slice) Write(off int, val byte) {
	if s.check(off, 1) == nil {
		s.store.Write(s.offset+off, val)
	}
}

// Bytes returns a copy of the slice content.
func (s *Slice) Bytes() []byte {
	b := make([]byte, s.size)
	copy(b, s.store.data[s.offset:s.offset+s.size])
	return b
}

// IsErased reports whether the first n bytes at off were never written.
func (s *Slice) IsErased(off, n int) bool {
	if s.check(off, n) != nil {
		return false
	}
	for _, b := range s.store.data[s.offset+off : s.offset+off+n] {
		if b != Erased {
			return false
		}
	}
	return true
}

// Commit commits the owning store.
func (s *Slice) Commit() bool {
	return s.store.Commit()
}
