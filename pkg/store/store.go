package store

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/timer"
)

// Flash geometry.
const (
	PageSize = 4096
	NumPages = 2
	MaxSize  = PageSize * NumPages

	writeUnit = 256
)

// Erased is the value of a never written byte.
const Erased byte = 0xFF

// Flash is the non-volatile area behind a Store. Erase and Write start an
// operation which is complete once Busy turns false.
type Flash interface {
	ReadAt(p []byte, off int64) (int, error)
	Erase() error
	Write(p []byte) error
	Busy() bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the cycle time source used by the periodic flush.
func WithClock(ts fx.TimeSource) Option {
	return func(s *Store) { s.clock = ts }
}

// WithYield sets the service tick called while waiting on flash.
func WithYield(fn func()) Option {
	return func(s *Store) { s.yield = fn }
}

type wallClock struct{}

func (wallClock) Time() time.Time { return time.Now() }

// Store is the RAM image of the flash area. It's owned by the main loop.
type Store struct {
	flash Flash
	clock fx.TimeSource
	yield func()

	data       []byte
	dirty      bool
	needUpdate bool
	periodic   timer.Timer
	sliceEnd   int
}

// Open loads size bytes from flash. size is capped at MaxSize
// and rounded up to the flash write unit.
func Open(flash Flash, size int, opts ...Option) (*Store, error) {
	if size <= 0 || size > MaxSize {
		size = MaxSize
	}
	size = (size + writeUnit - 1) &^ (writeUnit - 1)
	s := &Store{flash: flash, clock: wallClock{}, data: make([]byte, size)}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := flash.ReadAt(s.data, 0); err != nil {
		return nil, &FlashError{Op: "read", Err: err}
	}
	return s, nil
}

// Len returns the size of the image.
func (s *Store) Len() int {
	return len(s.data)
}

// Read returns one byte, 0 if out of range.
func (s *Store) Read(addr int) byte {
	if addr < 0 || addr >= len(s.data) {
		return 0
	}
	return s.data[addr]
}

// Write sets one byte. The store becomes dirty only if the value changes.
func (s *Store) Write(addr int, val byte) {
	if addr < 0 || addr >= len(s.data) {
		return
	}
	if s.data[addr] != val {
		s.data[addr] = val
		s.dirty = true
	}
}

// Get decodes v (a fixed size value or pointer to one) at addr, little endian.
func (s *Store) Get(addr int, v interface{}) error {
	size := binary.Size(v)
	if size < 0 || addr < 0 || addr+size > len(s.data) {
		return ErrOutOfRange
	}
	return binary.Read(bytes.NewReader(s.data[addr:addr+size]), binary.LittleEndian, v)
}

// Put encodes v at addr. The store becomes dirty only if bytes change.
func (s *Store) Put(addr int, v interface{}) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return err
	}
	b := buf.Bytes()
	if addr < 0 || addr+len(b) > len(s.data) {
		return ErrOutOfRange
	}
	if !bytes.Equal(s.data[addr:addr+len(b)], b) {
		copy(s.data[addr:], b)
		s.dirty = true
	}
	return nil
}

// IsDirty reports uncommitted changes.
func (s *Store) IsDirty() bool {
	return s.dirty
}

// Commit schedules a flash update if anything changed and restarts the
// periodic timer so further writes are coalesced.
func (s *Store) Commit() bool {
	if !s.dirty {
		return true
	}
	s.dirty = false
	s.needUpdate = true
	s.ResetPeriodic()
	return true
}

// NeedUpdate reports a committed image not yet written to flash.
func (s *Store) NeedUpdate() bool {
	return s.needUpdate
}

func (s *Store) wait() {
	for s.flash.Busy() {
		if s.yield != nil {
			s.yield()
		}
	}
}

// WaitIdle returns once no flash operation is in progress.
func (s *Store) WaitIdle() {
	s.wait()
}

// Update writes the image to flash if a commit is pending.
func (s *Store) Update() error {
	if !s.needUpdate {
		return nil
	}
	s.wait()
	if err := s.flash.Erase(); err != nil {
		return &FlashError{Op: "erase", Err: err}
	}
	s.wait()
	if err := s.flash.Write(s.data); err != nil {
		return &FlashError{Op: "write", Err: err}
	}
	s.wait()
	s.needUpdate = false
	s.ResetPeriodic()
	glog.V(2).Infof("flash updated, %d bytes", len(s.data))
	return nil
}

// ResetPeriodic restarts the quiet period of the periodic flush.
func (s *Store) ResetPeriodic() {
	s.periodic.Start(s.clock.Time())
}

// RunPeriodic flushes a pending commit once timeout elapsed since the
// last reset. It's expected to run every loop cycle.
func (s *Store) RunPeriodic(timeout time.Duration) error {
	now := s.clock.Time()
	if !s.periodic.IsRunning() {
		s.periodic.Start(now)
	}
	if !s.periodic.HasExpired(now, timeout) {
		return nil
	}
	s.periodic.Stop()
	return s.Update()
}

// Flush commits and writes everything immediately.
func (s *Store) Flush() error {
	s.Commit()
	return s.Update()
}

// RequestSlice reserves size bytes. On overrun, a slice detached from
// flash is returned together with ErrSliceOverrun so the caller can keep
// running on defaults.
func (s *Store) RequestSlice(size int) (*Slice, error) {
	if s.sliceEnd+size > len(s.data) {
		glog.Errorf("slice of %d bytes doesn't fit, %d used of %d", size, s.sliceEnd, len(s.data))
		detached := &Store{flash: nopFlash{}, clock: s.clock, data: bytes.Repeat([]byte{Erased}, size)}
		return &Slice{store: detached, size: size}, ErrSliceOverrun
	}
	sl := &Slice{store: s, offset: s.sliceEnd, size: size}
	s.sliceEnd += size
	return sl, nil
}

// Used returns the bytes handed out by RequestSlice.
func (s *Store) Used() int {
	return s.sliceEnd
}

type nopFlash struct{}

func (nopFlash) ReadAt(p []byte, _ int64) (int, error) { return len(p), nil }
func (nopFlash) Erase() error                          { return nil }
func (nopFlash) Write([]byte) error                    { return nil }
func (nopFlash) Busy() bool                            { return false }
