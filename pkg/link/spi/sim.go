package spi

import (
	"errors"
	"sync"

	"github.com/robotalks/neuron.go/pkg/comm"
)

// Errors of the simulated slave.
var (
	ErrNotInitialized = errors.New("slave not initialized")
	ErrNotArmed       = errors.New("slave not armed")
)

// SimSlave is a SlaveDriver living in memory. The master side drives it
// with Tx, the same call shape as a periph.io SPI connection, so a Poller
// can talk to it directly.
type SimSlave struct {
	// FailSetBuffers makes SetBuffers fail.
	FailSetBuffers error

	done  func(rx []byte)
	tx    [comm.PacketSize]byte
	armed bool
	lock  sync.Mutex
}

// Init implements SlaveDriver.
func (s *SimSlave) Init(_ Config, done func(rx []byte)) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.done = done
	return nil
}

// SetBuffers implements SlaveDriver.
func (s *SimSlave) SetBuffers(tx []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.FailSetBuffers != nil {
		s.armed = false
		return s.FailSetBuffers
	}
	copy(s.tx[:], tx)
	s.armed = true
	return nil
}

// Uninit implements SlaveDriver.
func (s *SimSlave) Uninit() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.done, s.armed = nil, false
	return nil
}

// Tx performs one transfer from the master: w is clocked in while the
// armed buffer is clocked out into r.
func (s *SimSlave) Tx(w, r []byte) error {
	s.lock.Lock()
	done, armed := s.done, s.armed
	if done == nil {
		s.lock.Unlock()
		return ErrNotInitialized
	}
	if !armed {
		s.lock.Unlock()
		return ErrNotArmed
	}
	copy(r, s.tx[:])
	s.armed = false
	s.lock.Unlock()

	rx := make([]byte, comm.PacketSize)
	copy(rx, w)
	done(rx)
	return nil
}
