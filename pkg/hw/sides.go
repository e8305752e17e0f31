package hw

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/robotalks/neuron.go/pkg/comm"
)

// DefaultResetPulse is how long a side is held in reset.
const DefaultResetPulse = 10 * time.Millisecond

// SideLines drives the nRESET lines of the keyboard halves. The lines
// go through an inverting stage: driving High holds the side in reset.
type SideLines struct {
	Pulse time.Duration

	lines [2]gpio.PinOut
}

// NewSideLines releases both sides and returns the lines.
func NewSideLines(left, right gpio.PinOut) (*SideLines, error) {
	s := &SideLines{Pulse: DefaultResetPulse, lines: [2]gpio.PinOut{left, right}}
	for side := range s.lines {
		if err := s.Release(comm.Side(side)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// OpenSideLines finds the GPIOs by name, e.g. GPIO5.
func OpenSideLines(left, right string) (*SideLines, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	var pins [2]gpio.PinIO
	for n, name := range []string{left, right} {
		if pins[n] = gpioreg.ByName(name); pins[n] == nil {
			return nil, fmt.Errorf("no gpio %q", name)
		}
	}
	return NewSideLines(pins[0], pins[1])
}

// Hold keeps a side in reset.
func (s *SideLines) Hold(side comm.Side) error {
	return s.lines[side].Out(gpio.High)
}

// Release lets a side run.
func (s *SideLines) Release(side comm.Side) error {
	return s.lines[side].Out(gpio.Low)
}

// Reset pulses the line of a side.
func (s *SideLines) Reset(side comm.Side) error {
	glog.Infof("reset %s side", side)
	if err := s.Hold(side); err != nil {
		return err
	}
	time.Sleep(s.Pulse)
	return s.Release(side)
}
