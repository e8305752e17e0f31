package keys

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	fx "github.com/robotalks/neuron.go/pkg/framework"
)

// Scanner turns HAS_KEYS row bitmaps reported by the halves into key
// events. A payload holds one byte per row, bit n being column n of
// that half. Held keys produce an event every cycle.
type Scanner struct {
	Layout  *Layout
	Handler Handler

	cur, prev [2][Rows]byte
}

// NewScanner creates a Scanner.
func NewScanner(layout *Layout, handler Handler) *Scanner {
	return &Scanner{Layout: layout, Handler: handler}
}

// BindTo registers packet handlers.
func (s *Scanner) BindTo(cb *comm.Callbacks) {
	cb.BindFunc(comm.HasKeys, s.onKeys)
	cb.BindFunc(comm.Disconnected, s.onDisconnected)
}

func (s *Scanner) onKeys(_ context.Context, pkt *comm.Packet) {
	side, ok := comm.SideOf(pkt.Device)
	if !ok {
		return
	}
	copy(s.cur[side][:], pkt.Payload())
}

func (s *Scanner) onDisconnected(_ context.Context, pkt *comm.Packet) {
	if side, ok := comm.SideOf(pkt.Device); ok {
		s.cur[side] = [Rows]byte{}
	}
}

// AddToLoop implements fx.LoopAdder. Scanning runs right after
// the packets are dispatched.
func (s *Scanner) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvComm+1, s)
}

// Control implements fx.Controller.
func (s *Scanner) Control(cc fx.ControlContext) error {
	now := cc.Time()
	for side := range s.cur {
		for row := 0; row < Rows; row++ {
			was, is := s.prev[side][row], s.cur[side][row]
			if was|is == 0 {
				continue
			}
			for bit := 0; bit < ColsPerSide; bit++ {
				var state State
				if was&(1<<bit) != 0 {
					state |= WasPressed
				}
				if is&(1<<bit) != 0 {
					state |= IsPressed
				}
				if state == 0 {
					continue
				}
				addr := Addr{Row: byte(row), Col: byte(side*ColsPerSide + bit)}
				ev := &Event{Addr: addr, Key: s.Layout.Lookup(addr), State: state, Time: now}
				if glog.V(4) {
					glog.Info(ev)
				}
				s.Handler.HandleKey(ev)
			}
			s.prev[side][row] = is
		}
	}
	return nil
}
