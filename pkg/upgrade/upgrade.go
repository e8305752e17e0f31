// Package upgrade drives firmware upgrades of the board and of the halves.
package upgrade

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/hw"
)

// ErrBootloader is the reset cause when entering the bootloader.
var ErrBootloader = errors.New("reset into bootloader")

// SideReset resets a keyboard half.
type SideReset interface {
	Reset(comm.Side) error
}

// Queues is the packet queues of a side link.
type Queues interface {
	ClearSend()
	ClearRead()
}

// Handler tracks which halves are attached and serves the upgrade commands.
type Handler struct {
	Lines    SideReset
	Ports    [2]Queues
	Flush    func() error
	Resetter hw.Resetter

	connected  [2]bool
	inProgress bool
}

// BindTo registers packet handlers.
func (h *Handler) BindTo(cb *comm.Callbacks) {
	cb.BindFunc(comm.Connected, h.onConnected)
	cb.BindFunc(comm.Disconnected, h.onDisconnected)
}

func (h *Handler) onConnected(_ context.Context, pkt *comm.Packet) {
	if side, ok := comm.SideOf(pkt.Device); ok {
		h.connected[side] = true
	}
}

func (h *Handler) onDisconnected(_ context.Context, pkt *comm.Packet) {
	if side, ok := comm.SideOf(pkt.Device); ok {
		h.connected[side] = false
	}
}

// IsConnected reports whether a side announced itself.
func (h *Handler) IsConnected(side comm.Side) bool {
	return h.connected[side]
}

// InProgress reports an upgrade session.
func (h *Handler) InProgress() bool {
	return h.inProgress
}

const focusPrefix = "upgrade."

// FocusCommands implements focus.Handler.
func (h *Handler) FocusCommands() []string {
	return []string{
		focusPrefix + "start",
		focusPrefix + "neuron",
		focusPrefix + "end",
		focusPrefix + "keyscanner.isConnected",
		focusPrefix + "keyscanner.begin",
		focusPrefix + "keyscanner.finish",
	}
}

func readSide(req *focus.Request) (comm.Side, error) {
	arg, err := req.Next()
	if err != nil {
		return comm.SideLeft, err
	}
	side, ok := comm.ParseSide(arg)
	if !ok {
		return side, &focus.ArgumentError{Command: req.Command, Arg: arg, Err: errors.New("not a side")}
	}
	return side, nil
}

// HandleFocus implements focus.Handler.
func (h *Handler) HandleFocus(req *focus.Request) (bool, error) {
	sub, ok := req.Sub(focusPrefix)
	if !ok {
		return false, nil
	}
	switch sub {
	case "start":
		h.inProgress = true
		glog.Info("upgrade started")
	case "end":
		h.inProgress = false
		glog.Info("upgrade ended")
	case "neuron":
		if h.Flush != nil {
			if err := h.Flush(); err != nil {
				glog.Errorf("flush before bootloader: %v", err)
			}
		}
		if h.Resetter != nil {
			h.Resetter.Reset(ErrBootloader)
		}
	case "keyscanner.isConnected":
		side, err := readSide(req)
		if err != nil {
			return true, err
		}
		req.Send(h.connected[side])
	case "keyscanner.begin":
		side, err := readSide(req)
		if err != nil {
			return true, err
		}
		if !h.connected[side] {
			req.Send(false)
			break
		}
		if q := h.Ports[side]; q != nil {
			q.ClearSend()
			q.ClearRead()
		}
		req.Send(h.resetSide(side))
	case "keyscanner.finish":
		side, err := readSide(req)
		if err != nil {
			return true, err
		}
		req.Send(h.resetSide(side))
	default:
		return false, nil
	}
	return true, nil
}

func (h *Handler) resetSide(side comm.Side) bool {
	if h.Lines == nil {
		return false
	}
	if err := h.Lines.Reset(side); err != nil {
		glog.Errorf("reset %s side: %v", side, err)
		return false
	}
	return true
}
