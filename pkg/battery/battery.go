// Package battery tracks the battery of both halves and the saving mode.
package battery

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/keys"
	"github.com/robotalks/neuron.go/pkg/store"
)

// Defaults shown while a side is not connected.
const (
	DefaultLevel  uint8 = 100
	StatusUnknown uint8 = 4
)

// LevelReporter publishes the keyboard battery level, e.g. the BLE
// battery service.
type LevelReporter interface {
	UpdateBatteryLevel(level uint8)
}

// State is a snapshot of the battery view.
type State struct {
	Level      [2]uint8
	Status     [2]uint8
	SavingMode uint8
	ShowStatus bool
}

// Manager owns the battery state.
type Manager struct {
	Sender   comm.PacketSender
	Reporter LevelReporter

	slice      *store.Slice
	savingMode uint8
	level      [2]uint8
	status     [2]uint8
	millivolts [2]uint16
	showStatus bool
}

// New creates a Manager with both sides on defaults.
func New(sender comm.PacketSender, reporter LevelReporter) *Manager {
	return &Manager{
		Sender:   sender,
		Reporter: reporter,
		level:    [2]uint8{DefaultLevel, DefaultLevel},
		status:   [2]uint8{StatusUnknown, StatusUnknown},
	}
}

// Setup loads the saving mode, initializing it on first use.
func (m *Manager) Setup(st *store.Store) error {
	slice, err := st.RequestSlice(1)
	if err != nil && !errors.Is(err, store.ErrSliceOverrun) {
		return err
	}
	m.slice = slice
	if slice.IsErased(0, 1) {
		slice.Write(0, 0)
		slice.Commit()
	}
	m.savingMode = slice.Read(0)
	glog.V(2).Infof("battery: saving mode %d", m.savingMode)
	return nil
}

// BindTo registers packet handlers.
func (m *Manager) BindTo(cb *comm.Callbacks) {
	cb.BindFunc(comm.BatteryStatus, m.onStatus)
	cb.BindFunc(comm.BatteryLevel, m.onLevel)
	cb.BindFunc(comm.Disconnected, m.onDisconnected)
	cb.BindFunc(comm.Connected, m.onConnected)
}

func (m *Manager) onStatus(_ context.Context, pkt *comm.Packet) {
	if side, ok := comm.SideOf(pkt.Device); ok {
		m.status[side] = pkt.Data[0]
	}
	glog.V(3).Infof("battery status %s %d", pkt.Device, pkt.Data[0])
}

func (m *Manager) onLevel(_ context.Context, pkt *comm.Packet) {
	if side, ok := comm.SideOf(pkt.Device); ok {
		m.level[side] = pkt.Data[0]
		m.millivolts[side] = binary.LittleEndian.Uint16(pkt.Data[1:3])
	}
	glog.V(3).Infof("battery level %s %d%% %dmV", pkt.Device, pkt.Data[0], binary.LittleEndian.Uint16(pkt.Data[1:3]))
	m.report()
}

func (m *Manager) onDisconnected(_ context.Context, pkt *comm.Packet) {
	if side, ok := comm.SideOf(pkt.Device); ok {
		m.level[side] = DefaultLevel
		m.status[side] = StatusUnknown
	}
	m.report()
}

func (m *Manager) onConnected(_ context.Context, pkt *comm.Packet) {
	reply := *pkt
	reply.Command = comm.BatterySaving
	reply.SetPayload(m.savingMode)
	m.Sender.SendPacket(&reply)
}

// Level returns the lower level of both sides.
func (m *Manager) Level() uint8 {
	if m.level[comm.SideLeft] < m.level[comm.SideRight] {
		return m.level[comm.SideLeft]
	}
	return m.level[comm.SideRight]
}

func (m *Manager) report() {
	if m.Reporter != nil {
		m.Reporter.UpdateBatteryLevel(m.Level())
	}
}

// State returns a snapshot.
func (m *Manager) State() State {
	return State{
		Level:      m.level,
		Status:     m.status,
		SavingMode: m.savingMode,
		ShowStatus: m.showStatus,
	}
}

// SetSavingMode persists the mode and announces it to the halves.
func (m *Manager) SetSavingMode(mode uint8) {
	m.savingMode = mode
	pkt := comm.NewPacket(comm.DeviceUnknown, comm.BatterySaving, mode)
	m.Sender.SendPacket(&pkt)
	m.slice.Write(0, mode)
	m.slice.Commit()
}

// HandleKey shows the battery status while the battery key is held.
func (m *Manager) HandleKey(ev *keys.Event) keys.Result {
	if ev.Key != keys.BatteryLevel {
		return keys.Continue
	}
	switch {
	case ev.State.ToggledOn():
		m.showStatus = true
	case ev.State.ToggledOff():
		m.showStatus = false
	}
	return keys.Consumed
}

const focusPrefix = "wireless.battery."

// FocusCommands implements focus.Handler.
func (m *Manager) FocusCommands() []string {
	return []string{
		focusPrefix + "left.level",
		focusPrefix + "right.level",
		focusPrefix + "left.status",
		focusPrefix + "right.status",
		focusPrefix + "savingMode",
	}
}

// HandleFocus implements focus.Handler.
func (m *Manager) HandleFocus(req *focus.Request) (bool, error) {
	sub, ok := req.Sub(focusPrefix)
	if !ok {
		return false, nil
	}
	switch sub {
	case "left.level":
		req.Send(m.level[comm.SideLeft])
	case "right.level":
		req.Send(m.level[comm.SideRight])
	case "left.status":
		// ask the halves for a fresh status, answered with what is known
		pkt := comm.NewPacket(comm.DeviceUnknown, comm.BatteryStatus)
		m.Sender.SendPacket(&pkt)
		req.Send(m.status[comm.SideLeft])
	case "right.status":
		req.Send(m.status[comm.SideRight])
	case "savingMode":
		if req.IsEOL() {
			req.Send(m.savingMode)
			return true, nil
		}
		mode, err := req.ReadUint8()
		if err != nil {
			return true, err
		}
		m.SetSavingMode(mode)
	default:
		return false, nil
	}
	return true, nil
}
