// Package radio manages the RF gateway settings.
package radio

import (
	"encoding/binary"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/link/rf"
	"github.com/robotalks/neuron.go/pkg/store"
)

// Power is the persisted power setting.
type Power uint8

// Power settings
const (
	PowerLow Power = iota
	PowerMedium
	PowerHigh
)

// TxPower maps the setting to the gateway transmit power.
func (p Power) TxPower() rf.TxPower {
	switch p {
	case PowerMedium:
		return rf.TxPower4dBm
	case PowerHigh:
		return rf.TxPower8dBm
	}
	return rf.TxPower0dBm
}

// Manager owns the RF settings.
type Manager struct {
	Gateway *rf.Gateway
	Sender  comm.PacketSender
	NodeID  string

	slice      *store.Slice
	power      Power
	channelHop uint16
	inited     bool
}

// New creates a Manager.
func New(gw *rf.Gateway, sender comm.PacketSender, nodeID string) *Manager {
	return &Manager{Gateway: gw, Sender: sender, NodeID: nodeID}
}

// Setup loads the power setting, low by default.
func (m *Manager) Setup(st *store.Store) error {
	slice, err := st.RequestSlice(1)
	if err != nil && !errors.Is(err, store.ErrSliceOverrun) {
		return err
	}
	m.slice = slice
	if slice.IsErased(0, 1) || Power(slice.Read(0)) > PowerHigh {
		slice.Write(0, byte(PowerLow))
		slice.Commit()
	}
	m.power = Power(slice.Read(0))
	return nil
}

// Init brings the gateway up and opens the keyscanner pipes.
func (m *Manager) Init() error {
	glog.Info("radio: working with RF")
	m.inited = true
	m.Gateway.SetAddress(m.SuggestedAddress())
	m.applyPower()
	m.Gateway.Enable()
	for _, pipe := range []rf.Pipe{rf.PipeKeyscannerLeft, rf.PipeKeyscannerRight} {
		if _, err := m.Gateway.OpenPipe(pipe); err != nil {
			return err
		}
	}
	return nil
}

// IsInited reports whether Init was called.
func (m *Manager) IsInited() bool {
	return m.inited
}

// SuggestedAddress is the pairing address offered to the halves.
func (m *Manager) SuggestedAddress() uint32 {
	return rf.SuggestAddress(m.NodeID)
}

func (m *Manager) applyPower() {
	if m.inited {
		m.Gateway.SetTxPower(m.power.TxPower())
	}
}

// Power returns the power setting.
func (m *Manager) Power() Power {
	return m.power
}

// SetPower applies and persists the setting. Unknown values are ignored.
func (m *Manager) SetPower(p Power) bool {
	if p > PowerHigh {
		return false
	}
	m.power = p
	m.applyPower()
	m.slice.Write(0, byte(p))
	m.slice.Commit()
	return true
}

// Poll services the gateway.
func (m *Manager) Poll() error {
	if !m.inited {
		return nil
	}
	return m.Gateway.Poll()
}

// SyncPairing announces the suggested address to the halves.
func (m *Manager) SyncPairing() bool {
	pkt := comm.NewPacket(comm.DeviceUnknown, comm.RFAddress)
	pkt.SetPayload(binary.LittleEndian.AppendUint32(nil, m.SuggestedAddress())...)
	return m.Sender.SendPacket(&pkt)
}

const focusPrefix = "wireless.rf."

// FocusCommands implements focus.Handler.
func (m *Manager) FocusCommands() []string {
	return []string{
		focusPrefix + "power",
		focusPrefix + "channelHop",
		focusPrefix + "syncPairing",
	}
}

// HandleFocus implements focus.Handler.
func (m *Manager) HandleFocus(req *focus.Request) (bool, error) {
	sub, ok := req.Sub(focusPrefix)
	if !ok {
		return false, nil
	}
	switch sub {
	case "power":
		if req.IsEOL() {
			req.Send(uint8(m.power))
			break
		}
		p, err := req.ReadUint8()
		if err != nil {
			return true, err
		}
		m.SetPower(Power(p))
	case "channelHop":
		if req.IsEOL() {
			req.Send(m.channelHop)
			break
		}
		hop, err := req.ReadUint16()
		if err != nil {
			return true, err
		}
		m.channelHop = hop
	case "syncPairing":
		if req.IsEOL() {
			m.SyncPairing()
		}
	default:
		return false, nil
	}
	return true, nil
}
