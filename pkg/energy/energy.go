// Package energy keeps the energy saving modes configured by the host.
package energy

import (
	"errors"

	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/keys"
	"github.com/robotalks/neuron.go/pkg/store"
)

// StorageSize is the size of the modes table.
const StorageSize = 16

// Manager owns the energy settings.
type Manager struct {
	slice       *store.Slice
	currentMode uint8
	disable     uint8
}

// Setup reserves the modes table.
func (m *Manager) Setup(st *store.Store) error {
	slice, err := st.RequestSlice(StorageSize)
	if err != nil && !errors.Is(err, store.ErrSliceOverrun) {
		return err
	}
	m.slice = slice
	return nil
}

// Modes returns the stored table.
func (m *Manager) Modes() []byte {
	return m.slice.Bytes()
}

// CurrentMode returns the selected mode.
func (m *Manager) CurrentMode() uint8 {
	return m.currentMode
}

// Disabled returns the disable flags.
func (m *Manager) Disabled() uint8 {
	return m.disable
}

// HandleKey consumes the mode cycling keys.
func (m *Manager) HandleKey(ev *keys.Event) keys.Result {
	switch ev.Key {
	case keys.EnergyModeNext, keys.EnergyModePrev:
		// TODO: cycle through the stored modes once their format is fixed.
		return keys.Consumed
	}
	return keys.Continue
}

const focusPrefix = "wireless.energy."

// FocusCommands implements focus.Handler.
func (m *Manager) FocusCommands() []string {
	return []string{
		focusPrefix + "modes",
		focusPrefix + "currentMode",
		focusPrefix + "disable",
	}
}

// HandleFocus implements focus.Handler.
func (m *Manager) HandleFocus(req *focus.Request) (bool, error) {
	sub, ok := req.Sub(focusPrefix)
	if !ok {
		return false, nil
	}
	switch sub {
	case "modes":
		if req.IsEOL() {
			for _, b := range m.slice.Bytes() {
				req.Send(b)
			}
			break
		}
		for pos := 0; !req.IsEOL(); pos++ {
			b, err := req.ReadUint8()
			if err != nil {
				m.slice.Commit()
				return true, err
			}
			m.slice.Write(pos, b)
		}
		m.slice.Commit()
	case "currentMode":
		if req.IsEOL() {
			req.Send(m.currentMode)
			break
		}
		mode, err := req.ReadUint8()
		if err != nil {
			return true, err
		}
		m.currentMode = mode
	case "disable":
		if req.IsEOL() {
			break
		}
		v, err := req.ReadUint8()
		if err != nil {
			return true, err
		}
		m.disable = v
	default:
		return false, nil
	}
	return true, nil
}
