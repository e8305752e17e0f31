// Package bluetooth manages the BLE host channels: pairing, channel
// selection, passkey entry and the persisted bond records.
package bluetooth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/focus"
	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/hw"
	"github.com/robotalks/neuron.go/pkg/keys"
	"github.com/robotalks/neuron.go/pkg/store"
	"github.com/robotalks/neuron.go/pkg/timer"
)

// Timing of the persisted state.
const (
	SaveDelay      = 2000 * time.Millisecond
	EraseHoldTime  = 3000 * time.Millisecond
	passkeyDigits  = 6
	unsetChannel   = 0xFF
	indicatorNone  = Channels
	indicatorNoAdv = Channels + 1
)

// ErrForceBle is the reset cause after BLE was forced from wired mode.
var ErrForceBle = errors.New("switching to bluetooth")

// ErrResetRequested is the reset cause of the reset keys.
var ErrResetRequested = errors.New("reset key pressed")

// ErrCurrentErased is the reset cause after erasing the current channel.
var ErrCurrentErased = errors.New("current channel erased")

// Indicator is the pairing LED state the LED effect renders.
type Indicator struct {
	// PairedChannels has bit n set when channel n holds a host.
	PairedChannels uint8
	// ConnectedChannel is Channels when not connected.
	ConnectedChannel uint8
	// AdvertisingChannel is Channels+1 when not advertising.
	AdvertisingChannel uint8
	EraseDone          bool
	// Effect is the forced pairing LED effect.
	Effect      bool
	LEDsEnabled bool
}

// Connected reports a connected channel.
func (i Indicator) Connected() (uint8, bool) {
	return i.ConnectedChannel, i.ConnectedChannel < Channels
}

type keyHold struct {
	pressed  time.Time
	erased   bool
	tracking bool
}

// Manager implements the channel and pairing logic on top of a Stack.
type Manager struct {
	Stack    Stack
	Sender   comm.PacketSender
	Resetter hw.Resetter
	HID      hw.HID
	// Wired reports a keyboard half attached by cable.
	Wired func() bool

	slice     *store.Slice
	data      FlashData
	indicator Indicator

	showLayer      bool
	passkeyPending bool
	passkey        [passkeyDigits]byte
	passkeyLen     int
	advertising    bool
	holds          [Channels]keyHold

	saveConn  timer.Trigger
	saveName  timer.Trigger
	nameReady atomic.Bool
}

// New creates a Manager.
func New(stack Stack, sender comm.PacketSender, resetter hw.Resetter) *Manager {
	return &Manager{
		Stack:    stack,
		Sender:   sender,
		Resetter: resetter,
		HID:      hw.NopHID{},
		saveConn: timer.Trigger{Timeout: SaveDelay},
		saveName: timer.Trigger{Timeout: SaveDelay},
		indicator: Indicator{
			ConnectedChannel:   indicatorNone,
			AdvertisingChannel: indicatorNoAdv,
			LEDsEnabled:        true,
		},
	}
}

// Setup loads the record, resetting it on first use, and configures the
// stack for the current channel.
func (m *Manager) Setup(st *store.Store) error {
	var data FlashData
	slice, err := st.RequestSlice(binary.Size(&data))
	if err != nil && !errors.Is(err, store.ErrSliceOverrun) {
		return err
	}
	m.slice = slice
	if err := slice.Get(0, &data); err != nil {
		return err
	}
	m.data = data
	if m.data.CurrentChannel == unsetChannel || m.data.CurrentChannel >= Channels {
		m.data.Reset()
		m.save()
	}
	glog.V(2).Infof("bluetooth: current channel %d", m.data.CurrentChannel)
	m.applyChannel()
	for ch := range m.data.Connections {
		m.setPairedLED(uint8(ch), m.data.Connections[ch].Valid())
	}
	m.indicator.ConnectedChannel = indicatorNone
	m.indicator.EraseDone = false
	return nil
}

// Init starts the stack and reconciles the records with its bond table.
func (m *Manager) Init() error {
	if err := m.Stack.Init(); err != nil {
		return err
	}
	if err := m.Stack.StartAdvertising(true); err != nil {
		return err
	}
	peers := m.Stack.Peers()
	glog.Infof("bluetooth: %d bonded hosts", len(peers))
	changed := false
	for _, p := range peers {
		if p == PeerInvalid || m.channelOf(p) >= 0 {
			continue
		}
		for i := range m.data.Connections {
			if c := &m.data.Connections[i]; !c.Valid() {
				c.Reset()
				c.Peer = p
				changed = true
				break
			}
		}
	}
	for i := range m.data.Connections {
		c := &m.data.Connections[i]
		if c.Valid() && !containsPeer(peers, c.Peer) {
			c.Reset()
			changed = true
		}
	}
	if changed {
		m.save()
	}
	return nil
}

func containsPeer(peers []PeerID, id PeerID) bool {
	for _, p := range peers {
		if p == id {
			return true
		}
	}
	return false
}

func (m *Manager) channelOf(id PeerID) int {
	for i := range m.data.Connections {
		if m.data.Connections[i].Peer == id {
			return i
		}
	}
	return -1
}

func (m *Manager) save() {
	if err := m.slice.Put(0, &m.data); err != nil {
		glog.Errorf("bluetooth: save record: %v", err)
		return
	}
	m.slice.Commit()
}

func (m *Manager) applyChannel() {
	m.Stack.SetChannel(m.data.CurrentChannel)
	m.Stack.SetDeviceName(m.data.DeviceName.String())
	m.Stack.SetWhitelist(m.data.Current().Valid())
}

func (m *Manager) setPairedLED(ch uint8, on bool) {
	if on {
		m.indicator.PairedChannels |= 1 << ch
	} else {
		m.indicator.PairedChannels &^= 1 << ch
	}
}

func (m *Manager) ledMode() {
	m.indicator.Effect = true
}

func (m *Manager) exitPairing() {
	glog.V(2).Info("bluetooth: exit pairing mode")
	m.showLayer = false
	m.indicator.Effect = false
}

func (m *Manager) reset(cause error) {
	if m.Resetter != nil {
		m.Resetter.Reset(cause)
	}
}

// Data returns a copy of the persisted record.
func (m *Manager) Data() FlashData {
	return m.data
}

// Indicator returns the LED state.
func (m *Manager) Indicator() Indicator {
	return m.indicator
}

// ShowLayer reports the pairing layer is shown.
func (m *Manager) ShowLayer() bool {
	return m.showLayer
}

// ForceBle reports the keyboard was switched to BLE from wired mode.
func (m *Manager) ForceBle() bool {
	return m.data.ForceBle
}

// SetForceBle persists the flag.
func (m *Manager) SetForceBle(on bool) {
	m.data.ForceBle = on
	m.save()
}

// UpdateBatteryLevel forwards to the battery service.
func (m *Manager) UpdateBatteryLevel(level uint8) {
	if m.Stack.Inited() {
		m.Stack.UpdateBatteryLevel(level)
	}
}

// BeforeCycle runs the debounce timers and follows the stack state.
func (m *Manager) BeforeCycle(now time.Time) {
	if !m.Stack.Inited() {
		return
	}
	hold := m.slice.Store().ResetPeriodic
	m.saveConn.Run(now, m.saveConnection, hold)
	if m.nameReady.Swap(false) {
		m.saveName.Fire()
	}
	m.saveName.Run(now, m.saveDeviceName, hold)

	switch m.Stack.TakeSecurityEvent() {
	case SecurityStarted:
		m.passkeyPending = true
		m.passkeyLen = 0
		m.exitPairing()
	case SecurityFailed:
		m.passkeyPending = false
		m.ledMode()
		m.showLayer = true
	}
	if m.passkeyPending && m.Stack.Connected() {
		m.passkeyPending = false
	}

	switch {
	case m.Stack.Advertising():
		if !m.advertising {
			glog.V(2).Infof("bluetooth: channel %d advertising", m.data.CurrentChannel)
			m.indicator.AdvertisingChannel = m.data.CurrentChannel
			m.showLayer = true
			m.ledMode()
			m.advertising = true
		}
	case m.advertising && m.Stack.Connected():
		ch := m.data.CurrentChannel
		glog.Infof("bluetooth: connected on channel %d", ch)
		m.indicator.ConnectedChannel = ch
		m.indicator.AdvertisingChannel = indicatorNoAdv
		m.setPairedLED(ch, true)
		m.ledMode()
		m.Stack.RequestDeviceName(func() { m.nameReady.Store(true) })
		m.advertising = false
		m.exitPairing()
		m.saveConn.Fire()
	case m.advertising && m.Stack.Idle():
		glog.Info("bluetooth: advertising ended")
		m.advertising = false
		m.indicator.LEDsEnabled = false
		pkt := comm.NewPacket(comm.DeviceUnknown, comm.Sleep)
		m.Sender.SendPacket(&pkt)
	}

	if !m.advertising && m.Stack.Idle() && m.indicator.LEDsEnabled {
		m.startAdvertising()
	}
}

func (m *Manager) startAdvertising() {
	if err := m.Stack.StartAdvertising(false); err != nil {
		glog.Errorf("bluetooth: advertise: %v", err)
	}
	m.indicator.AdvertisingChannel = m.data.CurrentChannel
	m.ledMode()
}

func (m *Manager) saveConnection() {
	peer, addr := m.Stack.ConnectedPeer()
	c := m.data.Current()
	if c.Peer == peer && c.Address == addr {
		return
	}
	glog.V(2).Infof("bluetooth: saving host %d on channel %d", peer, m.data.CurrentChannel)
	c.Peer, c.Address = peer, addr
	m.save()
}

func (m *Manager) saveDeviceName() {
	name := m.Stack.ConnectedName()
	c := m.data.Current()
	if c.Name == name {
		return
	}
	glog.V(2).Infof("bluetooth: saving host name %q", name.String())
	c.Name = name
	m.save()
}

// Control implements fx.Controller.
func (m *Manager) Control(cc fx.ControlContext) error {
	m.BeforeCycle(cc.Time())
	return nil
}

// ReleaseKeys keeps the host from seeing keys used on the pairing layer.
func (m *Manager) ReleaseKeys(fx.ControlContext) error {
	if m.showLayer {
		m.HID.ReleaseAllKeys()
	}
	return nil
}

// AddToLoop implements fx.LoopAdder.
func (m *Manager) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvBeforeCycle, m)
	l.AddController(fx.PrLvReport, fx.ControlFunc(m.ReleaseKeys))
	l.AddServiceTick(func() {
		if m.Stack.Inited() {
			m.Stack.Run()
		}
	})
}

// channelKey maps the number and top letter rows to channels: columns
// 1 to 5 on the left half and 10 to 14 on the right.
func channelKey(a keys.Addr) (uint8, bool) {
	if a.Row > 1 {
		return 0, false
	}
	switch {
	case a.Col >= 1 && a.Col <= 5:
		return a.Col - 1, true
	case a.Col >= 10 && a.Col <= 14:
		return a.Col - 10, true
	}
	return 0, false
}

// HandleKey implements keys.Handler.
func (m *Manager) HandleKey(ev *keys.Event) keys.Result {
	if !m.Stack.Inited() {
		if ev.Key == keys.BluetoothPairing && ev.State.ToggledOn() && m.Wired != nil && m.Wired() {
			glog.Info("bluetooth: forced from wired mode")
			m.SetForceBle(true)
			m.reset(ErrForceBle)
		}
		return keys.Continue
	}

	if m.passkeyPending && ev.State.ToggledOff() && ev.Key.IsDigit() {
		m.passkey[m.passkeyLen] = ev.Key.Digit()
		m.passkeyLen++
		if m.passkeyLen == passkeyDigits {
			glog.V(2).Info("bluetooth: sending passkey")
			if err := m.Stack.SendPasskey(m.passkey); err != nil {
				glog.Errorf("bluetooth: passkey: %v", err)
			}
			m.passkeyLen = 0
			m.passkeyPending = false
		}
		return keys.Consumed
	}

	if ev.Key == keys.BluetoothPairing && ev.State.ToggledOff() {
		if !m.Stack.Advertising() && m.showLayer {
			m.exitPairing()
		} else {
			m.ledMode()
			m.showLayer = true
		}
		return keys.Consumed
	}

	if m.Stack.Idle() {
		m.startAdvertising()
		m.indicator.LEDsEnabled = true
	}

	if !m.showLayer {
		return keys.Continue
	}
	return m.handleLayerKey(ev)
}

func (m *Manager) handleLayerKey(ev *keys.Event) keys.Result {
	result := keys.Continue
	a := ev.Addr
	if a.Row == 0 && (a.Col == 0 || a.Col == 9) && ev.State.ToggledOn() {
		m.reset(ErrResetRequested)
	}
	ch, ok := channelKey(a)
	if !ok {
		return result
	}
	if a.Row == 1 {
		h := &m.holds[ch]
		if ev.State.ToggledOn() {
			*h = keyHold{pressed: ev.Time, tracking: true}
		}
		if ev.State.Pressed() && h.tracking && !h.erased && ev.Time.Sub(h.pressed) >= EraseHoldTime {
			h.erased = true
			m.erase(ch)
			result = keys.Consumed
		}
		if ev.State.ToggledOff() {
			*h = keyHold{}
		}
		return result
	}

	if !ev.State.ToggledOff() {
		return result
	}
	if ch != m.data.CurrentChannel {
		m.switchChannel(ch)
		return keys.Consumed
	}
	if !m.Stack.Advertising() {
		m.exitPairing()
	}
	return result
}

func (m *Manager) switchChannel(ch uint8) {
	glog.Infof("bluetooth: channel %d to %d", m.data.CurrentChannel, ch)
	m.data.CurrentChannel = ch
	m.indicator.ConnectedChannel = indicatorNone
	m.indicator.AdvertisingChannel = ch
	m.ledMode()
	m.applyChannel()

	logErr := func(op string, err error) {
		if err != nil {
			glog.Errorf("bluetooth: %s: %v", op, err)
		}
	}
	logErr("stop advertising", m.Stack.StopAdvertising())
	m.save()
	// the new channel must be on flash before the stack reconnects
	logErr("update store", m.slice.Store().Update())
	logErr("apply channel", m.Stack.ApplyChannel())
	logErr("disconnect", m.Stack.Disconnect())
	logErr("reinit", m.Stack.Reinit())
	logErr("advertise", m.Stack.StartAdvertising(m.data.Current().Valid()))
}

func (m *Manager) erase(ch uint8) {
	c := &m.data.Connections[ch]
	if !c.Valid() {
		return
	}
	glog.Infof("bluetooth: erasing host on channel %d", ch)
	if containsPeer(m.Stack.Peers(), c.Peer) {
		if err := m.Stack.DeletePeer(c.Peer); err != nil {
			glog.Errorf("bluetooth: delete peer %d: %v", c.Peer, err)
		}
	}
	c.Reset()
	m.setPairedLED(ch, false)
	m.save()
	if ch == m.data.CurrentChannel {
		m.indicator.ConnectedChannel = indicatorNone
		if err := m.Stack.Disconnect(); err != nil {
			glog.Errorf("bluetooth: disconnect: %v", err)
		}
		m.reset(ErrCurrentErased)
	}
	m.indicator.EraseDone = true
	m.ledMode()
	m.indicator.EraseDone = false
}

const focusPrefix = "wireless.bluetooth."

// FocusCommands implements focus.Handler.
func (m *Manager) FocusCommands() []string {
	return []string{
		focusPrefix + "devicesMap",
		focusPrefix + "deviceName",
		focusPrefix + "channel",
		focusPrefix + "forceBle",
	}
}

// HandleFocus implements focus.Handler.
func (m *Manager) HandleFocus(req *focus.Request) (bool, error) {
	sub, ok := req.Sub(focusPrefix)
	if !ok {
		return false, nil
	}
	switch sub {
	case "devicesMap":
		for i, c := range m.data.Connections {
			req.SendLine(fmt.Sprintf("%d %s", i, c))
		}
	case "deviceName":
		if req.IsEOL() {
			req.SendLine(m.data.DeviceName.String())
			return true, nil
		}
		name := strings.Join(req.Args(), " ")
		if len(name) >= NameLen {
			return true, &focus.ArgumentError{Command: req.Command, Arg: name, Err: errors.New("name too long")}
		}
		m.data.DeviceName = MakeName(name)
		m.save()
		m.Stack.SetDeviceName(name)
	case "channel":
		req.Send(m.data.CurrentChannel)
	case "forceBle":
		if req.IsEOL() {
			req.Send(m.data.ForceBle)
			return true, nil
		}
		on, err := req.ReadBool()
		if err != nil {
			return true, err
		}
		m.SetForceBle(on)
	default:
		return false, nil
	}
	return true, nil
}
