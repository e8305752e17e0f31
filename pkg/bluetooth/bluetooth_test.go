package bluetooth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/hw"
	"github.com/robotalks/neuron.go/pkg/keys"
	"github.com/robotalks/neuron.go/pkg/store"
)

type sentPackets []comm.Packet

func (s *sentPackets) SendPacket(pkt *comm.Packet) bool {
	*s = append(*s, *pkt)
	return true
}

type clock struct{ now time.Time }

func (c *clock) Time() time.Time { return c.now }

type fixture struct {
	m      *Manager
	stack  *SimStack
	st     *store.Store
	flash  *store.MemFlash
	sent   *sentPackets
	resets []error
	t0     time.Time
}

// newFixture opens a store holding rec (nil for a blank flash) and sets up
// a Manager on it.
func newFixture(t *testing.T, rec *FlashData, peers ...PeerID) *fixture {
	f := &fixture{
		flash: store.NewMemFlash(store.MaxSize),
		stack: NewSimStack(peers...),
		sent:  &sentPackets{},
		t0:    time.Unix(1000, 0),
	}
	var err error
	f.st, err = store.Open(f.flash, 0, store.WithClock(&clock{now: f.t0}))
	require.NoError(t, err)
	if rec != nil {
		require.NoError(t, f.st.Put(0, rec))
		f.st.Commit()
		require.NoError(t, f.st.Update())
	}
	f.m = New(f.stack, f.sent, hw.ResetFunc(func(err error) { f.resets = append(f.resets, err) }))
	require.NoError(t, f.m.Setup(f.st))
	return f
}

func (f *fixture) at(d time.Duration) {
	f.m.BeforeCycle(f.t0.Add(d))
}

func (f *fixture) key(row, col byte, k keys.Key, state keys.State, d time.Duration) keys.Result {
	return f.m.HandleKey(&keys.Event{
		Addr:  keys.Addr{Row: row, Col: col},
		Key:   k,
		State: state,
		Time:  f.t0.Add(d),
	})
}

func record(current uint8, peers map[uint8]PeerID) *FlashData {
	var rec FlashData
	rec.Reset()
	rec.CurrentChannel = current
	for ch, p := range peers {
		rec.Connections[ch].Peer = p
	}
	return &rec
}

const (
	released = keys.WasPressed
	held     = keys.WasPressed | keys.IsPressed
	pressed  = keys.IsPressed
)

func TestSetupInitializesBlankRecord(t *testing.T) {
	f := newFixture(t, nil)
	data := f.m.Data()
	require.Zero(t, data.CurrentChannel)
	require.Equal(t, DefaultDeviceName, data.DeviceName.String())
	for _, c := range data.Connections {
		require.False(t, c.Valid())
	}
	require.True(t, f.st.NeedUpdate())
	require.Equal(t, DefaultDeviceName, f.stack.DeviceName())
	require.False(t, f.stack.Whitelist())
	require.Zero(t, f.m.Indicator().PairedChannels)
	_, connected := f.m.Indicator().Connected()
	require.False(t, connected)
}

func TestSetupLoadsRecord(t *testing.T) {
	f := newFixture(t, record(2, map[uint8]PeerID{0: 5, 2: 6}))
	require.EqualValues(t, 2, f.m.Data().CurrentChannel)
	require.EqualValues(t, 2, f.stack.Channel())
	require.True(t, f.stack.Whitelist())
	require.EqualValues(t, 0b101, f.m.Indicator().PairedChannels)
	require.False(t, f.st.NeedUpdate())
}

func TestInitReconcilesBonds(t *testing.T) {
	f := newFixture(t, record(0, map[uint8]PeerID{1: 7, 3: 9}), 9, 3)
	require.NoError(t, f.m.Init())
	data := f.m.Data()
	require.EqualValues(t, 3, data.Connections[0].Peer)
	require.False(t, data.Connections[1].Valid())
	require.EqualValues(t, 9, data.Connections[3].Peer)
	require.True(t, f.st.NeedUpdate())
	require.Equal(t, []string{"init", "advertise whitelist"}, f.stack.Calls)
}

func TestConnectionSavedAfterDelay(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.m.Init())
	f.at(0)
	require.True(t, f.m.ShowLayer())
	require.EqualValues(t, 0, f.m.Indicator().AdvertisingChannel)

	addr := Address{1, 2, 3, 4, 5, 6}
	f.stack.Connect(3, addr, "laptop")
	f.at(10 * time.Millisecond)
	require.False(t, f.m.ShowLayer())
	ch, connected := f.m.Indicator().Connected()
	require.True(t, connected)
	require.Zero(t, ch)
	require.EqualValues(t, 1, f.m.Indicator().PairedChannels)

	f.stack.Run()
	f.at(20 * time.Millisecond)
	f.at(time.Second)
	require.False(t, f.m.Data().Connections[0].Valid())

	f.at(20*time.Millisecond + SaveDelay)
	c := f.m.Data().Connections[0]
	require.EqualValues(t, 3, c.Peer)
	require.Equal(t, addr, c.Address)
	require.Equal(t, "laptop", c.Name.String())
}

func TestAdvertisingTimeoutSleeps(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.m.Init())
	f.at(0)
	f.stack.Timeout()
	f.at(10 * time.Millisecond)
	require.Len(t, *f.sent, 1)
	require.Equal(t, comm.Sleep, (*f.sent)[0].Command)
	require.False(t, f.m.Indicator().LEDsEnabled)
	f.at(20 * time.Millisecond)
	require.True(t, f.stack.Idle())

	f.key(2, 3, keys.KeyNone, pressed, 30*time.Millisecond)
	require.True(t, f.stack.Advertising())
	require.True(t, f.m.Indicator().LEDsEnabled)
}

func TestPasskeyEntry(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.m.Init())
	f.at(0)
	f.stack.RaiseSecurity(SecurityStarted)
	f.at(10 * time.Millisecond)
	require.False(t, f.m.ShowLayer())

	digits := []keys.Key{keys.Key1, keys.Key1 + 1, keys.Key1 + 2, keys.Key1 + 3, keys.Key1 + 4, keys.Key0}
	for _, k := range digits {
		require.Equal(t, keys.Consumed, f.key(0, 1, k, released, 0))
	}
	require.Equal(t, [][6]byte{{'1', '2', '3', '4', '5', '0'}}, f.stack.Passkeys())
	require.Equal(t, keys.Continue, f.key(3, 3, keys.Key1, released, 0))
}

func TestSecurityFailedShowsLayer(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.m.Init())
	f.at(0)
	f.stack.RaiseSecurity(SecurityStarted)
	f.at(10 * time.Millisecond)
	f.stack.RaiseSecurity(SecurityFailed)
	f.at(20 * time.Millisecond)
	require.True(t, f.m.ShowLayer())
	require.True(t, f.m.Indicator().Effect)
	require.Equal(t, keys.Continue, f.key(3, 3, keys.Key1, released, 0))
}

func TestChannelSwitch(t *testing.T) {
	tests := []struct {
		name      string
		peers     map[uint8]PeerID
		whitelist bool
	}{
		{"paired", map[uint8]PeerID{0: 5, 2: 6}, true},
		{"empty", map[uint8]PeerID{2: 6}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var bonds []PeerID
			for _, p := range tc.peers {
				bonds = append(bonds, p)
			}
			f := newFixture(t, record(2, tc.peers), bonds...)
			require.NoError(t, f.m.Init())
			f.at(0)
			require.True(t, f.m.ShowLayer())

			require.Equal(t, keys.Continue, f.key(0, 1, keys.Key1, pressed, 0))
			require.Equal(t, keys.Consumed, f.key(0, 1, keys.Key1, released, 0))

			require.EqualValues(t, 0, f.m.Data().CurrentChannel)
			require.EqualValues(t, 0, f.stack.Channel())
			require.Equal(t, tc.whitelist, f.stack.Whitelist())
			advertise := "advertise"
			if tc.whitelist {
				advertise = "advertise whitelist"
			}
			calls := f.stack.Calls
			require.Equal(t, []string{"stop advertising", "apply channel", "disconnect", "reinit", advertise}, calls[len(calls)-5:])

			_, writes := f.flash.Counts()
			require.Equal(t, 2, writes)
			var saved FlashData
			require.NoError(t, f.st.Get(0, &saved))
			require.EqualValues(t, 0, saved.CurrentChannel)

			ind := f.m.Indicator()
			require.EqualValues(t, 0, ind.AdvertisingChannel)
			_, connected := ind.Connected()
			require.False(t, connected)
			require.Equal(t, tc.whitelist, ind.PairedChannels&1 != 0)
			require.NotZero(t, ind.PairedChannels&0b100)
		})
	}
}

func TestSameChannelExitsPairing(t *testing.T) {
	f := newFixture(t, record(1, map[uint8]PeerID{1: 4}), 4)
	require.NoError(t, f.m.Init())
	f.at(0)
	f.stack.Connect(4, Address{}, "")
	f.at(10 * time.Millisecond)
	require.Equal(t, keys.Continue, f.key(4, 6, keys.BluetoothPairing, pressed, 0))
	require.Equal(t, keys.Consumed, f.key(4, 6, keys.BluetoothPairing, released, 0))
	require.True(t, f.m.ShowLayer())

	require.Equal(t, keys.Continue, f.key(0, 11, keys.Key1+6, released, 0))
	require.False(t, f.m.ShowLayer())
	require.EqualValues(t, 1, f.m.Data().CurrentChannel)
}

func TestEraseOnLongPress(t *testing.T) {
	f := newFixture(t, record(0, map[uint8]PeerID{0: 3, 1: 4}), 3, 4)
	require.NoError(t, f.m.Init())
	f.at(0)

	require.Equal(t, keys.Continue, f.key(1, 2, keys.KeyW, pressed, 0))
	require.Equal(t, keys.Continue, f.key(1, 2, keys.KeyW, held, time.Second))
	require.Equal(t, keys.Consumed, f.key(1, 2, keys.KeyW, held, EraseHoldTime))
	require.Equal(t, keys.Continue, f.key(1, 2, keys.KeyW, held, EraseHoldTime+time.Second))
	f.key(1, 2, keys.KeyW, released, EraseHoldTime+2*time.Second)

	require.False(t, f.m.Data().Connections[1].Valid())
	require.Equal(t, []PeerID{3}, f.stack.Peers())
	require.EqualValues(t, 1, f.m.Indicator().PairedChannels)
	require.Empty(t, f.resets)

	f.key(1, 1, keys.KeyQ, pressed, 10*time.Second)
	f.key(1, 1, keys.KeyQ, held, 10*time.Second+EraseHoldTime)
	require.Equal(t, []error{ErrCurrentErased}, f.resets)
	require.Empty(t, f.stack.Peers())
}

func TestResetKeys(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.m.Init())
	f.key(0, 0, keys.KeyEscape, pressed, 0)
	require.Empty(t, f.resets)

	f.at(0)
	f.key(0, 9, keys.KeyBackspace, pressed, 0)
	require.Equal(t, []error{ErrResetRequested}, f.resets)
}

func TestForceBleFromWired(t *testing.T) {
	f := newFixture(t, nil)
	f.m.Wired = func() bool { return true }
	require.Equal(t, keys.Continue, f.key(4, 6, keys.BluetoothPairing, pressed, 0))
	require.True(t, f.m.ForceBle())
	require.Equal(t, []error{ErrForceBle}, f.resets)

	var saved FlashData
	require.NoError(t, f.st.Get(0, &saved))
	require.True(t, saved.ForceBle)
}

func TestFocus(t *testing.T) {
	f := newFixture(t, record(0, map[uint8]PeerID{0: 3}))

	req := focus.NewRequest("wireless.bluetooth.deviceName", "My", "Defy")
	consumed, err := f.m.HandleFocus(req)
	require.NoError(t, err)
	require.True(t, consumed)
	require.Equal(t, "My Defy", f.stack.DeviceName())

	req = focus.NewRequest("wireless.bluetooth.deviceName")
	_, err = f.m.HandleFocus(req)
	require.NoError(t, err)
	require.Equal(t, []string{"My Defy"}, req.Output())

	req = focus.NewRequest("wireless.bluetooth.devicesMap")
	_, err = f.m.HandleFocus(req)
	require.NoError(t, err)
	out := req.Output()
	require.Len(t, out, Channels)
	require.Equal(t, "0 3 ff:ff:ff:ff:ff:ff ", out[0])
	require.Equal(t, "1 -", out[1])

	consumed, err = f.m.HandleFocus(focus.NewRequest("wireless.bluetooth.unknown"))
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestConnectionValidOnRecordCopy(t *testing.T) {
	var data FlashData
	data.Reset()
	data.Connections[3].Peer = 4
	require.False(t, data.Connections[0].Valid())
	require.True(t, data.Connections[3].Valid())
	require.False(t, data.Current().Valid())
}
