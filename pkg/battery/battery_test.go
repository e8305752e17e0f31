package battery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/keys"
	"github.com/robotalks/neuron.go/pkg/store"
)

type sentPackets []comm.Packet

func (s *sentPackets) SendPacket(pkt *comm.Packet) bool {
	*s = append(*s, *pkt)
	return true
}

type levelRecorder []uint8

func (r *levelRecorder) UpdateBatteryLevel(level uint8) {
	*r = append(*r, level)
}

func setup(t *testing.T) (*Manager, *comm.Callbacks, *sentPackets, *levelRecorder, *store.Store) {
	st, err := store.Open(store.NewMemFlash(store.MaxSize), 0)
	require.NoError(t, err)
	sent, levels := &sentPackets{}, &levelRecorder{}
	m := New(sent, levels)
	require.NoError(t, m.Setup(st))
	var cb comm.Callbacks
	m.BindTo(&cb)
	return m, &cb, sent, levels, st
}

func TestFirstSetupPersistsDefault(t *testing.T) {
	m, _, _, _, st := setup(t)
	require.Zero(t, m.State().SavingMode)
	require.True(t, st.NeedUpdate())
	require.Equal(t, byte(0), st.Read(0))
}

func TestLevelForwardsMinimum(t *testing.T) {
	m, cb, _, levels, _ := setup(t)
	pkt := comm.NewPacket(comm.KeyscannerDefyRight, comm.BatteryLevel, 85, 0x10, 0x0e)
	cb.Call(context.Background(), &pkt)
	require.EqualValues(t, 85, m.State().Level[comm.SideRight])
	require.EqualValues(t, 100, m.State().Level[comm.SideLeft])
	require.Equal(t, levelRecorder{85}, *levels)

	pkt = comm.NewPacket(comm.RFDefyLeft, comm.BatteryLevel, 60, 0, 0)
	cb.Call(context.Background(), &pkt)
	require.Equal(t, levelRecorder{85, 60}, *levels)
	require.EqualValues(t, 60, m.Level())
}

func TestDisconnectedResetsSide(t *testing.T) {
	m, cb, _, levels, _ := setup(t)
	for _, pkt := range []comm.Packet{
		comm.NewPacket(comm.BLEDefyLeft, comm.BatteryLevel, 30, 0, 0),
		comm.NewPacket(comm.BLEDefyLeft, comm.BatteryStatus, 1),
		comm.NewPacket(comm.BLEDefyLeft, comm.Disconnected),
	} {
		cb.Call(context.Background(), &pkt)
	}
	state := m.State()
	require.Equal(t, DefaultLevel, state.Level[comm.SideLeft])
	require.Equal(t, StatusUnknown, state.Status[comm.SideLeft])
	require.Equal(t, levelRecorder{30, 100}, *levels)
}

func TestConnectedResendsSavingMode(t *testing.T) {
	m, cb, sent, _, _ := setup(t)
	m.savingMode = 1
	pkt := comm.NewPacket(comm.KeyscannerDefyLeft, comm.Connected)
	cb.Call(context.Background(), &pkt)
	require.Len(t, *sent, 1)
	reply := (*sent)[0]
	require.Equal(t, comm.KeyscannerDefyLeft, reply.Device)
	require.Equal(t, comm.BatterySaving, reply.Command)
	require.Equal(t, []byte{1}, reply.Payload())
}

func TestFocusSavingMode(t *testing.T) {
	m, _, sent, _, st := setup(t)
	require.NoError(t, st.Update())
	require.False(t, st.NeedUpdate())

	consumed, err := m.HandleFocus(focus.NewRequest("wireless.battery.savingMode", "1"))
	require.NoError(t, err)
	require.True(t, consumed)
	require.EqualValues(t, 1, m.State().SavingMode)
	require.True(t, st.NeedUpdate())
	require.Len(t, *sent, 1)
	require.Equal(t, comm.BatterySaving, (*sent)[0].Command)
	require.Equal(t, []byte{1}, (*sent)[0].Payload())

	req := focus.NewRequest("wireless.battery.savingMode")
	_, err = m.HandleFocus(req)
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, req.Output())
}

func TestFocusReads(t *testing.T) {
	m, cb, sent, _, _ := setup(t)
	pkt := comm.NewPacket(comm.KeyscannerDefyLeft, comm.BatteryStatus, 2)
	cb.Call(context.Background(), &pkt)

	testCases := []struct {
		cmd  string
		out  string
		sent int
	}{
		{"wireless.battery.left.level", "100", 0},
		{"wireless.battery.right.level", "100", 0},
		{"wireless.battery.right.status", "4", 0},
		{"wireless.battery.left.status", "2", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.cmd, func(t *testing.T) {
			*sent = nil
			req := focus.NewRequest(tc.cmd)
			consumed, err := m.HandleFocus(req)
			require.NoError(t, err)
			require.True(t, consumed)
			require.Equal(t, []string{tc.out}, req.Output())
			require.Len(t, *sent, tc.sent)
		})
	}

	consumed, err := m.HandleFocus(focus.NewRequest("wireless.rf.power"))
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestBatteryKey(t *testing.T) {
	m, _, _, _, _ := setup(t)
	require.Equal(t, keys.Consumed, m.HandleKey(&keys.Event{Key: keys.BatteryLevel, State: keys.IsPressed}))
	require.True(t, m.State().ShowStatus)
	require.Equal(t, keys.Consumed, m.HandleKey(&keys.Event{Key: keys.BatteryLevel, State: keys.WasPressed}))
	require.False(t, m.State().ShowStatus)
	require.Equal(t, keys.Continue, m.HandleKey(&keys.Event{Key: keys.KeyQ, State: keys.IsPressed}))
}
