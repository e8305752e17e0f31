package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/bluetooth"
	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/focus"
	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/store"
)

type testNode struct {
	*Node
	flash *store.MemFlash
	stack *bluetooth.SimStack
	now   time.Time
}

func newTestNode(t *testing.T) *testNode {
	tn := &testNode{
		flash: store.NewMemFlash(store.MaxSize),
		stack: bluetooth.NewSimStack(),
		now:   time.Unix(1000, 0),
	}
	cfg := DefaultConfig()
	cfg.NodeID = "defy"
	cfg.Version = "v1.2.3"
	n, err := New(cfg, WithFlash(tn.flash), WithStack(tn.stack), WithClock(func() time.Time { return tn.now }))
	require.NoError(t, err)
	tn.Node = n
	return tn
}

func (tn *testNode) cycle(d time.Duration) {
	tn.now = tn.now.Add(d)
	tn.Loop.RunCycle(context.Background())
}

func (tn *testNode) receive(dev comm.Device, cmd comm.Command) {
	pkt := comm.NewPacket(dev, cmd)
	tn.Router.Call(context.Background(), &pkt)
}

func (tn *testNode) focus(t *testing.T, cmd string, args ...string) []string {
	req := focus.NewRequest(cmd, args...)
	require.NoError(t, tn.Commands.Dispatch(req))
	return req.Output()
}

func TestNewLoadsDefaults(t *testing.T) {
	tn := newTestNode(t)
	require.EqualValues(t, 0, tn.Bluetooth.Data().CurrentChannel)
	require.Equal(t, []string{"v1.2.3"}, tn.focus(t, "version"))
	require.Equal(t, []string{"0"}, tn.focus(t, "wireless.bluetooth.channel"))
	require.Equal(t, comm.NeuronDefy, tn.identity())
	require.NotNil(t, tn.Router.Transport("spi/left"))
	require.NotNil(t, tn.Router.Transport("rf/right"))
	require.NotNil(t, tn.Router.Transport("ble"))
	require.Nil(t, tn.Telemetry)
}

func TestSettingsSurviveRestart(t *testing.T) {
	tn := newTestNode(t)
	tn.focus(t, "wireless.bluetooth.deviceName", "My", "Defy")
	require.NoError(t, tn.Store.Update())

	n, err := New(DefaultConfig(), WithFlash(tn.flash), WithStack(bluetooth.NewSimStack()))
	require.NoError(t, err)
	require.Equal(t, "My Defy", n.Bluetooth.Data().DeviceName.String())
}

func TestWiredModeKeepsWirelessDown(t *testing.T) {
	tn := newTestNode(t)
	tn.cycle(0)
	tn.receive(comm.KeyscannerDefyLeft, comm.Connected)
	require.True(t, tn.Wired())
	tn.cycle(2 * DefaultWiredWait)
	require.True(t, tn.modeDecided)
	require.False(t, tn.stack.Inited())
	require.False(t, tn.Radio.IsInited())

	tn.receive(comm.KeyscannerDefyLeft, comm.Disconnected)
	require.False(t, tn.Wired())
}

func TestWirelessModeAfterWiredWait(t *testing.T) {
	tn := newTestNode(t)
	tn.cycle(0)
	require.False(t, tn.modeDecided)
	tn.cycle(DefaultWiredWait / 2)
	require.False(t, tn.stack.Inited())
	tn.cycle(DefaultWiredWait)
	require.True(t, tn.stack.Inited())
	require.True(t, tn.Radio.IsInited())
	require.Equal(t, comm.BLENeuronDefy, tn.identity())
}

func TestForceBleSkipsWait(t *testing.T) {
	tn := newTestNode(t)
	tn.Bluetooth.SetForceBle(true)
	tn.receive(comm.KeyscannerDefyRight, comm.Connected)
	tn.cycle(0)
	require.True(t, tn.stack.Inited())
	require.False(t, tn.Bluetooth.ForceBle())
}

func TestStatusSnapshot(t *testing.T) {
	tn := newTestNode(t)
	tn.receive(comm.KeyscannerDefyRight, comm.Connected)
	st := tn.Status()
	require.Equal(t, "defy", st.NodeId)
	require.Equal(t, "v1.2.3", st.Version)
	require.False(t, st.Left.Connected)
	require.True(t, st.Right.Connected)
	require.False(t, st.Ble.Connected)
}

func TestResetFlushesAndStops(t *testing.T) {
	tn := newTestNode(t)
	tn.Loop.Clock = nil
	cause := errors.New("test reset")
	tn.Loop.AddController(fx.PrLvIdle, fx.ControlFunc(func(fx.ControlContext) error {
		tn.Bluetooth.SetForceBle(true)
		tn.Reset(cause)
		return nil
	}))
	_, writesBefore := tn.flash.Counts()

	err := tn.Run(context.Background())
	require.True(t, errors.Is(err, fx.ErrReset))
	require.True(t, errors.Is(err, cause))
	_, writes := tn.flash.Counts()
	require.True(t, writes > writesBefore)

	n, err := New(DefaultConfig(), WithFlash(tn.flash), WithStack(bluetooth.NewSimStack()))
	require.NoError(t, err)
	require.True(t, n.Bluetooth.ForceBle())
}

func TestRunStopsWithContext(t *testing.T) {
	tn := newTestNode(t)
	tn.Loop.Clock = nil
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := tn.Run(ctx)
	require.False(t, errors.Is(err, fx.ErrReset))
}
