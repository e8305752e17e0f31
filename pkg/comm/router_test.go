package comm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type testTransport struct {
	rx, tx *Queue
}

func newTestTransport() *testTransport {
	return &testTransport{rx: NewPacketQueue(), tx: NewQueue(PacketSize, 2*PacketSize)}
}

func (t *testTransport) ReadPacket(p *Packet) bool { return t.rx.GetPacket(p) }
func (t *testTransport) SendPacket(p *Packet) bool { return t.tx.PutPacket(p) }

func (t *testTransport) inject(pkts ...Packet) {
	for n := range pkts {
		t.rx.PutPacket(&pkts[n])
	}
}

func TestRouterDispatchOrder(t *testing.T) {
	left, right := newTestTransport(), newTestTransport()
	r := NewRouter()
	require.NoError(t, r.Attach("left", left, ForDevices(KeyscannerDefyLeft)))
	require.NoError(t, r.Attach("right", right, ForDevices(KeyscannerDefyRight)))
	require.Equal(t, ErrDuplicateTransport, r.Attach("left", left))

	var seen []Packet
	r.BindFunc(BatteryLevel, func(_ context.Context, p *Packet) {
		seen = append(seen, *p)
	})
	right.inject(NewPacket(KeyscannerDefyRight, BatteryLevel, 1))
	left.inject(
		NewPacket(KeyscannerDefyLeft, BatteryLevel, 2),
		NewPacket(KeyscannerDefyLeft, IsAlive),
		NewPacket(KeyscannerDefyLeft, BatteryLevel, 3),
	)
	require.Equal(t, 4, r.Poll(context.Background()))
	require.Len(t, seen, 3)
	require.Equal(t, []byte{2}, seen[0].Payload())
	require.Equal(t, []byte{3}, seen[1].Payload())
	require.Equal(t, []byte{1}, seen[2].Payload())

	stats := r.Stats()
	require.Equal(t, uint64(4), stats.Received)
	require.Equal(t, uint64(3), stats.Dispatched)
	require.Equal(t, 0, r.Poll(context.Background()))
}

func TestRouterMaxPerCycle(t *testing.T) {
	tr := newTestTransport()
	r := NewRouter()
	r.MaxPerCycle = 2
	require.NoError(t, r.Attach("spi", tr))
	tr.inject(NewPacket(KeyscannerDefyLeft, IsAlive), NewPacket(KeyscannerDefyLeft, IsAlive), NewPacket(KeyscannerDefyLeft, IsAlive))
	require.Equal(t, 2, r.Poll(context.Background()))
	require.Equal(t, 1, r.Poll(context.Background()))
}

func TestRouterSend(t *testing.T) {
	left, right, bridge := newTestTransport(), newTestTransport(), newTestTransport()
	r := NewRouter()
	require.NoError(t, r.Attach("left", left, ForDevices(KeyscannerDefyLeft)))
	require.NoError(t, r.Attach("right", right, ForDevices(KeyscannerDefyRight)))
	require.NoError(t, r.Attach("bridge", bridge, NoBroadcast()))

	testCases := []struct {
		name   string
		device Device
		expect bool
		counts [3]int
	}{
		{"left", KeyscannerDefyLeft, true, [3]int{1, 0, 0}},
		{"right", KeyscannerDefyRight, true, [3]int{1, 1, 0}},
		{"broadcast", DeviceUnknown, true, [3]int{2, 2, 0}},
		{"neuron", NeuronDefy, false, [3]int{2, 2, 0}},
		{"full", KeyscannerDefyLeft, false, [3]int{2, 2, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pkt := NewPacket(tc.device, BatterySaving, 1)
			require.Equal(t, tc.expect, r.SendPacket(&pkt))
			require.Equal(t, tc.counts, [3]int{left.tx.NumItems(), right.tx.NumItems(), bridge.tx.NumItems()})
		})
	}

	require.True(t, r.Detach("left"))
	require.False(t, r.Detach("left"))
	require.Nil(t, r.Transport("left"))
	require.NotNil(t, r.Transport("right"))
}
