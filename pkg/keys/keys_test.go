package keys

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/comm"
	fx "github.com/robotalks/neuron.go/pkg/framework"
)

func TestDigits(t *testing.T) {
	testCases := []struct {
		key   Key
		digit byte
	}{
		{Key1, '1'},
		{Key1 + 4, '5'},
		{Key1 + 8, '9'},
		{Key0, '0'},
	}
	for _, tc := range testCases {
		t.Run(string(tc.digit), func(t *testing.T) {
			require.True(t, tc.key.IsDigit())
			require.Equal(t, tc.digit, tc.key.Digit())
		})
	}
	require.False(t, KeyQ.IsDigit())
	require.False(t, BluetoothPairing.IsDigit())
}

func TestState(t *testing.T) {
	require.True(t, IsPressed.ToggledOn())
	require.False(t, (IsPressed | WasPressed).ToggledOn())
	require.True(t, (IsPressed | WasPressed).Pressed())
	require.True(t, WasPressed.ToggledOff())
	require.True(t, WasPressed.WasDown())
}

type cycle struct {
	now time.Time
}

func (c *cycle) Time() time.Time           { return c.now }
func (c *cycle) Context() context.Context  { return context.Background() }
func (c *cycle) PriorityLevel() int        { return fx.PrLvComm + 1 }
func (c *cycle) Messages() fx.MessageStore { return nil }
func (c *cycle) PostMessage(fx.Message)    {}
func (c *cycle) TriggerNext()              {}
func (c *cycle) Yield()                    {}

func TestScanner(t *testing.T) {
	var events []Event
	s := NewScanner(DefaultLayout(), HandlerFunc(func(ev *Event) Result {
		events = append(events, *ev)
		return Continue
	}))
	var cb comm.Callbacks
	s.BindTo(&cb)
	cc := &cycle{now: time.Now()}

	// right half, row 0, second column: key 6 at column 10
	pkt := comm.NewPacket(comm.KeyscannerDefyRight, comm.HasKeys, 0x04, 0, 0, 0, 0)
	cb.Call(context.Background(), &pkt)
	require.NoError(t, s.Control(cc))
	require.Len(t, events, 1)
	require.Equal(t, Addr{Row: 0, Col: 10}, events[0].Addr)
	require.Equal(t, Key1+5, events[0].Key)
	require.True(t, events[0].State.ToggledOn())

	require.NoError(t, s.Control(cc))
	require.Len(t, events, 2)
	require.Equal(t, IsPressed|WasPressed, events[1].State)

	pkt = comm.NewPacket(comm.KeyscannerDefyRight, comm.Disconnected)
	cb.Call(context.Background(), &pkt)
	require.NoError(t, s.Control(cc))
	require.Len(t, events, 3)
	require.True(t, events[2].State.ToggledOff())

	require.NoError(t, s.Control(cc))
	require.Len(t, events, 3)
}

func TestDispatcherStopsOnConsumed(t *testing.T) {
	var calls int
	count := HandlerFunc(func(*Event) Result { calls++; return Continue })
	consume := HandlerFunc(func(*Event) Result { calls++; return Consumed })
	d := (&Dispatcher{}).Register(count, consume, count)
	require.Equal(t, Consumed, d.HandleKey(&Event{}))
	require.Equal(t, 2, calls)
}
