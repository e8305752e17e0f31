package comm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallbacksOrder(t *testing.T) {
	var cb Callbacks
	var calls []string
	cb.BindFunc(Connected, func(_ context.Context, p *Packet) {
		calls = append(calls, "battery")
		p.Command = BatterySaving
	})
	cb.BindFunc(Connected, func(_ context.Context, p *Packet) {
		require.Equal(t, Connected, p.Command)
		calls = append(calls, "upgrade")
	})
	cb.BindFunc(Disconnected, func(context.Context, *Packet) {
		calls = append(calls, "other")
	})
	require.Equal(t, 2, cb.Count(Connected))

	pkt := NewPacket(KeyscannerDefyLeft, Connected)
	require.Equal(t, 2, cb.Call(context.Background(), &pkt))
	require.Equal(t, []string{"battery", "upgrade"}, calls)
	require.Equal(t, Connected, pkt.Command)

	pkt.Command = Sleep
	require.Equal(t, 0, cb.Call(context.Background(), &pkt))
}
