package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/link"
)

func TestBridgeOverWebsocket(t *testing.T) {
	port := link.NewPort("ble", link.WithIdentity(link.Identity(comm.BLENeuronDefy)))
	pending := comm.NewPacket(comm.BLEDefyLeft, comm.BatterySaving, 1)
	require.True(t, port.SendPacket(&pending))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		link.NewBridge(New(conn), port).Run(ctx)
	}))
	defer srv.Close()

	rw, err := Dial("ws"+strings.TrimPrefix(srv.URL, "http"), srv.URL)
	require.NoError(t, err)
	defer rw.Close()

	poll := comm.NewPacket(comm.BLEDefyLeft, comm.BatteryLevel, 90, 0, 0)
	require.NoError(t, rw.WritePacket(poll.Bytes()))
	reply, err := rw.ReadPacket()
	require.NoError(t, err)

	var out comm.Packet
	require.NoError(t, out.Decode(reply))
	require.Equal(t, comm.BatterySaving, out.Command)
	require.Equal(t, []byte{1}, out.Payload())
	require.False(t, out.HasMorePackets)

	var in comm.Packet
	require.True(t, port.ReadPacket(&in))
	require.Equal(t, comm.BatteryLevel, in.Command)
}
