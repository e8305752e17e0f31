package rf

import (
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/link"
)

type chanReadWriter struct {
	in  chan []byte
	out chan []byte
}

func newChanReadWriter() *chanReadWriter {
	return &chanReadWriter{in: make(chan []byte, 8), out: make(chan []byte, 8)}
}

func (c *chanReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-c.in
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

func (c *chanReadWriter) WritePacket(pkt []byte) error {
	c.out <- pkt
	return nil
}

func poll(pipe Pipe, pkt comm.Packet) []byte {
	return append([]byte{byte(pipe)}, pkt.Bytes()...)
}

func TestGatewayServesOpenPipes(t *testing.T) {
	g := NewGateway(nil, link.Identity(comm.RFNeuronDefy))
	left, err := g.OpenPipe(PipeKeyscannerLeft)
	require.NoError(t, err)

	keepAlive := comm.NewPacket(comm.RFDefyLeft, comm.IsAlive)
	require.Nil(t, g.HandleFrame(poll(PipeKeyscannerLeft, keepAlive)), "disabled gateway answers")

	g.Enable()
	reply := g.HandleFrame(poll(PipeKeyscannerLeft, keepAlive))
	require.Len(t, reply, 1+comm.PacketSize)
	require.Equal(t, byte(PipeKeyscannerLeft), reply[0])
	var out comm.Packet
	require.NoError(t, out.Decode(reply[1:]))
	require.Equal(t, comm.RFNeuronDefy, out.Device)
	require.Equal(t, comm.IsAlive, out.Command)

	require.Nil(t, g.HandleFrame(poll(PipeKeyscannerRight, keepAlive)))
	require.Nil(t, g.HandleFrame([]byte{1, 2}))
	rx, _ := left.Pending()
	require.Equal(t, 1, rx)

	_, err = g.OpenPipe(PipeControl)
	require.Error(t, err)
}

func TestGatewayPushesSettings(t *testing.T) {
	rw := newChanReadWriter()
	g := NewGateway(rw, link.Identity(comm.RFNeuronDefy))
	g.SetAddress(0x11223344)
	g.SetTxPower(TxPower4dBm)
	g.Enable()
	require.NoError(t, g.Poll())
	require.Len(t, rw.out, 3)
	addr := <-rw.out
	require.Equal(t, []byte{0, OpAddress}, addr[:2])
	require.Equal(t, uint32(0x11223344), binary.LittleEndian.Uint32(addr[2:]))
	require.Equal(t, []byte{0, OpTxPower, 4}, <-rw.out)
	require.Equal(t, []byte{0, OpEnable, 1}, <-rw.out)

	// nothing changed
	require.NoError(t, g.Poll())
	require.Empty(t, rw.out)
	g.SetTxPower(TxPower4dBm)
	require.NoError(t, g.Poll())
	require.Empty(t, rw.out)
}

func TestGatewayRun(t *testing.T) {
	rw := newChanReadWriter()
	g := NewGateway(rw, link.Identity(comm.RFNeuronDefy))
	right, err := g.OpenPipe(PipeKeyscannerRight)
	require.NoError(t, err)
	g.Enable()
	pending := comm.NewPacket(comm.RFDefyRight, comm.BatterySaving, 1)
	require.True(t, right.SendPacket(&pending))

	errCh := make(chan error, 1)
	go func() { errCh <- g.Run(context.Background()) }()
	rw.in <- poll(PipeKeyscannerRight, comm.NewPacket(comm.RFDefyRight, comm.IsAlive))
	reply := <-rw.out
	var out comm.Packet
	require.NoError(t, out.Decode(reply[1:]))
	require.Equal(t, comm.BatterySaving, out.Command)
	close(rw.in)
	require.Equal(t, io.EOF, <-errCh)
}

func TestSuggestAddress(t *testing.T) {
	a := SuggestAddress("node-a")
	require.Equal(t, a, SuggestAddress("node-a"))
	require.NotEqual(t, a, SuggestAddress("node-b"))
	require.NotZero(t, a)
}
