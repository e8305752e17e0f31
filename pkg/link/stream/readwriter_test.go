package stream

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFraming(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.Error(t, err)
}

func TestOversizedFrame(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{0xff, 0xff, 0, 0}))
	_, err := rw.ReadPacket()
	require.Error(t, err)
}

func TestOverPipe(t *testing.T) {
	a, b := net.Pipe()
	ra, rb := New(a), New(b)
	defer ra.Close()
	defer rb.Close()
	go ra.WritePacket([]byte("poll"))
	pkt, err := rb.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("poll"), pkt)
}
