package ble

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/comm"
)

type oneShot struct {
	frames [][]byte
	out    [][]byte
}

func (s *oneShot) ReadPacket() ([]byte, error) {
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *oneShot) WritePacket(pkt []byte) error {
	s.out = append(s.out, pkt)
	return nil
}

func TestServe(t *testing.T) {
	l := New()
	require.False(t, l.Connected())
	keepAlive := comm.NewPacket(comm.BLEDefyRight, comm.IsAlive)
	rw := &oneShot{frames: [][]byte{keepAlive.Bytes(), keepAlive.Bytes()}}
	require.Equal(t, io.EOF, l.Serve(context.Background(), rw))
	require.Len(t, rw.out, 2)
	var reply comm.Packet
	require.NoError(t, reply.Decode(rw.out[0]))
	require.Equal(t, comm.BLENeuronDefy, reply.Device)
	require.False(t, l.Connected())
	rx, _ := l.Pending()
	require.Equal(t, 2, rx)
}
