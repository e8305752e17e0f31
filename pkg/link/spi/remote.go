package spi

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/link"
)

// RemoteConn is a Conn tunnelled over a PacketReadWriter: every transfer
// writes the master frame and reads back the slave frame.
type RemoteConn struct {
	RW link.PacketReadWriter
}

// Tx implements Conn.
func (c *RemoteConn) Tx(w, r []byte) error {
	if err := c.RW.WritePacket(w); err != nil {
		return err
	}
	reply, err := c.RW.ReadPacket()
	if err != nil {
		return err
	}
	if len(reply) != comm.PacketSize {
		return fmt.Errorf("spi: reply of %d bytes", len(reply))
	}
	copy(r, reply)
	return nil
}

// Close closes the tunnel if it can be closed.
func (c *RemoteConn) Close() error {
	if closer, ok := c.RW.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Serve lets a remote master drive the slave, the peer end of RemoteConn.
func (s *SimSlave) Serve(ctx context.Context, rw link.PacketReadWriter) error {
	serve := func() error {
		r := make([]byte, comm.PacketSize)
		for {
			w, err := rw.ReadPacket()
			if err != nil {
				return err
			}
			if len(w) != comm.PacketSize {
				glog.Warningf("spi: dropped frame of %d bytes", len(w))
				continue
			}
			if err := s.Tx(w, r); err != nil {
				return err
			}
			if err := rw.WritePacket(append([]byte(nil), r...)); err != nil {
				return err
			}
		}
	}
	if closer, ok := rw.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, serve)
	}
	return serve()
}
