package link

import (
	"context"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/neuron.go/pkg/framework"
)

// Bridge serves a Port to a peer reachable over a PacketReadWriter.
// Every frame from the peer is a poll; the reply is written back at once.
type Bridge struct {
	RW   PacketReadWriter
	Port *Port
}

// NewBridge creates a Bridge.
func NewBridge(rw PacketReadWriter, port *Port) *Bridge {
	return &Bridge{RW: rw, Port: port}
}

// Name implements fx.Named.
func (b *Bridge) Name() string {
	return "bridge/" + b.Port.Name()
}

// Run implements fx.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	if closer, ok := b.RW.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, b.serve)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- b.serve() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (b *Bridge) serve() error {
	for {
		frame, err := b.RW.ReadPacket()
		if err != nil {
			return err
		}
		reply := b.Port.Complete(frame)
		if err := b.RW.WritePacket(append([]byte(nil), reply...)); err != nil {
			return err
		}
		glog.V(4).Infof("%s: poll served", b.Port.Name())
	}
}
