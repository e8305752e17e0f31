// Package rf implements the RF gateway: pipes to the keyboard halves
// carried by a radio bridge reachable over a PacketReadWriter.
package rf

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/link"
)

// Pipe is a logical radio channel. Pipe 0 carries gateway control.
type Pipe byte

// Pipes
const (
	PipeControl         Pipe = 0
	PipeKeyscannerLeft  Pipe = 1
	PipeKeyscannerRight Pipe = 2

	numPipes = 3
)

// PipeOf returns the pipe of a side.
func PipeOf(side comm.Side) Pipe {
	if side == comm.SideRight {
		return PipeKeyscannerRight
	}
	return PipeKeyscannerLeft
}

// TxPower is the transmit power in dBm.
type TxPower int8

// Supported transmit powers.
const (
	TxPower0dBm TxPower = 0
	TxPower4dBm TxPower = 4
	TxPower8dBm TxPower = 8
)

// Control operations sent on PipeControl.
const (
	OpAddress byte = iota + 1
	OpTxPower
	OpEnable
)

// Gateway owns the pipe ports and the radio settings. The radio bridge
// polls a pipe by sending [pipe, packet...]; the reply has the same shape.
type Gateway struct {
	RW link.PacketReadWriter

	identity link.IdentityFunc
	ports    [numPipes]*link.Port

	address uint32
	power   TxPower
	enabled bool
	changed bool
	lock    sync.Mutex

	writeLock sync.Mutex
}

// NewGateway creates a disabled gateway without open pipes.
func NewGateway(rw link.PacketReadWriter, identity link.IdentityFunc) *Gateway {
	return &Gateway{RW: rw, identity: identity}
}

// SuggestAddress derives a stable pairing address from the node ID.
// 0 and all-ones are never returned.
func SuggestAddress(nodeID string) uint32 {
	h := fnv.New32a()
	io.WriteString(h, nodeID)
	addr := h.Sum32()
	if addr == 0 || addr == 0xffffffff {
		addr ^= 0x5a5a5a5a
	}
	return addr
}

// SetAddress sets the pairing address.
func (g *Gateway) SetAddress(addr uint32) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.changed = g.changed || g.address != addr
	g.address = addr
}

// Address returns the pairing address.
func (g *Gateway) Address() uint32 {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.address
}

// SetTxPower sets the transmit power.
func (g *Gateway) SetTxPower(power TxPower) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.changed = g.changed || g.power != power
	g.power = power
}

// TxPower returns the transmit power.
func (g *Gateway) TxPower() TxPower {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.power
}

// Enable starts serving polls.
func (g *Gateway) Enable() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.changed = g.changed || !g.enabled
	g.enabled = true
}

// Enabled reports whether polls are served.
func (g *Gateway) Enabled() bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.enabled
}

// OpenPipe opens a data pipe and returns its port.
func (g *Gateway) OpenPipe(pipe Pipe) (*link.Port, error) {
	if pipe == PipeControl || pipe >= numPipes {
		return nil, fmt.Errorf("invalid pipe %d", pipe)
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.ports[pipe] == nil {
		g.ports[pipe] = link.NewPort(fmt.Sprintf("rf/%d", pipe), link.WithIdentity(g.identity))
	}
	return g.ports[pipe], nil
}

// Port returns the port of an open pipe, nil otherwise.
func (g *Gateway) Port(pipe Pipe) *link.Port {
	if pipe >= numPipes {
		return nil
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.ports[pipe]
}

// Poll pushes changed settings to the radio bridge.
func (g *Gateway) Poll() error {
	g.lock.Lock()
	if !g.changed || g.RW == nil {
		g.lock.Unlock()
		return nil
	}
	g.changed = false
	frames := [][]byte{
		append([]byte{byte(PipeControl), OpAddress}, binary.LittleEndian.AppendUint32(nil, g.address)...),
		{byte(PipeControl), OpTxPower, byte(g.power)},
		{byte(PipeControl), OpEnable, boolByte(g.enabled)},
	}
	g.lock.Unlock()
	for _, frame := range frames {
		if err := g.write(frame); err != nil {
			return err
		}
	}
	glog.V(2).Info("rf gateway settings pushed")
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (g *Gateway) write(frame []byte) error {
	g.writeLock.Lock()
	defer g.writeLock.Unlock()
	return g.RW.WritePacket(frame)
}

// Name implements fx.Named.
func (g *Gateway) Name() string {
	return "rf-gateway"
}

// Run implements fx.Runnable by serving polls from the radio bridge.
func (g *Gateway) Run(ctx context.Context) error {
	if g.RW == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	if closer, ok := g.RW.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, g.serve)
	}
	return g.serve()
}

func (g *Gateway) serve() error {
	for {
		frame, err := g.RW.ReadPacket()
		if err != nil {
			return err
		}
		if reply := g.HandleFrame(frame); reply != nil {
			if err := g.write(reply); err != nil {
				return err
			}
		}
	}
}

// HandleFrame completes a poll on the addressed pipe and returns the reply
// frame, nil if the frame is dropped.
func (g *Gateway) HandleFrame(frame []byte) []byte {
	if len(frame) < 1+comm.PacketSize {
		glog.V(3).Infof("rf: short frame of %d bytes", len(frame))
		return nil
	}
	pipe := Pipe(frame[0])
	if !g.Enabled() {
		return nil
	}
	port := g.Port(pipe)
	if port == nil {
		glog.V(3).Infof("rf: pipe %d not open", pipe)
		return nil
	}
	reply := port.Complete(frame[1:])
	return append([]byte{byte(pipe)}, reply...)
}
