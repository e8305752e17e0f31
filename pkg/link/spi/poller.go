package spi

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/robotalks/neuron.go/pkg/comm"
)

// DefaultPollInterval is the keyscanner poll period.
const DefaultPollInterval = 5 * time.Millisecond

// Conn is the master end of an SPI bus. periph.io spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// PollerStats counts poller activity.
type PollerStats struct {
	Transfers uint64
	Received  uint64
	CRCErrors uint64
}

// Poller plays the keyscanner: it is the SPI master polling a Port,
// sending its own packets and keep-alives, and re-polling at once while
// the reply says more packets are pending.
type Poller struct {
	Conn     Conn
	Device   comm.Device
	Interval time.Duration
	OnPacket func(*comm.Packet)

	out *comm.Queue

	transfers, received, crcErrors uint64
}

// NewPoller creates a Poller identifying as dev.
func NewPoller(conn Conn, dev comm.Device) *Poller {
	return &Poller{
		Conn:     conn,
		Device:   dev,
		Interval: DefaultPollInterval,
		out:      comm.NewPacketQueue(),
	}
}

// Send queues a packet for the next poll.
func (p *Poller) Send(pkt *comm.Packet) bool {
	return p.out.PutPacket(pkt)
}

// Poll performs transfers until the slave has nothing more pending.
// It returns the number of packets delivered to OnPacket.
func (p *Poller) Poll() (int, error) {
	var tx, rx [comm.PacketSize]byte
	var out, in comm.Packet
	var count int
	for n := 0; n <= comm.DefaultQueueCapacity/comm.PacketSize; n++ {
		if !p.out.GetPacket(&out) {
			out.Device, out.Command = p.Device, comm.IsAlive
		}
		out.HasMorePackets = !p.out.IsEmpty()
		out.CRC = 0
		out.Seal()
		out.Encode(tx[:])

		if err := p.Conn.Tx(tx[:], rx[:]); err != nil {
			return count, err
		}
		atomic.AddUint64(&p.transfers, 1)

		in.Decode(rx[:])
		if err := in.Verify(); err != nil {
			atomic.AddUint64(&p.crcErrors, 1)
			glog.V(3).Infof("poller %s: %v", p.Device, err)
			return count, nil
		}
		if in.Command != comm.IsAlive {
			atomic.AddUint64(&p.received, 1)
			count++
			if p.OnPacket != nil {
				pkt := in
				p.OnPacket(&pkt)
			}
		}
		if !in.HasMorePackets {
			break
		}
	}
	return count, nil
}

// Run implements fx.Runnable.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Poll(); err != nil {
				return err
			}
		}
	}
}

// Stats returns the counters.
func (p *Poller) Stats() PollerStats {
	return PollerStats{
		Transfers: atomic.LoadUint64(&p.transfers),
		Received:  atomic.LoadUint64(&p.received),
		CRCErrors: atomic.LoadUint64(&p.crcErrors),
	}
}

// PeriphConn is an SPI master connection opened through periph.io.
type PeriphConn struct {
	spi.Conn
	port spi.PortCloser
}

// OpenPeriph opens busPath (e.g. /dev/spidev0.0) in mode 1, 8 bits.
func OpenPeriph(busPath string, hz int64) (*PeriphConn, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	if busPath == "" {
		busPath = "/dev/spidev0.0"
	}
	if hz <= 0 {
		hz = 1000000
	}
	port, err := spireg.Open(busPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", busPath, err)
	}
	conn, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode1, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect %s: %w", busPath, err)
	}
	return &PeriphConn{Conn: conn, port: port}, nil
}

// Close implements io.Closer.
func (c *PeriphConn) Close() error {
	return c.port.Close()
}
