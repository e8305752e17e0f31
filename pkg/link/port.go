package link

import (
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
)

// IdentityFunc returns the device stamped on keep-alive replies.
type IdentityFunc func() comm.Device

// Identity returns an IdentityFunc of a fixed device.
func Identity(dev comm.Device) IdentityFunc {
	return func() comm.Device { return dev }
}

// PortOption configures a Port.
type PortOption func(*Port)

// WithCRC enables checksum validation of received packets and sealing of
// replies.
func WithCRC() PortOption {
	return func(p *Port) { p.crc = true }
}

// WithIdentity sets the keep-alive identity.
func WithIdentity(fn IdentityFunc) PortOption {
	return func(p *Port) { p.identity = fn }
}

// PortStats counts completions.
type PortStats struct {
	Completions uint64
	Received    uint64
	CRCErrors   uint64
	Overflows   uint64
}

// Port is the poll responder shared by every link. The peer polls; each
// poll hands over one received packet and takes one reply. Complete is the
// completion handler; ReadPacket and SendPacket are the main loop side.
type Port struct {
	name     string
	identity IdentityFunc
	crc      bool

	rx, tx *comm.Queue

	// scratch, guarded by lock
	in, out comm.Packet
	txBuf   [comm.PacketSize]byte
	lock    sync.Mutex

	completions, received, crcErrors, overflows uint64
}

// NewPort creates a Port.
func NewPort(name string, opts ...PortOption) *Port {
	p := &Port{
		name:     name,
		identity: Identity(comm.DeviceUnknown),
		rx:       comm.NewPacketQueue(),
		tx:       comm.NewPacketQueue(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the port name.
func (p *Port) Name() string {
	return p.name
}

// Arm prepares the reply for the first poll.
func (p *Port) Arm() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.prepare()
	return p.txBuf[:]
}

// Complete harvests a finished transfer and returns the buffer to clock out
// on the next one. The returned buffer is valid until the next call.
func (p *Port) Complete(rx []byte) []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	atomic.AddUint64(&p.completions, 1)

	if len(rx) >= comm.PacketSize {
		p.in.Decode(rx)
		switch {
		case p.crc && p.in.Verify() != nil:
			atomic.AddUint64(&p.crcErrors, 1)
			glog.V(3).Infof("%s: crc mismatch, dropped %v", p.name, p.in)
		case !p.rx.PutPacket(&p.in):
			atomic.AddUint64(&p.overflows, 1)
			glog.V(3).Infof("%s: rx queue full, dropped %v", p.name, p.in)
		default:
			atomic.AddUint64(&p.received, 1)
		}
	}
	p.in.Reset()
	p.prepare()
	return p.txBuf[:]
}

func (p *Port) prepare() {
	if !p.tx.GetPacket(&p.out) {
		p.out.Device = p.identity()
		p.out.Command = comm.IsAlive
	}
	p.out.HasMorePackets = !p.tx.IsEmpty()
	p.out.CRC = 0
	if p.crc {
		p.out.Seal()
	}
	p.out.Encode(p.txBuf[:])
}

// ReadPacket implements comm.Transport.
func (p *Port) ReadPacket(pkt *comm.Packet) bool {
	return p.rx.GetPacket(pkt)
}

// SendPacket implements comm.Transport.
func (p *Port) SendPacket(pkt *comm.Packet) bool {
	return p.tx.PutPacket(pkt)
}

// ClearSend drops every queued outbound packet.
func (p *Port) ClearSend() {
	for p.tx.RemoveOne() > 0 {
	}
}

// ClearRead drops every queued inbound packet.
func (p *Port) ClearRead() {
	for p.rx.RemoveOne() > 0 {
	}
}

// Pending returns queued inbound and outbound packet counts.
func (p *Port) Pending() (rx, tx int) {
	return p.rx.NumItems(), p.tx.NumItems()
}

// Stats returns the counters.
func (p *Port) Stats() PortStats {
	return PortStats{
		Completions: atomic.LoadUint64(&p.completions),
		Received:    atomic.LoadUint64(&p.received),
		CRCErrors:   atomic.LoadUint64(&p.crcErrors),
		Overflows:   atomic.LoadUint64(&p.overflows),
	}
}
