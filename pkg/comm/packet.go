package comm

import (
	"fmt"
	"io"
)

// Packet layout.
const (
	PacketSize  = 32
	HeaderSize  = 5
	MaxDataSize = PacketSize - HeaderSize
)

const flagHasMorePackets byte = 0x01

// Header is the fixed part of a Packet.
type Header struct {
	Device         Device
	Command        Command
	Size           byte
	HasMorePackets bool
	CRC            byte
}

// Packet is the fixed-size record exchanged on every link.
type Packet struct {
	Header
	Data [MaxDataSize]byte
}

// NewPacket creates a packet with payload.
func NewPacket(dev Device, cmd Command, data ...byte) Packet {
	p := Packet{Header: Header{Device: dev, Command: cmd}}
	p.SetPayload(data...)
	return p
}

// Len is the payload length, never beyond MaxDataSize.
func (p *Packet) Len() int {
	if n := int(p.Size); n <= MaxDataSize {
		return n
	}
	return MaxDataSize
}

// Payload returns data[0:size].
func (p *Packet) Payload() []byte {
	return p.Data[:p.Len()]
}

// SetPayload replaces the payload, truncating at MaxDataSize.
func (p *Packet) SetPayload(data ...byte) {
	n := copy(p.Data[:], data)
	for i := n; i < MaxDataSize; i++ {
		p.Data[i] = 0
	}
	p.Size = byte(n)
}

// Reset clears the packet.
func (p *Packet) Reset() {
	*p = Packet{}
}

func (p *Packet) encodeHeader(b []byte) {
	b[0], b[1], b[2] = byte(p.Device), byte(p.Command), p.Size
	b[3] = 0
	if p.HasMorePackets {
		b[3] |= flagHasMorePackets
	}
	b[4] = p.CRC
}

// Encode writes the packet into b which must hold PacketSize bytes.
func (p *Packet) Encode(b []byte) error {
	if len(b) < PacketSize {
		return ErrShortBuffer
	}
	p.encodeHeader(b)
	copy(b[HeaderSize:PacketSize], p.Data[:])
	return nil
}

// Decode reads the packet from b. An oversized size field is clamped.
func (p *Packet) Decode(b []byte) error {
	if len(b) < PacketSize {
		return ErrShortBuffer
	}
	p.Device, p.Command, p.Size = Device(b[0]), Command(b[1]), b[2]
	if p.Size > MaxDataSize {
		p.Size = MaxDataSize
	}
	p.HasMorePackets = b[3]&flagHasMorePackets != 0
	p.CRC = b[4]
	copy(p.Data[:], b[HeaderSize:PacketSize])
	return nil
}

// Bytes returns the encoded packet.
func (p *Packet) Bytes() []byte {
	b := make([]byte, PacketSize)
	p.Encode(b)
	return b
}

// WriteTo implements io.WriterTo.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	var b [PacketSize]byte
	p.Encode(b[:])
	n, err := w.Write(b[:])
	return int64(n), err
}

// Checksum computes CRC8 over the header with a zero crc field and the payload.
func (p *Packet) Checksum() byte {
	var h [HeaderSize]byte
	p.encodeHeader(h[:])
	h[4] = 0
	return CRC8(h[:], p.Payload())
}

// Seal stores the checksum into the header.
func (p *Packet) Seal() {
	p.CRC = p.Checksum()
}

// Verify checks the stored checksum.
func (p *Packet) Verify() error {
	if sum := p.Checksum(); sum != p.CRC {
		return &CRCError{Expected: sum, Actual: p.CRC}
	}
	return nil
}

func (p Packet) String() string {
	s := fmt.Sprintf("%s %s [% x]", p.Device, p.Command, p.Payload())
	if p.HasMorePackets {
		s += " +more"
	}
	return s
}
