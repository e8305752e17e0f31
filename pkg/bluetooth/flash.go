package bluetooth

import (
	"bytes"
	"fmt"
)

// Record geometry.
const (
	Channels   = 5
	AddressLen = 6
	NameLen    = 32
)

// DefaultDeviceName is advertised until the host renames the keyboard.
const DefaultDeviceName = "Dygma Defy"

// PeerID is a bond table entry of the stack.
type PeerID uint16

// PeerInvalid marks an empty entry.
const PeerInvalid PeerID = 0xFFFF

// Address is a BLE device address.
type Address [AddressLen]byte

// Name is a zero padded device name.
type Name [NameLen]byte

// MakeName truncates s into a Name.
func MakeName(s string) (n Name) {
	copy(n[:], s)
	return
}

func (n Name) String() string {
	if i := bytes.IndexByte(n[:], 0); i >= 0 {
		return string(n[:i])
	}
	return string(n[:])
}

// Connection is what's remembered about the host paired on a channel.
type Connection struct {
	Peer    PeerID
	Address Address
	Name    Name
}

// Valid reports a paired host.
func (c Connection) Valid() bool {
	return c.Peer != PeerInvalid
}

// Reset forgets the host.
func (c *Connection) Reset() {
	c.Peer = PeerInvalid
	for i := range c.Address {
		c.Address[i] = 0xFF
	}
	c.Name = Name{}
}

func (c Connection) String() string {
	if !c.Valid() {
		return "-"
	}
	a := c.Address
	return fmt.Sprintf("%d %02x:%02x:%02x:%02x:%02x:%02x %s",
		c.Peer, a[5], a[4], a[3], a[2], a[1], a[0], c.Name)
}

// FlashData is the persisted record, stored little endian in the order
// of the fields.
type FlashData struct {
	Connections    [Channels]Connection
	DeviceName     Name
	CurrentChannel uint8
	ForceBle       bool
}

// Reset restores factory state.
func (d *FlashData) Reset() {
	for i := range d.Connections {
		d.Connections[i].Reset()
	}
	d.CurrentChannel = 0
	d.ForceBle = false
	d.DeviceName = MakeName(DefaultDeviceName)
}

// Current returns the connection of the current channel.
func (d *FlashData) Current() *Connection {
	return &d.Connections[d.CurrentChannel]
}
