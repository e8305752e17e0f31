package comm

import (
	"context"
	"sync"
)

// PacketHandler is called when a packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// PacketSender enqueues an outbound packet.
type PacketSender interface {
	SendPacket(*Packet) bool
}

// Callbacks maps commands to handlers. Several handlers may bind
// the same command; they are called in the order they were bound.
type Callbacks struct {
	handlers map[Command][]PacketHandler
	lock     sync.RWMutex
}

// Bind appends handlers for cmd.
func (c *Callbacks) Bind(cmd Command, handlers ...PacketHandler) {
	c.lock.Lock()
	if c.handlers == nil {
		c.handlers = make(map[Command][]PacketHandler)
	}
	c.handlers[cmd] = append(c.handlers[cmd], handlers...)
	c.lock.Unlock()
}

// BindFunc is Bind with a func.
func (c *Callbacks) BindFunc(cmd Command, fn func(context.Context, *Packet)) {
	c.Bind(cmd, HandlePacketFunc(fn))
}

// Count returns the number of handlers bound to cmd.
func (c *Callbacks) Count(cmd Command) int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.handlers[cmd])
}

// Call invokes every handler bound to the packet command. Each handler
// gets its own copy of the packet. It returns the number of handlers called.
func (c *Callbacks) Call(ctx context.Context, pkt *Packet) int {
	c.lock.RLock()
	handlers := c.handlers[pkt.Command]
	c.lock.RUnlock()
	for _, h := range handlers {
		p := *pkt
		h.HandlePacket(ctx, &p)
	}
	return len(handlers)
}
