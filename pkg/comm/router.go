package comm

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/neuron.go/pkg/framework"
)

// Transport is a link owning an inbound and an outbound packet queue.
type Transport interface {
	// ReadPacket dequeues one inbound packet, false if none.
	ReadPacket(*Packet) bool
	// SendPacket enqueues an outbound packet, false if the queue is full.
	SendPacket(*Packet) bool
}

// RouteOption configures an attached transport.
type RouteOption func(*route)

// ForDevices routes packets addressed to devs to the transport.
func ForDevices(devs ...Device) RouteOption {
	return func(r *route) {
		r.devices = append(r.devices, devs...)
	}
}

// NoBroadcast excludes the transport from UNKNOWN-device broadcasts.
func NoBroadcast() RouteOption {
	return func(r *route) {
		r.broadcast = false
	}
}

type route struct {
	name      string
	transport Transport
	devices   []Device
	broadcast bool
}

func (r *route) serves(dev Device) bool {
	for _, d := range r.devices {
		if d == dev {
			return true
		}
	}
	return false
}

// RouterStats counts router activity.
type RouterStats struct {
	Received   uint64
	Dispatched uint64
	Sent       uint64
	Dropped    uint64
}

// Router drains attached transports and dispatches packets to Callbacks.
type Router struct {
	Callbacks
	// MaxPerCycle bounds packets read from one transport in one Poll.
	MaxPerCycle int

	routes []*route
	lock   sync.RWMutex

	received, dispatched, sent, dropped uint64
}

// NewRouter creates a Router.
func NewRouter() *Router {
	return &Router{MaxPerCycle: DefaultQueueCapacity / PacketSize}
}

// Attach adds a transport. Transports are polled in attach order.
func (r *Router) Attach(name string, t Transport, opts ...RouteOption) error {
	rt := &route{name: name, transport: t, broadcast: true}
	for _, opt := range opts {
		opt(rt)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, existing := range r.routes {
		if existing.name == name {
			return ErrDuplicateTransport
		}
	}
	r.routes = append(r.routes, rt)
	glog.V(2).Infof("transport %s attached for %v", name, rt.devices)
	return nil
}

// Detach removes a transport by name.
func (r *Router) Detach(name string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	for n, rt := range r.routes {
		if rt.name == name {
			r.routes = append(r.routes[:n], r.routes[n+1:]...)
			glog.V(2).Infof("transport %s detached", name)
			return true
		}
	}
	return false
}

// Transport finds an attached transport.
func (r *Router) Transport(name string) Transport {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, rt := range r.routes {
		if rt.name == name {
			return rt.transport
		}
	}
	return nil
}

func (r *Router) snapshot() []*route {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]*route(nil), r.routes...)
}

// Poll drains each transport in attach order and dispatches packets.
// It returns the number of packets read.
func (r *Router) Poll(ctx context.Context) int {
	var pkt Packet
	var count int
	for _, rt := range r.snapshot() {
		for n := 0; r.MaxPerCycle <= 0 || n < r.MaxPerCycle; n++ {
			if !rt.transport.ReadPacket(&pkt) {
				break
			}
			count++
			atomic.AddUint64(&r.received, 1)
			if glog.V(4) {
				glog.Infof("RCV %s: %v", rt.name, pkt)
			}
			if r.Call(ctx, &pkt) > 0 {
				atomic.AddUint64(&r.dispatched, 1)
			}
		}
	}
	return count
}

// SendPacket routes by device. UNKNOWN goes to every broadcast transport.
// It returns true only if every selected transport accepted the packet.
func (r *Router) SendPacket(pkt *Packet) bool {
	var targets int
	ok := true
	for _, rt := range r.snapshot() {
		if pkt.Device == DeviceUnknown {
			if !rt.broadcast {
				continue
			}
		} else if !rt.serves(pkt.Device) {
			continue
		}
		targets++
		if !rt.transport.SendPacket(pkt) {
			glog.Warningf("drop %v: %s queue full", pkt, rt.name)
			atomic.AddUint64(&r.dropped, 1)
			ok = false
			continue
		}
		atomic.AddUint64(&r.sent, 1)
		if glog.V(4) {
			glog.Infof("SND %s: %v", rt.name, pkt)
		}
	}
	if targets == 0 {
		glog.Warningf("drop %v: no transport for device", pkt)
		atomic.AddUint64(&r.dropped, 1)
		return false
	}
	return ok
}

// Stats returns the counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		Received:   atomic.LoadUint64(&r.received),
		Dispatched: atomic.LoadUint64(&r.dispatched),
		Sent:       atomic.LoadUint64(&r.sent),
		Dropped:    atomic.LoadUint64(&r.dropped),
	}
}

// Control implements fx.Controller.
func (r *Router) Control(cc fx.ControlContext) error {
	r.Poll(cc.Context())
	return nil
}

// AddToLoop implements fx.LoopAdder.
func (r *Router) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvComm, r)
}
