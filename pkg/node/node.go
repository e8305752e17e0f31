// Package node assembles the board: storage, links, router, subsystem
// handlers and the main loop.
package node

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/battery"
	"github.com/robotalks/neuron.go/pkg/bluetooth"
	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/energy"
	"github.com/robotalks/neuron.go/pkg/focus"
	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/hw"
	"github.com/robotalks/neuron.go/pkg/keys"
	"github.com/robotalks/neuron.go/pkg/link"
	"github.com/robotalks/neuron.go/pkg/link/ble"
	"github.com/robotalks/neuron.go/pkg/link/mqtt"
	"github.com/robotalks/neuron.go/pkg/link/rf"
	"github.com/robotalks/neuron.go/pkg/link/spi"
	"github.com/robotalks/neuron.go/pkg/link/stream"
	"github.com/robotalks/neuron.go/pkg/radio"
	"github.com/robotalks/neuron.go/pkg/store"
	"github.com/robotalks/neuron.go/pkg/telemetry"
	"github.com/robotalks/neuron.go/pkg/upgrade"
	"github.com/robotalks/neuron.go/pkg/version"
)

// ErrWatchdog is the reset cause when the loop stalls.
var ErrWatchdog = errors.New("watchdog expired")

// ResetError ends Run when the node resets. It matches fx.ErrReset and
// unwraps to the cause.
type ResetError struct {
	Cause error
}

func (e *ResetError) Error() string {
	return "reset: " + e.Cause.Error()
}

// Is implements errors.Is.
func (e *ResetError) Is(target error) bool {
	return target == fx.ErrReset
}

// Unwrap implements errors.Unwrap.
func (e *ResetError) Unwrap() error {
	return e.Cause
}

// Option provides a dependency of the node.
type Option func(*Node)

// WithFlash uses an opened flash instead of Config.FlashURL.
// A flash outliving the node keeps its content across resets.
func WithFlash(f store.Flash) Option {
	return func(n *Node) { n.flash = f }
}

// WithStack sets the BLE stack. A SimStack is used by default.
func WithStack(s bluetooth.Stack) Option {
	return func(n *Node) { n.stack = s }
}

// WithSPIDriver sets the slave driver of a side. A SimSlave is used by
// default.
func WithSPIDriver(side comm.Side, d spi.SlaveDriver) Option {
	return func(n *Node) { n.spiDrivers[side] = d }
}

// WithSideLines sets the side reset lines.
func WithSideLines(l upgrade.SideReset) Option {
	return func(n *Node) { n.lines = l }
}

// WithQueue uses a connected MQTT queue for the RF bridge and telemetry.
func WithQueue(q *mqtt.Queue) Option {
	return func(n *Node) { n.queue = q }
}

// WithHID sets the host keyboard.
func WithHID(h hw.HID) Option {
	return func(n *Node) { n.HID = h }
}

// WithClock overrides the loop clock.
func WithClock(fn func() time.Time) Option {
	return func(n *Node) { n.Loop.Clock = fn }
}

// Node is one board.
type Node struct {
	Config Config
	Loop   *fx.Loop
	Store  *store.Store
	Router *comm.Router
	HID    hw.HID

	SPI      [2]*spi.Port
	Gateway  *rf.Gateway
	BLE      *ble.Link
	Watchdog *hw.Watchdog

	Keys      keys.Dispatcher
	Scanner   *keys.Scanner
	Commands  focus.Dispatcher
	Focus     *focus.Server
	Telemetry *telemetry.Reporter

	Version   *version.Handler
	Upgrade   *upgrade.Handler
	Energy    *energy.Manager
	Battery   *battery.Manager
	Radio     *radio.Manager
	Bluetooth *bluetooth.Manager

	flash      store.Flash
	stack      bluetooth.Stack
	spiDrivers [2]spi.SlaveDriver
	lines      upgrade.SideReset
	queue      *mqtt.Queue
	rfRW       *mqtt.ReadWriter

	wired       [2]bool
	modeDecided bool
	started     time.Time

	lock   sync.Mutex
	cancel context.CancelCauseFunc
}

// New sets the node up: handlers load their settings, links are attached
// to the router and the loop is wired.
func New(cfg Config, opts ...Option) (*Node, error) {
	n := &Node{
		Config: cfg,
		Loop:   fx.NewLoop(),
		Router: comm.NewRouter(),
		HID:    hw.NopHID{},
	}
	if cfg.Interval > 0 {
		n.Loop.Interval = cfg.Interval
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.setupStore(); err != nil {
		return nil, err
	}
	if n.stack == nil {
		n.stack = bluetooth.NewSimStack()
	}
	for side := range n.spiDrivers {
		if n.spiDrivers[side] == nil {
			n.spiDrivers[side] = &spi.SimSlave{}
		}
	}
	if n.queue != nil {
		n.rfRW = mqtt.NewPacketReadWriter(n.queue).ForNode(cfg.NodeID, "rf")
		n.Gateway = rf.NewGateway(n.rfRW, link.Identity(comm.RFNeuronDefy))
	} else {
		n.Gateway = rf.NewGateway(nil, link.Identity(comm.RFNeuronDefy))
	}
	n.BLE = ble.New()

	n.Version = &version.Handler{Version: cfg.Version}
	n.Energy = &energy.Manager{}
	n.Bluetooth = bluetooth.New(n.stack, n.Router, hw.ResetFunc(n.Reset))
	n.Bluetooth.HID = n.HID
	n.Bluetooth.Wired = n.Wired
	n.Battery = battery.New(n.Router, n.Bluetooth)
	n.Radio = radio.New(n.Gateway, n.Router, cfg.NodeID)

	for _, s := range []interface{ Setup(*store.Store) error }{n.Energy, n.Battery, n.Radio, n.Bluetooth} {
		if err := s.Setup(n.Store); err != nil {
			return nil, err
		}
	}
	if err := n.setupLinks(); err != nil {
		return nil, err
	}

	n.Upgrade = &upgrade.Handler{
		Lines:    n.lines,
		Ports:    [2]upgrade.Queues{n.SPI[comm.SideLeft], n.SPI[comm.SideRight]},
		Flush:    n.Store.Flush,
		Resetter: hw.ResetFunc(n.Reset),
	}
	n.Keys.Register(n.Battery, n.Energy, n.Bluetooth)
	n.Scanner = keys.NewScanner(keys.DefaultLayout(), &n.Keys)

	cb := &n.Router.Callbacks
	n.Battery.BindTo(cb)
	n.Upgrade.BindTo(cb)
	n.Scanner.BindTo(cb)
	cb.BindFunc(comm.Connected, n.onConnected)
	cb.BindFunc(comm.Disconnected, n.onDisconnected)

	n.Commands.Register(n.Version, n.Upgrade, n.Energy, n.Battery, n.Radio, n.Bluetooth)
	n.Focus = focus.NewServer(&n.Commands, n.Loop)
	n.Watchdog = hw.NewWatchdog(cfg.WatchdogTimeout, func() { n.Reset(ErrWatchdog) })
	if n.queue != nil {
		n.Telemetry = telemetry.NewReporter(n.queue, cfg.NodeID, n.Status)
	}
	n.wireLoop()
	return n, nil
}

func (n *Node) setupStore() error {
	size := n.Config.FlashSize
	if size <= 0 {
		size = store.MaxSize
	}
	if n.flash == nil {
		url := n.Config.FlashURL
		if url == "" {
			url = DefaultFlashURL
		}
		f, err := store.OpenFlash(url, size)
		if err != nil {
			return err
		}
		n.flash = f
	}
	st, err := store.Open(n.flash, size, store.WithClock(n.Loop), store.WithYield(n.Loop.Yield))
	if err != nil {
		return err
	}
	n.Store = st
	return nil
}

// identity is what the board answers keep-alives with.
func (n *Node) identity() comm.Device {
	if n.stack.Inited() {
		return comm.BLENeuronDefy
	}
	return comm.NeuronDefy
}

func (n *Node) setupLinks() error {
	for _, side := range []comm.Side{comm.SideLeft, comm.SideRight} {
		p := spi.NewPort(spi.DefaultConfig(side), n.spiDrivers[side], n.identity, n.fault)
		if err := p.Init(); err != nil {
			return err
		}
		n.SPI[side] = p
	}
	pipes := [2]*link.Port{}
	for _, side := range []comm.Side{comm.SideLeft, comm.SideRight} {
		p, err := n.Gateway.OpenPipe(rf.PipeOf(side))
		if err != nil {
			return err
		}
		pipes[side] = p
	}
	attach := []struct {
		name string
		t    comm.Transport
		devs []comm.Device
	}{
		{"spi/left", n.SPI[comm.SideLeft], []comm.Device{comm.KeyscannerDefyLeft}},
		{"spi/right", n.SPI[comm.SideRight], []comm.Device{comm.KeyscannerDefyRight}},
		{"rf/left", pipes[comm.SideLeft], []comm.Device{comm.RFDefyLeft}},
		{"rf/right", pipes[comm.SideRight], []comm.Device{comm.RFDefyRight}},
		{"ble", n.BLE, []comm.Device{comm.BLEDefyLeft, comm.BLEDefyRight}},
	}
	for _, a := range attach {
		if err := n.Router.Attach(a.name, a.t, comm.ForDevices(a.devs...)); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) wireLoop() {
	l := n.Loop
	l.Add(n.Watchdog)
	l.AddController(fx.PrLvBeforeCycle, fx.ControlFunc(n.selectMode))
	l.AddController(fx.PrLvBeforeCycle, fx.ControlFunc(func(fx.ControlContext) error {
		return n.Radio.Poll()
	}))
	l.Add(n.Bluetooth, n.Focus, n.Router, n.Scanner)
	if n.Telemetry != nil {
		l.Add(n.Telemetry)
	}
	l.AddController(fx.PrLvPersist, fx.ControlFunc(func(fx.ControlContext) error {
		return n.Store.RunPeriodic(n.Config.PersistInterval)
	}))
	l.AddServiceTick(func() {
		if err := n.HID.Flush(); err != nil {
			glog.V(2).Infof("hid flush: %v", err)
		}
	})
}

func (n *Node) onConnected(_ context.Context, pkt *comm.Packet) {
	switch pkt.Device {
	case comm.KeyscannerDefyLeft, comm.KeyscannerDefyRight:
		side, _ := comm.SideOf(pkt.Device)
		n.wired[side] = true
	}
}

func (n *Node) onDisconnected(_ context.Context, pkt *comm.Packet) {
	switch pkt.Device {
	case comm.KeyscannerDefyLeft, comm.KeyscannerDefyRight:
		side, _ := comm.SideOf(pkt.Device)
		n.wired[side] = false
	}
}

// Wired reports a half attached by cable.
func (n *Node) Wired() bool {
	return n.wired[comm.SideLeft] || n.wired[comm.SideRight]
}

// selectMode brings the wireless links up unless a half is wired within
// WiredWait. Forcing BLE skips the wait once.
func (n *Node) selectMode(cc fx.ControlContext) error {
	if n.modeDecided {
		return nil
	}
	now := cc.Time()
	if n.started.IsZero() {
		n.started = now
	}
	force := n.Bluetooth.ForceBle()
	if !force && !n.Wired() && now.Sub(n.started) < n.Config.WiredWait {
		return nil
	}
	n.modeDecided = true
	if !force && n.Wired() {
		glog.Info("wired mode")
		return nil
	}
	if force {
		n.Bluetooth.SetForceBle(false)
	}
	glog.Info("wireless mode")
	if err := n.Radio.Init(); err != nil {
		return err
	}
	return n.Bluetooth.Init()
}

func (n *Node) fault(err error) {
	glog.Errorf("fault: %v", err)
	n.Reset(err)
}

// Reset stops Run with a ResetError. Pending settings are flushed once
// the loop has stopped.
func (n *Node) Reset(cause error) {
	glog.Warningf("reset requested: %v", cause)
	n.lock.Lock()
	cancel := n.cancel
	n.lock.Unlock()
	if cancel != nil {
		cancel(&ResetError{Cause: cause})
	}
}

// Run runs the loop and the link servers until ctx is done or the node
// resets.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	n.lock.Lock()
	n.cancel = cancel
	n.lock.Unlock()
	defer cancel(nil)

	runner := fx.NewRunnerWith(ctx)
	runner.Go(n.servers()...)
	err := n.Loop.Run(ctx)
	cause := context.Cause(ctx)
	cancel(nil)
	if werr := runner.Wait(); werr != nil {
		glog.V(2).Infof("servers stopped: %v", werr)
	}

	for _, p := range n.SPI {
		if derr := p.DeInit(); derr != nil {
			glog.Warningf("%s: %v", p.Name(), derr)
		}
	}
	n.Store.WaitIdle()
	if ferr := n.Store.Flush(); ferr != nil {
		glog.Errorf("flush: %v", ferr)
	}
	var reset *ResetError
	if errors.As(cause, &reset) {
		return reset
	}
	return err
}

func (n *Node) servers() []fx.Runnable {
	var runs []fx.Runnable
	for _, side := range []comm.Side{comm.SideLeft, comm.SideRight} {
		addr := n.Config.SPIListen[side]
		slave, ok := n.spiDrivers[side].(*spi.SimSlave)
		if addr == "" || !ok {
			continue
		}
		runs = append(runs, fx.NamedRun("spi/"+side.String(), fx.RunFunc(func(ctx context.Context) error {
			return serveSPI(ctx, addr, slave)
		})))
	}
	if n.rfRW != nil {
		runs = append(runs, fx.NamedRun("rf/mqtt", n.rfRW), n.Gateway)
	}
	if dev := n.Config.FocusSerial; dev != "" {
		baud := n.Config.FocusBaud
		if baud == 0 {
			baud = focus.DefaultBaudRate
		}
		runs = append(runs, fx.NamedRun("focus/serial", fx.RunFunc(func(ctx context.Context) error {
			return n.Focus.ServeSerial(ctx, dev, baud)
		})))
	}
	if addr := n.Config.FocusListen; addr != "" {
		runs = append(runs, fx.NamedRun("focus/tcp", fx.RunFunc(func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return n.Focus.ServeListener(ctx, ln)
		})))
	}
	if addr := n.Config.HTTPListen; addr != "" {
		runs = append(runs, fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
			mux := http.NewServeMux()
			mux.Handle("/focus", n.Focus.WebsocketHandler(ctx))
			mux.Handle("/ble", n.BLE.Handler(ctx))
			srv := &http.Server{Addr: addr, Handler: mux}
			glog.Infof("http: listening on %s", addr)
			return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		})))
	}
	return runs
}

// serveSPI lets one remote keyscanner master at a time drive the slave.
func serveSPI(ctx context.Context, addr string, slave *spi.SimSlave) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	glog.Infof("spi: listening on %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			err = slave.Serve(ctx, stream.New(conn))
			glog.Infof("spi: master %s gone: %v", conn.RemoteAddr(), err)
		}
	})
}
