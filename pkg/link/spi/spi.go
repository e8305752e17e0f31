// Package spi binds the SPI slave peripherals facing the keyboard halves.
package spi

import (
	"fmt"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/spi"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/link"
)

// Config describes one SPI slave instance.
type Config struct {
	Instance int
	Side     comm.Side
	Mode     spi.Mode
	Bits     int
}

// DefaultConfig returns the configuration of the keyscanner facing slave
// of a side: instance 1 for left, 2 for right, CPOL=0 CPHA=1.
func DefaultConfig(side comm.Side) Config {
	return Config{Instance: int(side) + 1, Side: side, Mode: spi.Mode1, Bits: 8}
}

// SlaveDriver is the SPI slave peripheral. After Init, done is invoked
// once per finished transfer with the received bytes, and the driver
// clocks out the default character until SetBuffers arms it again.
type SlaveDriver interface {
	Init(cfg Config, done func(rx []byte)) error
	SetBuffers(tx []byte) error
	Uninit() error
}

// FaultError reports a driver failure.
type FaultError struct {
	Op       string
	Instance int
	Err      error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("spi%d %s: %v", e.Instance, e.Op, e.Err)
}

// Unwrap returns the driver error.
func (e *FaultError) Unwrap() error {
	return e.Err
}

// Port is a CRC-checked poll responder on an SPI slave.
type Port struct {
	*link.Port
	Config Config

	driver SlaveDriver
	fault  func(error)
}

// NewPort creates the port. identity is stamped on keep-alive replies;
// fault is called when the driver can't be armed.
func NewPort(cfg Config, driver SlaveDriver, identity link.IdentityFunc, fault func(error)) *Port {
	return &Port{
		Port: link.NewPort(
			fmt.Sprintf("spi/%s", cfg.Side),
			link.WithCRC(),
			link.WithIdentity(identity),
		),
		Config: cfg,
		driver: driver,
		fault:  fault,
	}
}

// Init initializes the driver and arms the first transfer.
func (p *Port) Init() error {
	if err := p.driver.Init(p.Config, p.onTransferDone); err != nil {
		return &FaultError{Op: "init", Instance: p.Config.Instance, Err: err}
	}
	if err := p.driver.SetBuffers(p.Arm()); err != nil {
		return &FaultError{Op: "set buffers", Instance: p.Config.Instance, Err: err}
	}
	glog.Infof("%s: listening on instance %d", p.Name(), p.Config.Instance)
	return nil
}

// DeInit releases the peripheral.
func (p *Port) DeInit() error {
	return p.driver.Uninit()
}

func (p *Port) onTransferDone(rx []byte) {
	tx := p.Complete(rx)
	if err := p.driver.SetBuffers(tx); err != nil {
		p.raise(&FaultError{Op: "set buffers", Instance: p.Config.Instance, Err: err})
	}
}

func (p *Port) raise(err error) {
	if p.fault != nil {
		p.fault(err)
		return
	}
	glog.Errorf("%s: %v", p.Name(), err)
}
