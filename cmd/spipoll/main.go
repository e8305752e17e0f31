// Command spipoll plays a keyscanner half against a board: as SPI master
// on a local bus or through a neurond -spi-left/-spi-right listener.
package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/comm"
	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/link/spi"
	"github.com/robotalks/neuron.go/pkg/link/stream"
)

var (
	busPath  string
	busHz    int64 = 4000000
	remote   string
	sideName = "left"
	interval = spi.DefaultPollInterval
	battery  uint
)

func init() {
	flag.StringVar(&busPath, "bus", busPath, "SPI bus, e.g. /dev/spidev0.0")
	flag.Int64Var(&busHz, "hz", busHz, "SPI clock")
	flag.StringVar(&remote, "remote", remote, "Poll a neurond SPI listener at host:port instead of a bus")
	flag.StringVar(&sideName, "side", sideName, "Half to play: left or right")
	flag.DurationVar(&interval, "interval", interval, "Poll period")
	flag.UintVar(&battery, "battery", 100, "Battery level to report")
}

type closeConn interface {
	spi.Conn
	Close() error
}

func open() (closeConn, error) {
	if remote != "" {
		conn, err := net.DialTimeout("tcp", remote, 5*time.Second)
		if err != nil {
			return nil, err
		}
		return &spi.RemoteConn{RW: stream.New(conn)}, nil
	}
	return spi.OpenPeriph(busPath, busHz)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	side, ok := comm.ParseSide(sideName)
	if !ok {
		glog.Exitf("invalid side %q", sideName)
	}
	dev := comm.KeyscannerDefyLeft
	if side == comm.SideRight {
		dev = comm.KeyscannerDefyRight
	}
	conn, err := open()
	if err != nil {
		glog.Exitln(err)
	}
	defer conn.Close()

	poller := spi.NewPoller(conn, dev)
	poller.Interval = interval
	poller.OnPacket = func(pkt *comm.Packet) {
		glog.Infof("%s: %s %x", pkt.Device, pkt.Command, pkt.Payload())
		if pkt.Command == comm.Version {
			reply := comm.NewPacket(dev, comm.Version, 1, 0, 0, 0)
			poller.Send(&reply)
		}
	}
	for _, pkt := range []comm.Packet{
		comm.NewPacket(dev, comm.Connected),
		comm.NewPacket(dev, comm.BatteryLevel, byte(battery)),
	} {
		poller.Send(&pkt)
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("poller", poller))
	err = runner.Wait()
	stats := poller.Stats()
	glog.Infof("transfers=%d received=%d crc-errors=%d", stats.Transfers, stats.Received, stats.CRCErrors)
	if err != nil && err != context.Canceled {
		glog.Exitln(err)
	}
}
