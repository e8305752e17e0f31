// Package ble carries the packet link of the BLE custom service.
package ble

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/link"
	lws "github.com/robotalks/neuron.go/pkg/link/websocket"
)

// Link is the BLE side port. Peers poll it over any PacketReadWriter.
type Link struct {
	*link.Port

	peers atomic.Int32
}

// New creates the link replying as BLE_NEURON_2_DEFY.
func New() *Link {
	return &Link{
		Port: link.NewPort("ble", link.WithIdentity(link.Identity(comm.BLENeuronDefy))),
	}
}

// Serve bridges one peer until it goes away or ctx is done.
func (l *Link) Serve(ctx context.Context, rw link.PacketReadWriter) error {
	n := l.peers.Add(1)
	defer l.peers.Add(-1)
	glog.Infof("ble: peer connected (%d)", n)
	err := link.NewBridge(rw, l.Port).Run(ctx)
	glog.Infof("ble: peer disconnected: %v", err)
	return err
}

// Connected reports whether any peer is attached.
func (l *Link) Connected() bool {
	return l.peers.Load() > 0
}

// Handler accepts peers over websocket.
func (l *Link) Handler(ctx context.Context) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		l.Serve(ctx, lws.New(conn))
	})
}
