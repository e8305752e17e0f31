package focus

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/neuron.go/pkg/framework"
)

// RequestMsg carries a request into the loop.
type RequestMsg struct {
	Req *Request
	Err error

	done chan struct{}
}

// NewMessage implements fx.Message.
func (m *RequestMsg) NewMessage() fx.Message {
	return &RequestMsg{}
}

// Server runs requests inside the loop, so handlers never race with
// the packet callbacks. Sessions from serial ports, TCP and websocket
// connections are served by goroutines waiting on the loop.
type Server struct {
	Dispatcher *Dispatcher
	Loop       fx.LoopControl
}

// NewServer creates a Server.
func NewServer(d *Dispatcher, loop fx.LoopControl) *Server {
	return &Server{Dispatcher: d, Loop: loop}
}

// AddToLoop implements fx.LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvInput, s)
}

// Control implements fx.Controller.
func (s *Server) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		msg, ok := mc.CurrentMessage().(*RequestMsg)
		if !ok {
			return
		}
		mc.MessageTaken()
		msg.Err = s.Dispatcher.Dispatch(msg.Req)
		close(msg.done)
	}))
	return nil
}

// Do runs req in the loop and waits for it.
func (s *Server) Do(ctx context.Context, req *Request) error {
	if s.Loop == nil {
		return ErrNotServing
	}
	msg := &RequestMsg{Req: req, done: make(chan struct{})}
	s.Loop.PostMessage(msg)
	s.Loop.TriggerNext()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-msg.done:
		return msg.Err
	}
}

// Serve runs a session on a line based stream until EOF.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	scanner := bufio.NewScanner(rw)
	for scanner.Scan() {
		req := ParseRequest(scanner.Text())
		if req.Command == "" {
			continue
		}
		if err := s.Do(ctx, req); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := io.WriteString(rw, req.Response()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// ServeSerial opens a serial device and serves it.
func (s *Server) ServeSerial(ctx context.Context, dev string, baud int) error {
	port, err := OpenSerial(dev, baud)
	if err != nil {
		return err
	}
	glog.Infof("focus: serving %s", dev)
	return fx.RunWithContextCloser(ctx, port, func() error {
		return s.Serve(ctx, port)
	})
}

// ServeListener accepts sessions until ctx is done.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	glog.Infof("focus: listening on %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			go func() {
				defer conn.Close()
				err := s.Serve(ctx, conn)
				glog.V(2).Infof("focus: session %s closed: %v", conn.RemoteAddr(), err)
			}()
		}
	})
}

// WebsocketHandler serves sessions over websocket.
func (s *Server) WebsocketHandler(ctx context.Context) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		err := s.Serve(ctx, conn)
		glog.V(2).Infof("focus: websocket session closed: %v", err)
	})
}

// OpenSerial opens a CDC serial port, 8N1.
func OpenSerial(dev string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(dev, mode)
}
