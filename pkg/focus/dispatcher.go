package focus

import (
	"strings"
	"sync"

	"github.com/golang/glog"
)

// Handler serves a set of commands.
type Handler interface {
	// FocusCommands lists the commands shown by help.
	FocusCommands() []string
	// HandleFocus returns true when the request is consumed.
	HandleFocus(*Request) (bool, error)
}

// HandlerFunc adapts a func serving a fixed command list.
type HandlerFunc struct {
	Commands []string
	Func     func(*Request) (bool, error)
}

// FocusCommands implements Handler.
func (h *HandlerFunc) FocusCommands() []string { return h.Commands }

// HandleFocus implements Handler.
func (h *HandlerFunc) HandleFocus(req *Request) (bool, error) { return h.Func(req) }

// Dispatcher offers requests to handlers in registration order.
type Dispatcher struct {
	handlers []Handler
	lock     sync.RWMutex
}

// Register appends handlers.
func (d *Dispatcher) Register(handlers ...Handler) *Dispatcher {
	d.lock.Lock()
	d.handlers = append(d.handlers, handlers...)
	d.lock.Unlock()
	return d
}

// Commands lists every command of every handler.
func (d *Dispatcher) Commands() []string {
	d.lock.RLock()
	defer d.lock.RUnlock()
	var cmds []string
	for _, h := range d.handlers {
		cmds = append(cmds, h.FocusCommands()...)
	}
	return cmds
}

// Dispatch runs the request. "help" lists the commands.
func (d *Dispatcher) Dispatch(req *Request) error {
	if req.Command == "help" {
		for _, cmd := range d.Commands() {
			req.SendLine(cmd)
		}
		return nil
	}
	d.lock.RLock()
	handlers := d.handlers
	d.lock.RUnlock()
	for _, h := range handlers {
		consumed, err := h.HandleFocus(req)
		if err != nil {
			glog.Warningf("focus %s %s: %v", req.Command, strings.Join(req.args, " "), err)
			return err
		}
		if consumed {
			return nil
		}
	}
	return ErrUnknownCommand
}
