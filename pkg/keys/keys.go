// Package keys is the key event contract between the keyboard framework
// and the subsystems reacting to keys.
package keys

import (
	"fmt"
	"time"

	fx "github.com/robotalks/neuron.go/pkg/framework"
)

// Matrix geometry of the whole keyboard. The right half starts at
// column ColsPerSide.
const (
	Rows        = 5
	Cols        = 16
	ColsPerSide = Cols / 2
)

// Key is a keymap entry. Values below 0x100 are HID keyboard usages.
type Key uint16

// HID usages used by subsystems.
const (
	KeyNone      Key = 0x00
	KeyQ         Key = 0x14
	KeyW         Key = 0x1A
	KeyE         Key = 0x08
	KeyR         Key = 0x15
	KeyT         Key = 0x17
	KeyY         Key = 0x1C
	KeyU         Key = 0x18
	KeyI         Key = 0x0C
	KeyO         Key = 0x12
	KeyP         Key = 0x13
	Key1         Key = 0x1E
	Key0         Key = 0x27
	KeyEscape    Key = 0x29
	KeyBackspace Key = 0x2A
)

// Keys outside of the HID range.
const (
	BluetoothPairing Key = 0x5400 + iota
	BatteryLevel
	EnergyModeNext
	EnergyModePrev
)

// IsDigit reports a number row key, 1 to 0.
func (k Key) IsDigit() bool {
	return k >= Key1 && k <= Key0
}

// Digit returns the ASCII digit of a number row key.
func (k Key) Digit() byte {
	n := byte(k-Key1) + 1
	if n == 10 {
		return '0'
	}
	return '0' + n
}

// Addr is a matrix position.
type Addr struct {
	Row, Col byte
}

func (a Addr) String() string {
	return fmt.Sprintf("(%d,%d)", a.Row, a.Col)
}

// State is the key switch state of one scan.
type State byte

// State bits
const (
	WasPressed State = 1 << iota
	IsPressed
)

// ToggledOn reports a press in this scan.
func (s State) ToggledOn() bool {
	return s&IsPressed != 0 && s&WasPressed == 0
}

// ToggledOff reports a release in this scan.
func (s State) ToggledOff() bool {
	return s&IsPressed == 0 && s&WasPressed != 0
}

// Pressed reports the key is down.
func (s State) Pressed() bool {
	return s&IsPressed != 0
}

// WasDown reports the key was down in the previous scan.
func (s State) WasDown() bool {
	return s&WasPressed != 0
}

// Event is a key switch event.
type Event struct {
	Addr  Addr
	Key   Key
	State State
	Time  time.Time
}

// NewMessage implements fx.Message.
func (e *Event) NewMessage() fx.Message {
	return &Event{}
}

func (e Event) String() string {
	return fmt.Sprintf("key %s %#x state %02b", e.Addr, uint16(e.Key), byte(e.State))
}

// Result tells the dispatcher whether to go on.
type Result int

// Results
const (
	Continue Result = iota
	Consumed
)

// Handler reacts to key events.
type Handler interface {
	HandleKey(*Event) Result
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(*Event) Result

// HandleKey implements Handler.
func (f HandlerFunc) HandleKey(ev *Event) Result {
	return f(ev)
}

// Dispatcher offers events to handlers until one consumes it.
type Dispatcher struct {
	handlers []Handler
}

// Register appends handlers.
func (d *Dispatcher) Register(handlers ...Handler) *Dispatcher {
	d.handlers = append(d.handlers, handlers...)
	return d
}

// HandleKey implements Handler.
func (d *Dispatcher) HandleKey(ev *Event) Result {
	for _, h := range d.handlers {
		if h.HandleKey(ev) == Consumed {
			return Consumed
		}
	}
	return Continue
}
