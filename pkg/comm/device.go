package comm

import "fmt"

// Device identifies the logical endpoint of a packet.
type Device byte

// Devices
const (
	DeviceUnknown Device = iota
	KeyscannerDefyLeft
	KeyscannerDefyRight
	RFNeuronDefy
	RFDefyLeft
	RFDefyRight
	NeuronDefy
	NeuronDefyWireless
	BLENeuronDefy
	BLEDefyLeft
	BLEDefyRight
)

var deviceNames = [...]string{
	"UNKNOWN",
	"KEYSCANNER_DEFY_LEFT",
	"KEYSCANNER_DEFY_RIGHT",
	"RF_NEURON_DEFY",
	"RF_DEFY_LEFT",
	"RF_DEFY_RIGHT",
	"NEURON_DEFY",
	"NEURON_DEFY_WIRELESS",
	"BLE_NEURON_2_DEFY",
	"BLE_DEFY_LEFT",
	"BLE_DEFY_RIGHT",
}

func (d Device) String() string {
	if int(d) < len(deviceNames) {
		return deviceNames[d]
	}
	return fmt.Sprintf("DEVICE(%d)", byte(d))
}

// IsNeuron reports whether the device names this board itself.
func (d Device) IsNeuron() bool {
	switch d {
	case RFNeuronDefy, NeuronDefy, NeuronDefyWireless, BLENeuronDefy:
		return true
	}
	return false
}

// Side is a keyboard half.
type Side int

// Sides
const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// ParseSide parses "left"/"right" or "0"/"1".
func ParseSide(s string) (Side, bool) {
	switch s {
	case "left", "0":
		return SideLeft, true
	case "right", "1":
		return SideRight, true
	}
	return SideLeft, false
}

// SideOf returns which half a keyscanner-facing device belongs to.
func SideOf(d Device) (Side, bool) {
	switch d {
	case KeyscannerDefyLeft, BLEDefyLeft, RFDefyLeft:
		return SideLeft, true
	case KeyscannerDefyRight, BLEDefyRight, RFDefyRight:
		return SideRight, true
	}
	return SideLeft, false
}

// Command is the packet opcode.
type Command byte

// Commands
const (
	IsDead Command = iota
	IsAlive
	Version
	Connected
	Disconnected
	Sleep
	WakeUp
	HasKeys
	BatteryLevel
	BatteryStatus
	BatterySaving
	RFAddress
	Brightness
	ModeLED
)

var commandNames = [...]string{
	"IS_DEAD",
	"IS_ALIVE",
	"VERSION",
	"CONNECTED",
	"DISCONNECTED",
	"SLEEP",
	"WAKE_UP",
	"HAS_KEYS",
	"BATTERY_LEVEL",
	"BATTERY_STATUS",
	"BATTERY_SAVING",
	"RF_ADDRESS",
	"BRIGHTNESS",
	"MODE_LED",
}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("COMMAND(%d)", byte(c))
}
