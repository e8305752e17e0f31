package node

import "time"

// Config is the runtime configuration of a node.
type Config struct {
	// NodeID names the board on the broker and seeds the RF address.
	NodeID string
	// Version is answered to the "version" command.
	Version string

	// FlashURL selects the flash backend, see store.OpenFlash.
	FlashURL  string
	FlashSize int

	// MQTTBrokerURL enables the RF bridge and telemetry,
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string

	// SPIListen accepts a remote keyscanner master per side (tcp address).
	SPIListen [2]string
	// ResetLines names the GPIOs holding the sides in reset.
	ResetLines [2]string

	// FocusSerial serves the host protocol on a serial device.
	FocusSerial string
	FocusBaud   int
	// FocusListen serves the host protocol over tcp.
	FocusListen string
	// HTTPListen serves /focus and /ble over websocket.
	HTTPListen string

	// Interval is the main loop period.
	Interval time.Duration
	// WiredWait is how long a wired half may take to show up before the
	// wireless links are brought up.
	WiredWait time.Duration
	// PersistInterval is the quiet period before flash is written.
	PersistInterval time.Duration
	// WatchdogTimeout resets the node when the loop stalls.
	WatchdogTimeout time.Duration
}

// Defaults
const (
	DefaultFlashURL        = "mem:"
	DefaultWiredWait       = time.Second
	DefaultPersistInterval = time.Second
)

// DefaultConfig returns a Config with defaults filled.
func DefaultConfig() Config {
	return Config{
		FlashURL:        DefaultFlashURL,
		Interval:        10 * time.Millisecond,
		WiredWait:       DefaultWiredWait,
		PersistInterval: DefaultPersistInterval,
		WatchdogTimeout: 5 * time.Second,
	}
}
