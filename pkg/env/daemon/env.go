// Package daemon configures neurond from flags and NEURON_* variables.
package daemon

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/neuron.go/pkg/env"
	"github.com/robotalks/neuron.go/pkg/hw"
	"github.com/robotalks/neuron.go/pkg/link/mqtt"
	"github.com/robotalks/neuron.go/pkg/node"
	"github.com/robotalks/neuron.go/pkg/store"
)

// DefaultConnectTimeout bounds the first broker connection.
const DefaultConnectTimeout = 5 * time.Second

// Config is node.Config plus what lives outside a node.
type Config struct {
	node.Config

	ConnectTimeout time.Duration
}

var defaultConfig = Config{
	Config:         node.DefaultConfig(),
	ConnectTimeout: DefaultConnectTimeout,
}

func init() {
	defaultConfig.Version = "v0.0.0"
	if val := os.Getenv("NEURON_ID"); val != "" {
		defaultConfig.NodeID = val
	} else {
		defaultConfig.NodeID = env.MachineID()
	}
	if val := os.Getenv("NEURON_FLASH"); val != "" {
		defaultConfig.FlashURL = val
	}
	if val := os.Getenv("NEURON_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("NEURON_FOCUS_SERIAL"); val != "" {
		defaultConfig.FocusSerial = val
	}
	if val := os.Getenv("NEURON_HTTP"); val != "" {
		defaultConfig.HTTPListen = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	c := &defaultConfig
	flag.StringVar(&c.NodeID, "id", c.NodeID, "Node ID")
	flag.StringVar(&c.FlashURL, "flash", c.FlashURL, "Flash backend: mem:, file:PATH or sqlite:PATH")
	flag.IntVar(&c.FlashSize, "flash-size", store.MaxSize, "Flash area size in bytes")
	flag.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL for the RF bridge and telemetry")
	flag.DurationVar(&c.ConnectTimeout, "mqtt-timeout", c.ConnectTimeout, "MQTT connect timeout")
	flag.StringVar(&c.SPIListen[0], "spi-left", c.SPIListen[0], "Accept the left keyscanner master on this address")
	flag.StringVar(&c.SPIListen[1], "spi-right", c.SPIListen[1], "Accept the right keyscanner master on this address")
	flag.StringVar(&c.ResetLines[0], "reset-left", c.ResetLines[0], "GPIO holding the left side in reset")
	flag.StringVar(&c.ResetLines[1], "reset-right", c.ResetLines[1], "GPIO holding the right side in reset")
	flag.StringVar(&c.FocusSerial, "focus-serial", c.FocusSerial, "Serve host commands on a serial device")
	flag.IntVar(&c.FocusBaud, "focus-baud", c.FocusBaud, "Serial baud rate")
	flag.StringVar(&c.FocusListen, "focus-listen", c.FocusListen, "Serve host commands over tcp")
	flag.StringVar(&c.HTTPListen, "http", c.HTTPListen, "Serve /focus and /ble websockets")
	flag.DurationVar(&c.Interval, "interval", c.Interval, "Main loop period")
	flag.DurationVar(&c.WiredWait, "wired-wait", c.WiredWait, "Wait for a wired half before going wireless")
	flag.DurationVar(&c.WatchdogTimeout, "watchdog", c.WatchdogTimeout, "Watchdog timeout")
}

// SetVersion should be called in init by the binary.
func SetVersion(version string) {
	defaultConfig.Version = version
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env owns what outlives a node across resets: the flash, the broker
// connection and the reset lines.
type Env struct {
	Config *Config
	Flash  store.Flash
	Queue  *mqtt.Queue
	Lines  *hw.SideLines
}

// NewEnv opens the resources named by the config.
func (c *Config) NewEnv() (*Env, error) {
	if c.NodeID == "" {
		return nil, fmt.Errorf("node id must be specified")
	}
	size := c.FlashSize
	if size <= 0 {
		size = store.MaxSize
	}
	flash, err := store.OpenFlash(c.FlashURL, size)
	if err != nil {
		return nil, fmt.Errorf("open flash %q error: %w", c.FlashURL, err)
	}
	e := &Env{Config: c, Flash: flash}
	if c.MQTTBrokerURL != "" {
		if e.Queue, err = mqtt.NewQueueFromURL(c.MQTTBrokerURL); err != nil {
			return nil, fmt.Errorf("create MQTT queue error: %w", err)
		}
		if err = e.Queue.Connect(c.ConnectTimeout); err != nil {
			return nil, fmt.Errorf("connect %s error: %w", c.MQTTBrokerURL, err)
		}
		glog.Infof("connected to %s", c.MQTTBrokerURL)
	}
	if c.ResetLines[0] != "" || c.ResetLines[1] != "" {
		if c.ResetLines[0] == "" || c.ResetLines[1] == "" {
			return nil, fmt.Errorf("reset lines of both sides must be specified")
		}
		if e.Lines, err = hw.OpenSideLines(c.ResetLines[0], c.ResetLines[1]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// NewNode creates a fresh node on the env resources.
func (e *Env) NewNode() (*node.Node, error) {
	opts := []node.Option{node.WithFlash(e.Flash)}
	if e.Queue != nil {
		opts = append(opts, node.WithQueue(e.Queue))
	}
	if e.Lines != nil {
		opts = append(opts, node.WithSideLines(e.Lines))
	}
	return node.New(e.Config.Config, opts...)
}

// Close releases the env resources.
func (e *Env) Close() error {
	if e.Queue != nil {
		return e.Queue.Close()
	}
	return nil
}

// Summary describes the env for the startup log.
func (e *Env) Summary() string {
	parts := []string{"id=" + e.Config.NodeID, "flash=" + e.Config.FlashURL}
	if e.Queue != nil {
		parts = append(parts, "mqtt="+e.Config.MQTTBrokerURL)
	}
	if e.Lines != nil {
		parts = append(parts, "reset-lines="+e.Config.ResetLines[0]+","+e.Config.ResetLines[1])
	}
	return strings.Join(parts, " ")
}
