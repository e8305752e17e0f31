// Package client configures the host side tools.
package client

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/link/mqtt"
)

// Config locates a board.
type Config struct {
	// Target is a focus endpoint: serial device, tcp://host:port or
	// ws://host:port/focus.
	Target string
	Baud   int

	// NodeID and MQTTBrokerURL locate the board telemetry.
	NodeID        string
	MQTTBrokerURL string
}

var defaultConfig = Config{
	Baud: focus.DefaultBaudRate,
}

func init() {
	if val := os.Getenv("NEURON_TARGET"); val != "" {
		defaultConfig.Target = val
	}
	if val := os.Getenv("NEURON_ID"); val != "" {
		defaultConfig.NodeID = val
	}
	if val := os.Getenv("NEURON_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Target, "target", defaultConfig.Target, "Focus endpoint to connect.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate.")
	flag.StringVar(&defaultConfig.NodeID, "node", defaultConfig.NodeID, "Node ID to watch.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Dial connects the focus endpoint.
func (c *Config) Dial() (*focus.Client, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("target must be specified")
	}
	return focus.Dial(c.Target, c.Baud)
}

// MustDial dials and fails on error.
func (c *Config) MustDial() *focus.Client {
	cli, err := c.Dial()
	if err != nil {
		log.Fatalln(err)
	}
	return cli
}

// ConnectQueue connects the broker carrying telemetry.
func (c *Config) ConnectQueue(timeout time.Duration) (*mqtt.Queue, error) {
	if c.MQTTBrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL must be specified")
	}
	if c.NodeID == "" {
		return nil, fmt.Errorf("node id must be specified")
	}
	q, err := mqtt.NewQueueFromURL(c.MQTTBrokerURL)
	if err != nil {
		return nil, err
	}
	if err := q.Connect(timeout); err != nil {
		return nil, err
	}
	return q, nil
}
