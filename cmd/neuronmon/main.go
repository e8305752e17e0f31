package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"time"

	"github.com/robotalks/neuron.go/pkg/link/mqtt"
	"github.com/robotalks/neuron.go/pkg/msgs"
	"github.com/robotalks/neuron.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/neuron/"
	nodeID  = "+"
)

func init() {
	if val := os.Getenv("NEURON_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&nodeID, "node", nodeID, "Node ID to watch, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(5 * time.Second); err != nil {
		log.Fatalln(err)
	}

	q.Sub(telemetry.StatusTopic(nodeID), mqtt.Handler(func(topic string, payload []byte) {
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		log.Printf("%s: [%s] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
			msg.(msgs.SerializableMessage).Serializable().String())
	}))
	<-(chan struct{})(nil)
}
