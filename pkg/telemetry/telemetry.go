// Package telemetry publishes the board status over MQTT.
package telemetry

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/robotalks/neuron.go/pkg/framework"
	"github.com/robotalks/neuron.go/pkg/link/mqtt"
	"github.com/robotalks/neuron.go/pkg/msgs"
)

// DefaultInterval republishes an unchanged status.
const DefaultInterval = 10 * time.Second

// Publisher is satisfied by *mqtt.Queue.
type Publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Source builds the current status.
type Source func() *msgs.Status

// StatusTopic is the topic of a node's status.
func StatusTopic(nodeID string) string {
	return nodeID + "/status"
}

// Reporter publishes the status, retained, on change and every Interval.
type Reporter struct {
	Pub      Publisher
	NodeID   string
	Source   Source
	Interval time.Duration

	last     []byte
	lastTime time.Time
}

// NewReporter creates a Reporter.
func NewReporter(pub Publisher, nodeID string, src Source) *Reporter {
	return &Reporter{Pub: pub, NodeID: nodeID, Source: src, Interval: DefaultInterval}
}

// Report publishes if needed. It returns whether anything was published.
func (r *Reporter) Report(now time.Time) (bool, error) {
	st := r.Source()
	st.NodeId = r.NodeID
	st.Timestamp = 0
	typed, err := msgs.TypedFrom(st)
	if err != nil {
		return false, err
	}
	key, err := typed.Encode()
	if err != nil {
		return false, err
	}
	if r.last != nil && string(key) == string(r.last) && now.Sub(r.lastTime) < r.Interval {
		return false, nil
	}
	st.Timestamp = now.UnixNano() / int64(time.Millisecond)
	if typed, err = msgs.TypedFrom(st); err != nil {
		return false, err
	}
	payload, err := typed.Encode()
	if err != nil {
		return false, err
	}
	r.last, r.lastTime = key, now
	token := r.Pub.PubWith(StatusTopic(r.NodeID), payload, 0, true)
	go func() {
		if token.WaitTimeout(mqtt.PublishTimeout) && token.Error() != nil {
			glog.Warningf("telemetry: publish: %v", token.Error())
		}
	}()
	return true, nil
}

// Control implements fx.Controller.
func (r *Reporter) Control(cc fx.ControlContext) error {
	if _, err := r.Report(cc.Time()); err != nil {
		glog.Errorf("telemetry: %v", err)
	}
	return nil
}

// AddToLoop implements fx.LoopAdder.
func (r *Reporter) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvReport, r)
}

// Watch subscribes to a node's status.
func Watch(q *mqtt.Queue, nodeID string, fn func(*msgs.Status)) *mqtt.Subscription {
	return q.Sub(StatusTopic(nodeID), func(topic string, payload []byte) {
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			glog.Warningf("telemetry: %s: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.Warningf("telemetry: %s: %v", topic, err)
			return
		}
		if st, ok := msg.(*msgs.Status); ok {
			fn(st)
		}
	})
}
