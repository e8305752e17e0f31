package telemetry

import (
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/msgs"
)

type published struct {
	topic   string
	payload []byte
	retain  bool
}

type recorder []published

func (r *recorder) PubWith(topic string, payload []byte, _ byte, retain bool) paho.Token {
	*r = append(*r, published{topic: topic, payload: payload, retain: retain})
	return &paho.DummyToken{}
}

func TestReporter(t *testing.T) {
	pub := &recorder{}
	level := uint32(100)
	r := NewReporter(pub, "n1", func() *msgs.Status {
		return &msgs.Status{PbNeuronStatus: msgs.PbNeuronStatus{
			Left: &msgs.PbSideStatus{BatteryLevel: level},
		}}
	})
	t0 := time.Unix(100, 0)

	sent, err := r.Report(t0)
	require.NoError(t, err)
	require.True(t, sent)
	sent, err = r.Report(t0.Add(time.Second))
	require.NoError(t, err)
	require.False(t, sent)

	level = 80
	sent, err = r.Report(t0.Add(2 * time.Second))
	require.NoError(t, err)
	require.True(t, sent)

	sent, err = r.Report(t0.Add(2*time.Second + DefaultInterval))
	require.NoError(t, err)
	require.True(t, sent)

	require.Len(t, *pub, 3)
	p := (*pub)[1]
	require.Equal(t, "n1/status", p.topic)
	require.True(t, p.retain)
	typed, err := msgs.DecodeTyped(p.payload)
	require.NoError(t, err)
	msg, err := typed.Decode()
	require.NoError(t, err)
	st := msg.(*msgs.Status)
	require.Equal(t, "n1", st.NodeId)
	require.EqualValues(t, 80, st.Left.BatteryLevel)
	require.Equal(t, t0.Add(2*time.Second).UnixNano()/int64(time.Millisecond), st.Timestamp)
}
