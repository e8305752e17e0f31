package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/neuron.go/pkg/framework"
)

// Status is the board status event.
type Status struct {
	PbNeuronStatus
}

// NewMessage implements fx.Message.
func (m *Status) NewMessage() fx.Message { return &Status{} }

// TypeID implements SerializableMessage.
func (m *Status) TypeID() uint32 { return StatusTypeID }

// Serializable implements SerializableMessage.
func (m *Status) Serializable() proto.Message { return &m.PbNeuronStatus }

// TypeID Groups
const (
	GroupNeuron uint32 = 0x00010000
)

// TypeIDs
const (
	StatusTypeID uint32 = TypeIDKindEvent | GroupNeuron | 0x0001
)
