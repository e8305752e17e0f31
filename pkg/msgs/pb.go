package msgs

import "github.com/golang/protobuf/proto"

// Wire schemas, laid out as protoc-gen-go emits them for
// neuron/v1/status.proto.

// PbTyped is the envelope of every published message.
type PbTyped struct {
	TypeId  uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *PbTyped) Reset()         { *m = PbTyped{} }
func (m *PbTyped) String() string { return proto.CompactTextString(m) }
func (*PbTyped) ProtoMessage()    {}

// PbSideStatus is the state of a keyboard half.
type PbSideStatus struct {
	Connected     bool   `protobuf:"varint,1,opt,name=connected,proto3" json:"connected,omitempty"`
	BatteryLevel  uint32 `protobuf:"varint,2,opt,name=battery_level,json=batteryLevel,proto3" json:"battery_level,omitempty"`
	BatteryStatus uint32 `protobuf:"varint,3,opt,name=battery_status,json=batteryStatus,proto3" json:"battery_status,omitempty"`
}

func (m *PbSideStatus) Reset()         { *m = PbSideStatus{} }
func (m *PbSideStatus) String() string { return proto.CompactTextString(m) }
func (*PbSideStatus) ProtoMessage()    {}

// PbBleStatus is the state of the host link.
type PbBleStatus struct {
	Channel        uint32 `protobuf:"varint,1,opt,name=channel,proto3" json:"channel,omitempty"`
	PairedChannels uint32 `protobuf:"varint,2,opt,name=paired_channels,json=pairedChannels,proto3" json:"paired_channels,omitempty"`
	Advertising    bool   `protobuf:"varint,3,opt,name=advertising,proto3" json:"advertising,omitempty"`
	Connected      bool   `protobuf:"varint,4,opt,name=connected,proto3" json:"connected,omitempty"`
}

func (m *PbBleStatus) Reset()         { *m = PbBleStatus{} }
func (m *PbBleStatus) String() string { return proto.CompactTextString(m) }
func (*PbBleStatus) ProtoMessage()    {}

// PbNeuronStatus is the periodic status event.
type PbNeuronStatus struct {
	NodeId     string        `protobuf:"bytes,1,opt,name=node_id,json=nodeId,proto3" json:"node_id,omitempty"`
	Timestamp  int64         `protobuf:"varint,2,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Left       *PbSideStatus `protobuf:"bytes,3,opt,name=left,proto3" json:"left,omitempty"`
	Right      *PbSideStatus `protobuf:"bytes,4,opt,name=right,proto3" json:"right,omitempty"`
	SavingMode uint32        `protobuf:"varint,5,opt,name=saving_mode,json=savingMode,proto3" json:"saving_mode,omitempty"`
	Ble        *PbBleStatus  `protobuf:"bytes,6,opt,name=ble,proto3" json:"ble,omitempty"`
	RfPower    uint32        `protobuf:"varint,7,opt,name=rf_power,json=rfPower,proto3" json:"rf_power,omitempty"`
	Version    string        `protobuf:"bytes,8,opt,name=version,proto3" json:"version,omitempty"`
}

func (m *PbNeuronStatus) Reset()         { *m = PbNeuronStatus{} }
func (m *PbNeuronStatus) String() string { return proto.CompactTextString(m) }
func (*PbNeuronStatus) ProtoMessage()    {}
