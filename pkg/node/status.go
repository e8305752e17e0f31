package node

import (
	"github.com/robotalks/neuron.go/pkg/bluetooth"
	"github.com/robotalks/neuron.go/pkg/comm"
	"github.com/robotalks/neuron.go/pkg/msgs"
)

// Status snapshots the board state for telemetry.
// It reads loop owned state and is called from the loop.
func (n *Node) Status() *msgs.Status {
	bat := n.Battery.State()
	ind := n.Bluetooth.Indicator()
	st := &msgs.Status{}
	st.NodeId = n.Config.NodeID
	st.Version = n.Config.Version
	st.SavingMode = uint32(bat.SavingMode)
	st.RfPower = uint32(n.Radio.Power())
	sides := [2]*msgs.PbSideStatus{}
	for _, side := range []comm.Side{comm.SideLeft, comm.SideRight} {
		sides[side] = &msgs.PbSideStatus{
			Connected:     n.Upgrade.IsConnected(side),
			BatteryLevel:  uint32(bat.Level[side]),
			BatteryStatus: uint32(bat.Status[side]),
		}
	}
	st.Left, st.Right = sides[comm.SideLeft], sides[comm.SideRight]
	_, connected := ind.Connected()
	st.Ble = &msgs.PbBleStatus{
		Channel:        uint32(n.Bluetooth.Data().CurrentChannel),
		PairedChannels: uint32(ind.PairedChannels),
		Advertising:    ind.AdvertisingChannel < bluetooth.Channels,
		Connected:      connected,
	}
	return st
}
