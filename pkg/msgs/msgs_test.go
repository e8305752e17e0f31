package msgs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	st := &Status{PbNeuronStatus: PbNeuronStatus{
		NodeId:     "n1",
		Left:       &PbSideStatus{Connected: true, BatteryLevel: 85},
		Right:      &PbSideStatus{BatteryLevel: 100, BatteryStatus: 4},
		SavingMode: 1,
		Ble:        &PbBleStatus{Channel: 2, PairedChannels: 0b101, Connected: true},
	}}
	typed, err := TypedFrom(st)
	require.NoError(t, err)
	require.True(t, typed.IsEvent())
	data, err := typed.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTyped(data)
	require.NoError(t, err)
	msg, err := decoded.Decode()
	require.NoError(t, err)
	got, ok := msg.(*Status)
	require.True(t, ok)
	require.Equal(t, "n1", got.NodeId)
	require.EqualValues(t, 85, got.Left.BatteryLevel)
	require.EqualValues(t, 4, got.Right.BatteryStatus)
	require.EqualValues(t, 0b101, got.Ble.PairedChannels)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Typed{PbTyped: PbTyped{TypeId: 0x42}}.Decode()
	var unknown *ErrUnknownType
	require.True(t, errors.As(err, &unknown))
	require.EqualValues(t, 0x42, unknown.TypeID)

	_, err = TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)
}
