package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC8(t *testing.T) {
	require.Equal(t, byte(0xf4), CRC8([]byte("123456789")))
	require.Equal(t, byte(0xf4), CRC8([]byte("1234"), []byte("56789")))
	require.Equal(t, byte(0), CRC8())
}

func TestPacketRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		packet Packet
	}{
		{"no data", NewPacket(NeuronDefy, IsAlive)},
		{"battery", NewPacket(KeyscannerDefyRight, BatteryLevel, 85, 0x34, 0x0e)},
		{"full", NewPacket(BLEDefyLeft, HasKeys, bytes.Repeat([]byte{0x5a}, MaxDataSize)...)},
		{"more", Packet{Header: Header{Device: RFDefyLeft, Command: Sleep, HasMorePackets: true}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.packet.Seal()
			b := tc.packet.Bytes()
			require.Len(t, b, PacketSize)

			var out Packet
			require.NoError(t, out.Decode(b))
			require.Equal(t, tc.packet.Device, out.Device)
			require.Equal(t, tc.packet.Command, out.Command)
			require.Equal(t, tc.packet.Size, out.Size)
			require.Equal(t, tc.packet.HasMorePackets, out.HasMorePackets)
			require.Equal(t, tc.packet.Payload(), out.Payload())
			require.NoError(t, out.Verify())
			require.Equal(t, tc.packet.CRC, out.Checksum())
		})
	}
}

func TestPacketLayout(t *testing.T) {
	p := NewPacket(KeyscannerDefyLeft, BatterySaving, 1)
	p.HasMorePackets = true
	p.Seal()
	b := p.Bytes()
	require.Equal(t, []byte{byte(KeyscannerDefyLeft), byte(BatterySaving), 1, 1, p.CRC, 1}, b[:6])
	require.Equal(t, CRC8([]byte{1, 10, 1, 1, 0}, []byte{1}), p.CRC)

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(PacketSize), n)
	require.Equal(t, b, buf.Bytes())
}

func TestPacketDecodeClampsSize(t *testing.T) {
	b := make([]byte, PacketSize)
	b[2] = 200
	var p Packet
	require.NoError(t, p.Decode(b))
	require.Equal(t, MaxDataSize, p.Len())
	require.Len(t, p.Payload(), MaxDataSize)
	require.Equal(t, ErrShortBuffer, p.Decode(b[:10]))
}

func TestPacketVerify(t *testing.T) {
	p := NewPacket(KeyscannerDefyLeft, BatteryStatus, 2)
	p.Seal()
	require.NoError(t, p.Verify())
	p.Data[0] = 3
	err := p.Verify()
	require.Error(t, err)
	require.IsType(t, &CRCError{}, err)
}

func TestSetPayloadTruncates(t *testing.T) {
	var p Packet
	p.SetPayload(bytes.Repeat([]byte{1}, 40)...)
	require.Equal(t, byte(MaxDataSize), p.Size)
	p.SetPayload(7)
	require.Equal(t, []byte{7}, p.Payload())
	require.Equal(t, byte(0), p.Data[1])
}
