// Package comm provides the inter-board packet protocol.
package comm

// Every link between the Neuron and a keyboard side (SPI, RF gateway pipe,
// BLE service) carries the same fixed 32-byte Packet. A link is polled by
// its peer: each poll clocks one packet in each direction and the reply
// carries a has-more flag asking the poller to come back immediately.
//
// Packets received by a link are queued on its inbound Queue. The Router
// drains every attached Transport once per loop cycle and dispatches each
// packet to the Callbacks bound to its command. Replies go through
// Router.SendPacket which selects the outbound queue by device.
